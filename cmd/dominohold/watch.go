package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/dominohold/internal/engine"
	"github.com/lox/dominohold/internal/service"
)

// WatchCmd renders a live view of a game's betting state.
type WatchCmd struct {
	GameID   int64         `arg:"" help:"Game id to watch"`
	Server   string        `default:"http://localhost:8080" help:"Server base URL"`
	Interval time.Duration `default:"1s" help:"Poll interval"`
}

func (c *WatchCmd) Run() error {
	model := newWatchModel(c.Server, c.GameID, c.Interval)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
	turnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	foldedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	outStyle    = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	potStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

type snapshotMsg struct {
	snapshot service.Snapshot
}

type fetchErrMsg struct {
	err error
}

type tickMsg struct{}

type watchModel struct {
	baseURL  string
	gameID   int64
	interval time.Duration
	client   *http.Client

	snapshot service.Snapshot
	loaded   bool
	fetchErr error
	spinner  spinner.Model
}

func newWatchModel(baseURL string, gameID int64, interval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return watchModel{
		baseURL:  strings.TrimRight(baseURL, "/"),
		gameID:   gameID,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		spinner:  sp,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.fetch, m.spinner.Tick)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.loaded = true
		m.fetchErr = nil
		return m, m.tick()

	case fetchErrMsg:
		m.fetchErr = msg.err
		return m, m.tick()

	case tickMsg:
		return m, m.fetch

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Domino Hold'em / game %d", m.gameID)))
	b.WriteString("\n\n")

	if m.fetchErr != nil {
		b.WriteString(errorStyle.Render("fetch failed: "+m.fetchErr.Error()) + "\n\n")
	}
	if !m.loaded {
		b.WriteString(m.spinner.View() + " waiting for game state\n")
		return b.String()
	}

	game := m.snapshot.Game
	status := "active"
	if !game.IsActive {
		status = "finished"
	}
	b.WriteString(fmt.Sprintf("hand %d  round %s  %s\n",
		game.CurrentHandNumber, game.CurrentRound, status))
	b.WriteString(potStyle.Render(fmt.Sprintf("pot %d", game.Pot)))
	if game.CurrentBetAmount > 0 {
		b.WriteString(fmt.Sprintf("  current bet %d", game.CurrentBetAmount))
	}
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-12s %8s %8s %-8s", "pos", "name", "balance", "bet", "status")))
	b.WriteString("\n")
	for _, p := range m.snapshot.Players {
		line := fmt.Sprintf("%-4d %-12s %8d %8d %-8s", p.Position, p.Name, p.Balance, p.CurrentBet, p.Status)
		switch {
		case game.IsActive && p.Position == game.CurrentPlayerTurn && p.Status == engine.StatusActive:
			line = turnStyle.Render("▶ " + line)
		case p.Status == engine.StatusFolded:
			line = foldedStyle.Render("  " + line)
		case p.Status == engine.StatusOut:
			line = outStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if n := len(m.snapshot.Actions); n > 0 {
		b.WriteString("\n" + headerStyle.Render("recent actions") + "\n")
		start := n - 8
		if start < 0 {
			start = 0
		}
		for _, a := range m.snapshot.Actions[start:] {
			b.WriteString(fmt.Sprintf("  hand %d  %-9s %-12s %s %d\n",
				a.HandNumber, a.Round, a.PlayerName, a.Action, a.Amount))
		}
	}

	b.WriteString("\n" + foldedStyle.Render("q to quit") + "\n")
	return b.String()
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// fetch polls the read-only snapshot endpoint.
func (m watchModel) fetch() tea.Msg {
	resp, err := m.client.Get(fmt.Sprintf("%s/api/games/%d", m.baseURL, m.gameID))
	if err != nil {
		return fetchErrMsg{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fetchErrMsg{err: fmt.Errorf("%s", apiErr.Error)}
		}
		return fetchErrMsg{err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var snapshot service.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fetchErrMsg{err: err}
	}
	return snapshotMsg{snapshot: snapshot}
}
