package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"

	"github.com/lox/dominohold/cmd/dominohold/shared"
	"github.com/lox/dominohold/internal/config"
	"github.com/lox/dominohold/internal/engine"
	"github.com/lox/dominohold/internal/server"
	"github.com/lox/dominohold/internal/service"
	"github.com/lox/dominohold/internal/store"
)

// ServeCmd runs the bet manager server.
type ServeCmd struct {
	Config            string `default:"dominohold.hcl" help:"Path to HCL config file"`
	Addr              string `help:"Listen address (overrides config)"`
	Store             string `help:"Store backend: memory, redis or postgres (overrides config)"`
	Debug             bool   `help:"Enable debug logging"`
	SmallBlindForfeit bool   `help:"Enable the small-blind fold forfeiture house rule"`
	NodeID            int64  `default:"1" help:"Snowflake node id for record ids"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.Store != "" {
		cfg.Store.Backend = c.Store
	}
	if c.SmallBlindForfeit {
		cfg.Rules.SmallBlindForfeit = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)
	ctx := shared.SetupSignalHandler(logger)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	node, err := snowflake.NewNode(c.NodeID)
	if err != nil {
		return fmt.Errorf("creating snowflake node: %w", err)
	}

	rules := engine.Rules{SmallBlindForfeit: cfg.Rules.SmallBlindForfeit}
	svc := service.New(st, engine.New(rules), node, quartz.NewReal(), logger)
	srv := server.NewServer(cfg.Server.Addr, svc, logger)

	logger.Info("starting dominohold server",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Backend,
		"smallBlindForfeit", cfg.Rules.SmallBlindForfeit)

	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		return store.NewRedisStore(rdb), nil
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
