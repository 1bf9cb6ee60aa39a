package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/order-fulfillment/internal/config"
	"github.com/dmehra2102/order-fulfillment/pkg/logging"
	"github.com/dmehra2102/order-fulfillment/pkg/migrate"
	"github.com/dmehra2102/order-fulfillment/pkg/shutdown"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

func main() {
	app := &cli.App{
		Name:  "fulfillment",
		Usage: "order fulfillment, settlement and invoicing service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API and the outbox relay",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "with-worker", Usage: "also run the invoice delivery consumer in process"},
				},
				Action: serve,
			},
			{
				Name:   "worker",
				Usage:  "run the invoice delivery consumer",
				Action: worker,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back schema migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Action: migrateUp},
					{
						Name:   "down",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1}},
						Action: migrateDown,
					},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(c.Context)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}
	defer func() { _ = tp(context.Background()) }()

	d, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	srv := d.server(cfg)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.Store, "catalog", cfg.Catalog)
		return shutdown.ServeHTTP(gctx, srv, 10*time.Second)
	})
	if d.relay != nil {
		g.Go(func() error { return d.relay.Run(gctx) })
	}
	if c.Bool("with-worker") {
		consumer, err := d.consumer(cfg)
		if err != nil {
			return err
		}
		g.Go(func() error { return consumer.Run(gctx) })
	}

	err = g.Wait()
	log.Info("fulfillment shutdown complete", "err", err)
	return err
}

func worker(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("worker: store %q is process-local; run serve --with-worker instead", cfg.Store)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(c.Context)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName+"-worker", cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}
	defer func() { _ = tp(context.Background()) }()

	d, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	consumer, err := d.consumer(cfg)
	if err != nil {
		return err
	}
	log.Info("invoice worker started", "topic", cfg.InvoiceTopic, "group", cfg.InvoiceGroup)
	return consumer.Run(ctx)
}

func migrateUp(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return migrate.Up(logging.New(cfg.LogLevel), cfg.PGURL)
}

func migrateDown(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return migrate.Down(logging.New(cfg.LogLevel), cfg.PGURL, c.Int("steps"))
}
