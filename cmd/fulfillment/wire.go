package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	catalogapp "github.com/dmehra2102/order-fulfillment/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/order-fulfillment/internal/catalog/infrastructure/http"
	catalogmem "github.com/dmehra2102/order-fulfillment/internal/catalog/infrastructure/memory"
	catalogpg "github.com/dmehra2102/order-fulfillment/internal/catalog/infrastructure/postgres"
	catalogredis "github.com/dmehra2102/order-fulfillment/internal/catalog/infrastructure/redis"
	"github.com/dmehra2102/order-fulfillment/internal/config"
	invoiceapp "github.com/dmehra2102/order-fulfillment/internal/invoice/application"
	invoicehttp "github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/http"
	invoicekafka "github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/kafka"
	invoicemem "github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/notify"
	"github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/pdf"
	invoicepg "github.com/dmehra2102/order-fulfillment/internal/invoice/infrastructure/postgres"
	orderapp "github.com/dmehra2102/order-fulfillment/internal/order/application"
	orderhttp "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/kafka"
	ordermem "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	orderpg "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/postgres"
	paymentapp "github.com/dmehra2102/order-fulfillment/internal/payment/application"
	paymentdomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	paymenthttp "github.com/dmehra2102/order-fulfillment/internal/payment/infrastructure/http"
	"github.com/dmehra2102/order-fulfillment/pkg/auth"
	"github.com/dmehra2102/order-fulfillment/pkg/httpx"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/migrate"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/pg"
)

// deps holds every wired component of one process.
type deps struct {
	log *slog.Logger

	pool   *pgxpool.Pool
	rdb    *redis.Client
	writer *orderkafka.Writer

	catalog  *catalogapp.Service
	orders   *orderapp.Service
	payments *paymentapp.Service
	invoices *invoiceapp.Service
	idem     *idempotency.Store
	relay    *outbox.Relay
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*deps, error) {
	d := &deps{log: log}

	if cfg.RedisAddr != "" {
		d.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		d.idem = idempotency.NewStore(d.rdb, cfg.IdempotencyTTL)
	}

	var (
		orderRepo   orderapp.OrderRepository
		invoiceRepo invoiceapp.Repository
		obStore     outbox.Store
	)
	switch cfg.Store {
	case config.StorePostgres:
		if cfg.AutoMigrate {
			if err := migrate.Up(log, cfg.PGURL); err != nil {
				return nil, err
			}
		}
		pool, err := pg.NewPool(ctx, cfg.PGURL)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		orderRepo = orderpg.NewRepository(log, pool)
		invoiceRepo = invoicepg.NewRepository(log, pool)
		obStore = outbox.NewPostgresStore(log, pool)
	case config.StoreMemory:
		ob := outbox.NewMemoryStore()
		orders := ordermem.NewStore(ob)
		orderRepo = orders
		invoiceRepo = invoicemem.NewStore(orders, ob)
		obStore = ob
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	reader, err := d.catalogReader(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}

	var notifier invoiceapp.Notifier = notify.NewLog(log)
	if cfg.NotifierURL != "" {
		notifier = notify.NewWebhook(log, cfg.NotifierURL, cfg.CatalogTimeout)
	}

	d.catalog = catalogapp.NewService(reader)
	d.orders = orderapp.NewService(log, orderRepo, reader, reader, reader)
	d.payments = paymentapp.NewService(log, orderRepo,
		paymentdomain.Payee{ID: cfg.UPIPayeeID, Name: cfg.UPIPayeeName, Currency: cfg.Currency}, nil)
	d.invoices = invoiceapp.NewService(log, invoiceRepo, orderRepo, reader, pdf.NewRenderer(cfg.SellerName), notifier, cfg.Currency)

	if len(cfg.KafkaBrokers) > 0 {
		d.writer = orderkafka.NewWriter(cfg.KafkaBrokers)
		dispatch := outbox.NewDispatcher(log, d.writer, cfg.OrderTopic, map[string]string{
			invoicepg.AggregateType: cfg.InvoiceTopic,
		})
		d.relay = outbox.NewRelay(log, obStore, dispatch, cfg.ServiceName+"-relay", cfg.RelayInterval)
	}
	return d, nil
}

func (d *deps) catalogReader(cfg config.Config) (catalogapp.Reader, error) {
	var reader catalogapp.Reader
	switch cfg.Catalog {
	case config.CatalogPostgres:
		if d.pool == nil {
			return nil, fmt.Errorf("catalog %q needs a postgres pool", cfg.Catalog)
		}
		reader = catalogpg.NewReader(d.log, d.pool)
	case config.CatalogHTTP:
		reader = cataloghttp.NewClient(d.log, cfg.CatalogBaseURL, cfg.CatalogTimeout)
	case config.CatalogFile:
		seed, err := catalogmem.LoadSeed(cfg.CatalogSeedFile)
		if err != nil {
			return nil, err
		}
		reader = catalogmem.NewReader(seed)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog)
	}
	if d.rdb != nil && cfg.CatalogCacheTTL > 0 && cfg.Catalog != config.CatalogFile {
		reader = catalogredis.NewCache(d.log, d.rdb, reader, cfg.ServiceName, cfg.CatalogCacheTTL)
	}
	return reader, nil
}

func (d *deps) guard() httpx.Guard {
	if d.idem == nil {
		return httpx.NoGuard
	}
	return func(route string) func(http.Handler) http.Handler {
		return idempotency.Middleware(d.log, d.idem, route)
	}
}

func (d *deps) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth.Bearer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	guard := d.guard()
	orderhttp.NewHandler(d.log, d.orders, guard).Routes(r)
	paymenthttp.NewHandler(d.log, d.payments, guard).Routes(r)
	invoicehttp.NewHandler(d.log, d.invoices, guard).Routes(r)
	cataloghttp.NewHandler(d.log, d.catalog).Routes(r)
	return otelhttp.NewHandler(r, "fulfillment-http")
}

func (d *deps) server(cfg config.Config) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      d.router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (d *deps) consumer(cfg config.Config) (*invoicekafka.Consumer, error) {
	if d.idem == nil {
		return nil, fmt.Errorf("invoice consumer needs redis for deduplication")
	}
	reader := invoicekafka.NewReader(cfg.KafkaBrokers, cfg.InvoiceTopic, cfg.InvoiceGroup)
	return invoicekafka.NewConsumer(d.log, reader, d.invoices, d.idem), nil
}

func (d *deps) Close() {
	if d.writer != nil {
		_ = d.writer.Close()
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
