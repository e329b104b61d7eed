// Command cartctl operates the cart engine: it applies migrations, inspects
// and edits user carts, lists the catalog and serves cart metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pagboka/cis485-patfutbol/internal"
	"github.com/pagboka/cis485-patfutbol/internal/catalog"
	"github.com/pagboka/cis485-patfutbol/internal/keylock"
	"github.com/pagboka/cis485-patfutbol/internal/migrations"
	"github.com/pagboka/cis485-patfutbol/internal/repository"
	"github.com/pagboka/cis485-patfutbol/internal/service"
	"github.com/pagboka/cis485-patfutbol/internal/session"
	"github.com/pagboka/cis485-patfutbol/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const usage = `usage: cartctl <command> [flags]

commands:
  migrate                          apply database migrations
  show    -user ID                 print a user's cart
  add     -user ID -item ID [-qty N]  add a catalog product to a user's cart
  set     -user ID -item ID -qty N    set a line quantity (0 removes it)
  remove  -user ID -item ID        remove a line
  clear   -user ID                 empty a user's cart
  catalog [-league NAME]           list catalog products
  serve                            serve /metrics, reload the catalog on SIGHUP
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "cartctl:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *internal.Config
	logger  *zap.Logger
	reg     *prometheus.Registry
	metrics *telemetry.CartMetrics
	catalog *catalog.Catalog
	carts   *service.CartService
	close   func()
}

var commands = map[string]bool{
	"migrate": true, "show": true, "add": true, "set": true,
	"remove": true, "clear": true, "catalog": true, "serve": true,
}

func run(command string, args []string, out io.Writer) error {
	if !commands[command] {
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	user := fs.String("user", "", "user id")
	item := fs.String("item", "", "item id")
	qty := fs.Int("qty", 1, "quantity")
	league := fs.String("league", "", "league filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, command != "catalog")
	if err != nil {
		return err
	}
	defer a.close()

	owner := func() (string, error) {
		if *user == "" {
			return "", errors.New("-user is required")
		}
		return *user, nil
	}

	switch command {
	case "migrate":
		return nil // applied by newApp

	case "show":
		userID, err := owner()
		if err != nil {
			return err
		}
		return a.show(ctx, out, userID)

	case "add":
		userID, err := owner()
		if err != nil {
			return err
		}
		cart, err := a.carts.AddCatalogItem(ctx, durable(userID), *item, *qty)
		if err != nil {
			return err
		}
		return printCart(out, cart)

	case "set":
		userID, err := owner()
		if err != nil {
			return err
		}
		cart, err := a.carts.UpdateQuantity(ctx, durable(userID), *item, *qty)
		if err != nil {
			return err
		}
		return printCart(out, cart)

	case "remove":
		userID, err := owner()
		if err != nil {
			return err
		}
		if err := a.carts.RemoveItem(ctx, durable(userID), *item); err != nil {
			return err
		}
		return a.show(ctx, out, userID)

	case "clear":
		userID, err := owner()
		if err != nil {
			return err
		}
		return a.carts.ClearCart(ctx, durable(userID))

	case "catalog":
		return a.listCatalog(out, *league)

	default: // serve
		return a.serve(ctx)
	}
}

func newApp(ctx context.Context, withDatabase bool) (*app, error) {
	bootLogger, _ := internal.NewLogger("dev", "info")

	cfg, err := internal.NewConfig(bootLogger)
	if err != nil {
		return nil, fmt.Errorf("internal.NewConfig: %w", err)
	}

	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("internal.NewLogger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		reg:     reg,
		metrics: telemetry.NewCartMetrics("", reg),
		close:   func() { _ = logger.Sync() },
	}

	a.catalog = catalog.New(cfg.CatalogDir, catalog.DefaultSources, cfg.Currency, logger.Named("catalog"))
	n, err := a.catalog.Reload()
	a.metrics.ObserveCatalog(n, err)
	if err != nil {
		logger.Warn("catalog loaded with errors", zap.Error(err))
	}

	if !withDatabase {
		return a, nil
	}

	pool, err := internal.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("internal.NewPool: %w", err)
	}
	a.close = func() {
		pool.Close()
		_ = logger.Sync()
	}

	if err := migrations.Up(ctx, pool); err != nil {
		a.close()
		return nil, fmt.Errorf("migrations.Up: %w", err)
	}

	durableCarts, err := repository.NewCart(pool, cfg.Database.StorageTimeout)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("repository.NewCart: %w", err)
	}

	sessions := session.NewMemoryStore()
	guestCarts, err := repository.NewSessionCart(sessions, keylock.New())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("repository.NewSessionCart: %w", err)
	}

	a.carts, err = service.NewCartService(durableCarts, guestCarts, sessions, logger,
		service.WithCatalog(a.catalog),
		service.WithMetrics(a.metrics),
		service.WithCurrency(cfg.Currency),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("service.NewCartService: %w", err)
	}

	return a, nil
}
