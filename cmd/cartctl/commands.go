package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pagboka/cis485-patfutbol/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func durable(userID string) domain.OwnerKey {
	return domain.DurableOwner(userID)
}

func (a *app) show(ctx context.Context, out io.Writer, userID string) error {
	cart, err := a.carts.GetCart(ctx, durable(userID))
	if err != nil {
		return err
	}
	return printCart(out, cart)
}

func printCart(out io.Writer, cart domain.Cart) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tLEAGUE\tQTY\tUNIT PRICE\tLINE TOTAL")
	for _, item := range cart.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			item.ItemID, item.League, item.Quantity, item.UnitPrice, item.UnitPrice.Mul(item.Quantity))
	}

	total, err := cart.Total()
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", cart.ItemCount(), total.Amount.StringFixed(2))

	return tw.Flush()
}

func (a *app) listCatalog(out io.Writer, league string) error {
	leagues := a.catalog.Leagues()
	if league != "" {
		leagues = []string{league}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLEAGUE\tNAME\tPRICE")
	for _, l := range leagues {
		for _, p := range a.catalog.ByLeague(l) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.League, p.Name, p.Price)
		}
	}
	return tw.Flush()
}

// serve exposes /metrics until ctx is done and reloads the catalog on SIGHUP.
func (a *app) serve(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				n, err := a.catalog.Reload()
				a.metrics.ObserveCatalog(n, err)
				if err != nil {
					a.logger.Warn("catalog reloaded with errors", zap.Error(err))
				}
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{Registry: a.reg}))

	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server listening", zap.String("addr", a.cfg.MetricsAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
