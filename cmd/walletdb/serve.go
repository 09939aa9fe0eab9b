package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"goa.design/clue/health"
	"goa.design/clue/log"

	walletmongo "github.com/guildwallet/walletdb/store/mongo"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var healthAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Hold the store connection open until interrupted",
		Long: `Connects to the wallet database, serves /livez and /healthz on the
health address and closes the connection on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx, healthAddr)
		},
	}
	cmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "Health check listen address (empty disables)")
	return cmd
}

// serve connects the store and blocks until ctx is done, then closes the
// store.
func (a *app) serve(ctx context.Context, healthAddr string) error {
	s, cfg, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore(ctx, s)

	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Redacted(), err)
	}
	log.Print(ctx, log.KV{K: "msg", V: "connected"}, log.KV{K: "uri", V: cfg.Redacted()})

	errc := make(chan error, 1)
	var srv *http.Server
	if healthAddr != "" {
		srv = &http.Server{
			Addr:              healthAddr,
			Handler:           log.HTTP(ctx)(healthMux(s)),
			ReadHeaderTimeout: time.Second * 60,
		}
		go func() {
			log.Printf(ctx, "health server listening on %q", healthAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf(ctx, "exiting (%v)", context.Cause(ctx))
	case err := <-errc:
		return fmt.Errorf("health server: %w", err)
	}

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf(ctx, "failed to shutdown: %v", err)
		}
	}
	return nil
}

// closeStore closes s under its own deadline, ignoring cancellation of ctx.
func closeStore(ctx context.Context, s *walletmongo.Store) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		log.Errorf(ctx, err, "close store")
	}
}

func healthMux(s *walletmongo.Store) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/livez", health.Handler(health.NewChecker()))
	mux.Handle("/healthz", health.Handler(health.NewChecker(s)))
	return mux
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *walletmongo.Store) error {
				if err := s.Ping(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			})
		},
	}
}
