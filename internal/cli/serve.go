package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/foodgram/internal/api"
	"github.com/eleven-am/foodgram/internal/kitchen"
	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/internal/media"
	"github.com/eleven-am/foodgram/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the recipe API under /api, Prometheus metrics on /metrics and a
database health check on /healthz. Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// buildHandler wires storage, media and the kitchen service behind the
// HTTP router.
func buildHandler(ctx context.Context, st *store.Store, reg *prometheus.Registry) (http.Handler, error) {
	images, err := media.New(ctx, config.Media.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to configure media storage: %w", err)
	}

	svcOpts := []kitchen.Option{kitchen.WithPageSize(config.PageSize)}
	apiOpts := []api.Option{
		api.WithRegistry(reg),
		api.WithHealthCheck(st.Ping),
		api.WithRequestTimeout(config.Server.RequestTimeout),
	}
	if images != nil {
		svcOpts = append(svcOpts, kitchen.WithImageStore(images))
	}
	if fs, ok := images.(*media.FSStore); ok {
		apiOpts = append(apiOpts, api.WithMediaDir(config.Media.URLPrefix, fs.Root()))
	}

	return api.NewServer(kitchen.NewService(st, svcOpts...), apiOpts...)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.CLI()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	queryMetrics, err := store.NewQueryMetrics(reg)
	if err != nil {
		return fmt.Errorf("failed to register query metrics: %w", err)
	}
	st, err := store.New(db, store.LoggingMiddleware(), queryMetrics.Middleware())
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	handler, err := buildHandler(ctx, st, reg)
	if err != nil {
		return err
	}

	addr := config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       config.Server.ReadTimeout,
		ReadHeaderTimeout: config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
