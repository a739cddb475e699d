package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/leadmaster/internal/api"
	"github.com/ppiankov/leadmaster/internal/notify"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr          string
	serveLookupTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API used by the dashboard",
	Long: `Serve exposes lookups, scans, prospects, signals and permit notices over
HTTP. One broad scan runs at a time; its progress is polled from
/api/scans/:id and, when notify.nats_url is set, also published to NATS.

Example:
  leadmaster serve
  leadmaster serve --addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveLookupTimeout, "lookup-timeout", 2*time.Minute, "timeout for a single lookup request")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fetcher, err := newPermitFetcher(rt.cfg.Search.RequestsPerSecond, rt.cfg.Search.Concurrency)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	progress := notify.Log(zap.L())
	if rt.cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(rt.cfg.Notify.NATSURL, rt.cfg.Notify.Subject)
		if err != nil {
			zap.L().Warn("progress publishing disabled", zap.Error(err))
		} else {
			defer func() { _ = pub.Close() }()
			progress = notify.Multi(progress, pub.Progress())
		}
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(ctx, rt.pipeline, rt.store, fetcher, api.Options{
		Progress:      progress,
		LookupTimeout: serveLookupTimeout,
	})

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api listening", zap.String("addr", serveAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = httpServer.Shutdown(shutdownCtx)
	srv.WaitScans()
	if err != nil {
		return eris.Wrap(err, "serve: shutdown")
	}
	return nil
}
