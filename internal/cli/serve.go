package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-backend/internal/library/borrowing"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("starting", zap.String("mode", cfg.Mode), zap.String("version", cfg.Version))

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected to DB", zap.String("dbname", cfg.DB.DBName))

	a := newApp(cfg, log, conn, clock.Real{Loc: cfg.Location()})

	stop := make(chan struct{})
	defer close(stop)
	a.limiter.StartCleanup(time.Minute, stop)

	var sweeper *borrowing.Sweeper
	if cfg.Library.OverdueSweep != "" {
		sweeper, err = borrowing.NewSweeper(a.borrowing, cfg.Library.OverdueSweep, cfg.Location(), log)
		if err != nil {
			return err
		}
		sweeper.Start()
		log.Info("overdue sweeper scheduled", zap.String("spec", cfg.Library.OverdueSweep))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cert, key := cfg.TLSFiles()
		if cert != "" {
			log.Info("listening (TLS)", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServeTLS(cert, key)
			return
		}
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-quit:
	}

	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if sweeper != nil {
		sweeper.Stop(ctx)
	}
	return srv.Shutdown(ctx)
}
