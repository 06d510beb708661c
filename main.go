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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/mail"
	"github.com/Zachkp/portfolio/internal/metrics"
	"github.com/Zachkp/portfolio/internal/session"
	"github.com/Zachkp/portfolio/internal/visitors"
	"github.com/Zachkp/portfolio/internal/web"
)

// ServeFlags override values from the environment.
type ServeFlags struct {
	ListenAddr string
	LogLevel   string
}

func (f *ServeFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ListenAddr, "listen", f.ListenAddr, "The address to serve the portfolio on (default :$PORT)")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Log level (trace,debug,info,warn,error) (default $LOG_LEVEL)")
}

func NewServeCommand() *cobra.Command {
	f := &ServeFlags{}

	cmd := &cobra.Command{
		Use:          "portfolio",
		Short:        "Serve the portfolio site",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if f.LogLevel != "" {
				cfg.Server.LogLevel = f.LogLevel
			}
			if err := setupLogging(cfg.Server.LogLevel); err != nil {
				return err
			}
			addr := ":" + cfg.Server.Port
			if f.ListenAddr != "" {
				addr = f.ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, addr)
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("cannot parse log-level: %w", err)
	}
	log.SetLevel(lvl)
	log.Debug("debug logging enabled")

	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	gin.DefaultWriter = log.StandardLogger().WriterLevel(log.DebugLevel)
	gin.DefaultErrorWriter = log.StandardLogger().WriterLevel(log.ErrorLevel)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, addr string) error {
	gin.SetMode(cfg.Server.GinMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg)

	sessions := session.NewRegistry(session.Config{
		TTL:        cfg.Session.TTL,
		Sweep:      cfg.Session.Sweep,
		DateLayout: cfg.Session.DateLayout,
		Observer:   collector,
	})
	defer sessions.Close()
	collector.TrackActiveSessions(sessions.Len)

	store, err := visitors.Open(cfg.Visitors.DBPath)
	if err != nil {
		return fmt.Errorf("open visitor log: %w", err)
	}
	defer store.Close()

	tracker, err := visitors.NewTracker(store, 0)
	if err != nil {
		return err
	}
	admin, err := visitors.NewAdmin(store, tracker, sessions.Stats, visitors.AdminConfig{
		Username:  cfg.Admin.Username,
		Password:  cfg.Admin.Password,
		Retention: cfg.Visitors.Retention,
	})
	if err != nil {
		tracker.Close()
		return err
	}
	go admin.RunCleanup(ctx)

	srv, err := web.New(web.Options{
		Content:     siteContent,
		Sessions:    sessions,
		Mailer:      mail.New(cfg.SMTP),
		Metrics:     collector,
		Tracker:     tracker,
		Admin:       admin,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		tracker.Close()
		return err
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("serving portfolio")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = httpServer.Shutdown(shutdownCtx)
	}
	tracker.Close()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func main() {
	if err := NewServeCommand().Execute(); err != nil {
		log.WithError(err).Fatal("could not execute root command")
	}
}
