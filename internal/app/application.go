package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"go1090tx/internal/basestation"
	"go1090tx/internal/beast"
	"go1090tx/internal/logging"
	"go1090tx/internal/sim"
	"go1090tx/internal/transport"
)

// Archive file prefixes
const (
	frameLogPrefix = "frames"
	truthLogPrefix = "truth"
)

// Application represents the main application
type Application struct {
	config  Config
	logger  *logrus.Logger
	logFile *lumberjack.Logger
	format  beast.Format
	metrics *Metrics
	stats   Stats

	frameLog    *logging.LogRotator
	truthLog    *logging.LogRotator
	baseStation *basestation.Writer
	generators  []*generator

	metricsServer   *http.Server
	metricsListener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan error
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	app := &Application{
		config:  config,
		logger:  logger,
		metrics: NewMetrics(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan error, 1),
	}

	if config.LogFile != "" {
		app.logFile = &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, app.logFile))
	}

	return app
}

// Logger returns the application logger
func (app *Application) Logger() *logrus.Logger {
	return app.logger
}

// Metrics returns the application's metric collectors
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// Stats returns the running totals
func (app *Application) Stats() *Stats {
	return &app.stats
}

// MetricsAddr returns the bound metrics address, empty when disabled
func (app *Application) MetricsAddr() string {
	if app.metricsListener == nil {
		return ""
	}
	return app.metricsListener.Addr().String()
}

// Start runs the application until SIGINT or SIGTERM
func (app *Application) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-sigChan:
			app.logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return app.Run(ctx)
}

// Run starts every component and blocks until ctx is done or a generator
// fails, then shuts down
func (app *Application) Run(ctx context.Context) error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting ADS-B frame generator")

	if err := app.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		app.closeResources()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	app.run()

	var err error
	select {
	case <-ctx.Done():
	case err = <-app.done:
		if err != nil {
			app.logger.WithError(err).Error("Application error")
		}
	}

	app.shutdown()
	return err
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	var err error

	app.format, err = beast.ParseFormat(app.config.Format)
	if err != nil {
		return err
	}

	if app.config.ArchiveDir != "" {
		app.frameLog, err = logging.NewLogRotator(app.config.ArchiveDir, frameLogPrefix, app.config.ArchiveUTC, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize frame archive: %w", err)
		}

		app.truthLog, err = logging.NewLogRotator(app.config.ArchiveDir, truthLogPrefix, app.config.ArchiveUTC, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize truth archive: %w", err)
		}

		app.frameLog.SetMaxDays(app.config.ArchiveMaxDays)
		app.truthLog.SetMaxDays(app.config.ArchiveMaxDays)

		app.baseStation = basestation.NewWriter(app.truthLog, app.logger)
	}

	if app.config.MetricsAddr != "" {
		app.metricsListener, err = net.Listen("tcp", app.config.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on metrics address: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		app.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	seed := app.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	for i, center := range app.config.Centers {
		rng := rand.New(rand.NewSource(seed + int64(i)))

		g := &generator{
			center:  center,
			fleet:   sim.NewFleet(center, app.config.Aircraft, rng, app.config.RadiusKm, app.logger),
			client:  transport.NewClient(app.config.Address(), app.logger),
			encoder: beast.NewEncoder(app.format),
			config:  app.config,
			logger:  app.logger,
			metrics: app.metrics,
			stats:   &app.stats,
			truth:   app.baseStation,
		}
		if app.frameLog != nil {
			g.frameLog = app.frameLog
		}
		app.generators = append(app.generators, g)

		app.logger.WithFields(logrus.Fields{
			"center":   center.Name,
			"lat":      center.Latitude,
			"lon":      center.Longitude,
			"aircraft": app.config.Aircraft,
		}).Info("Center configured")
	}

	return nil
}

// run launches the generators and support goroutines
func (app *Application) run() {
	app.logger.WithFields(logrus.Fields{
		"receiver": app.config.Address(),
		"format":   app.format.String(),
		"centers":  len(app.generators),
	}).Info("Starting generators")

	eg, egCtx := errgroup.WithContext(app.ctx)
	for _, g := range app.generators {
		g := g
		eg.Go(func() error {
			return g.run(egCtx)
		})
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.done <- eg.Wait()
	}()

	for _, r := range []*logging.LogRotator{app.frameLog, app.truthLog} {
		if r == nil {
			continue
		}
		r := r
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			r.Start(app.ctx)
		}()
	}

	if app.metricsServer != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.logger.WithField("addr", app.MetricsAddr()).Info("Serving metrics")
			if err := app.metricsServer.Serve(app.metricsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics()
	}()
}

// reportStatistics reports generator statistics periodically
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(app.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.logStatistics()
		}
	}
}

func (app *Application) logStatistics() {
	aircraft := 0
	for _, g := range app.generators {
		aircraft += g.fleet.Len()
	}

	app.logger.WithFields(logrus.Fields{
		"frames_sent": humanize.Comma(int64(app.stats.FramesSent.Load())),
		"bytes_sent":  humanize.Bytes(app.stats.BytesSent.Load()),
		"reconnects":  app.stats.Reconnects.Load(),
		"send_errors": app.stats.SendErrors.Load(),
		"aircraft":    aircraft,
	}).Info("Generator statistics")
}

// shutdown gracefully shuts down the application
func (app *Application) shutdown() {
	app.logger.Info("Shutting down application")
	app.cancel()

	if app.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			app.logger.WithError(err).Warn("Failed to shut down metrics server")
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("All goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	app.logStatistics()
	app.closeResources()

	app.logger.Info("Shutdown completed")
}

func (app *Application) closeResources() {
	if app.frameLog != nil {
		app.frameLog.Close()
	}
	if app.truthLog != nil {
		app.truthLog.Close()
	}
	if app.metricsServer == nil && app.metricsListener != nil {
		app.metricsListener.Close()
	}
	if app.logFile != nil {
		app.logFile.Close()
	}
}
