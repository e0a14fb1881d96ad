package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/routes"
	"github.com/wkalt/outline/util/log"
	"github.com/wkalt/outline/util/mw"
	"golang.org/x/sync/errgroup"
)

/*
This file is the main entrypoint for outline server startup.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	// sqlite serializes writers itself; immediate transactions take the write
	// lock at BEGIN so concurrent mutations queue instead of failing on
	// upgrade.
	defaultSQLiteDSN = "outline.db?_txlock=immediate&_busy_timeout=5000&_journal=WAL"

	shutdownGracePeriod = 10 * time.Second
)

// Outline is the outline HTTP service.
type Outline struct {
	ready chan string
}

// NewOutlineService creates a new outline service.
func NewOutlineService() *Outline {
	return &Outline{ready: make(chan string, 1)}
}

// Ready receives the listening address once the server accepts connections.
func (o *Outline) Ready() <-chan string {
	return o.ready
}

// Start runs the service until ctx is canceled or the process is interrupted,
// then shuts down gracefully.
func (o *Outline) Start(ctx context.Context, options ...Option) error {
	opts, err := readOpts(options...)
	if err != nil {
		return fmt.Errorf("failed to read options: %w", err)
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow(ctx, "Opening database", "driver", opts.Driver)
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	store, err := divisionstore.NewSQLStore(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to open division store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mgropts := []outlinemgr.Option{
		outlinemgr.WithInvariantChecks(opts.VerifyInvariants),
		outlinemgr.WithRegisterer(reg),
		outlinemgr.WithListingCache(opts.CacheSize),
	}
	if opts.SnapshotProvider != nil {
		mgropts = append(mgropts, outlinemgr.WithSnapshotProvider(opts.SnapshotProvider))
	}
	mgr := outlinemgr.NewManager(store, mgropts...)

	log.Infof(ctx, "Building routes with allowed origins %+v", opts.AllowedOrigins)
	handler := mw.WithCORSAllowedOrigins(opts.AllowedOrigins)(routes.MakeRoutes(mgr, reg, opts.SharedKey))
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow(ctx, "Starting server",
			"addr", listener.Addr().String(),
			"snapshots", opts.SnapshotProvider,
			"verify", opts.VerifyInvariants,
		)
		o.ready <- listener.Addr().String()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof(ctx, "Allowing %s for existing connections to close", shutdownGracePeriod)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Infof(ctx, "Server stopped")
		return nil
	})
	return g.Wait()
}

func readOpts(opts ...Option) (*Options, error) {
	options := Options{
		Port:   8089,
		Driver: "sqlite3",
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8080",
		},
	}
	for _, opt := range opts {
		opt(&options)
	}
	switch options.Driver {
	case "sqlite3":
		if options.DSN == "" {
			options.DSN = defaultSQLiteDSN
		}
	case "postgres":
		if options.DSN == "" {
			return nil, errors.New("postgres requires a data source name")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", options.Driver)
	}
	return &options, nil
}
