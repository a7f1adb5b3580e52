package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"missiontl/internal/cache"
	"missiontl/internal/capture"
	"missiontl/internal/config"
	"missiontl/internal/events"
	"missiontl/internal/ics"
	appLog "missiontl/internal/log"
	"missiontl/internal/refresh"
	"missiontl/internal/source"
	"missiontl/internal/timeline"
	"missiontl/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
}

func main() {
	appLog.Info("missiontl starting", "version", "0.1.0")

	flags := parseFlags()

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(flags.envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Error("failed to load env file", err, "path", flags.envPath)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv(os.Getenv)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"bands", len(conf.Bands),
		"ics_count", len(conf.ICS),
		"mysql", conf.MySQL != nil,
		"redis", conf.Redis != nil,
		"amqp", conf.AMQP != nil,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("missiontl failed", err)
		os.Exit(1)
	}
	appLog.Info("missiontl exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	renderCache := openCache(ctx, conf)
	defer renderCache.Close()

	pub := openPublisher(conf)
	defer pub.Close()

	registry, closeSources, err := openSources(conf)
	if err != nil {
		return err
	}
	defer closeSources()

	tl, err := timeline.Build(conf, nil, timeline.Options{Publisher: pub})
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; using UTC", err, "name", conf.Timezone)
		loc = time.UTC
	}
	opts := refresh.Options{Cache: renderCache, Location: loc}

	if flags.once {
		// There is no HTTP server to capture, so write the raster render.
		if conf.Snapshot.Enabled {
			opts.Snapshot = func(context.Context) error {
				var buf bytes.Buffer
				if err := tl.RenderPNG(&buf); err != nil {
					return err
				}
				return capture.WriteFile(conf.Snapshot.Path, buf.Bytes())
			}
		}
		return refresh.New(conf, tl, registry, opts).RunOnce(ctx)
	}

	if conf.Snapshot.Enabled {
		opts.Snapshot = snapshotFunc(conf)
	}
	sched := refresh.New(conf, tl, registry, opts)

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, tl, web.Options{Cache: renderCache, Refresh: sched}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// The first load runs in the background so the server answers at once.
	go func() {
		if err := sched.RunOnce(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
	}()
	if err := sched.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/missiontl/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to an optional .env file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh (+snapshot) cycle and exit")

	flag.Parse()

	return cfg
}

// openCache prefers redis and falls back to the in-memory cache.
func openCache(ctx context.Context, conf *config.Config) cache.Cache {
	if conf.Redis != nil && conf.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB, conf.Redis.Prefix)
		if err == nil {
			appLog.Info("render cache: redis", "addr", conf.Redis.Addr)
			return rc
		}
		appLog.Error("redis unavailable; using memory cache", err, "addr", conf.Redis.Addr)
	}
	return cache.NewMemory()
}

// openPublisher prefers AMQP and falls back to logging events.
func openPublisher(conf *config.Config) events.Publisher {
	if conf.AMQP != nil && conf.AMQP.URL != "" {
		p, err := events.DialAMQP(conf.AMQP.URL, conf.AMQP.Exchange)
		if err == nil {
			appLog.Info("event sink: amqp", "exchange", conf.AMQP.Exchange)
			return p
		}
		appLog.Error("amqp unavailable; logging events", err)
	}
	return events.NewLogPublisher()
}

func openSources(conf *config.Config) (*source.Registry, func(), error) {
	r := source.NewRegistry()
	r.Register("static", source.Static{})
	source.NewICS(ics.NewFetcher(filepath.Join(conf.CacheDir, "ics"), nil), conf.ICS).Register(r)

	closeFn := func() {}
	if conf.MySQL != nil && conf.MySQL.DSN != "" {
		db, err := source.OpenMySQL(conf.MySQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		r.Register("mysql", db)
		closeFn = func() { db.Close() }
	}
	return r, closeFn, nil
}

// snapshotFunc captures the served page through headless Chromium.
func snapshotFunc(conf *config.Config) func(context.Context) error {
	return func(ctx context.Context) error {
		u := conf.Snapshot.URL
		if u == "" {
			u = "http://" + localAddr(conf.Listen) + "/"
			if b := conf.Auth.Basic; b != nil && b.Username != "" {
				pu, _ := url.Parse(u)
				pu.User = url.UserPassword(b.Username, b.Password)
				u = pu.String()
			}
		}
		png, err := capture.CapturePNG(ctx, capture.Options{
			URL:     u,
			Width:   int(conf.View.Width),
			Timeout: time.Duration(conf.Snapshot.Timeout) * time.Second,
		})
		if err != nil {
			return err
		}
		return capture.WriteFile(conf.Snapshot.Path, png)
	}
}

// localAddr turns a wildcard listen address into one a local browser can
// reach.
func localAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
