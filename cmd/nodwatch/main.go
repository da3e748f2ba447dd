package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/nodwatch/internal/app"
	"github.com/ayusman/nodwatch/internal/config"
	"github.com/ayusman/nodwatch/internal/logging"
	"github.com/ayusman/nodwatch/internal/metrics"
	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/plugin"
	"github.com/ayusman/nodwatch/internal/sensor"
	"github.com/ayusman/nodwatch/internal/server"
	"github.com/ayusman/nodwatch/internal/store"
	"github.com/ayusman/nodwatch/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	replayID := flag.String("replay", "", "replay a stored recording through the engine and exit")
	withTray := flag.Bool("tray", false, "show a system tray menu")
	flag.Parse()

	if err := run(*configPath, *replayID, *withTray); err != nil {
		slog.Error("nodwatch failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Defaults()
		return cfg, config.Validate(cfg)
	}
	return config.Load(path)
}

func run(configPath, replayID string, withTray bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)
	for _, w := range config.Warnings(cfg) {
		slog.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		mp, shutdown, err := metrics.InitProvider()
		if err != nil {
			return err
		}
		defer shutdown(context.Background())

		if m, err = metrics.New(mp); err != nil {
			return err
		}
		metricsHandler = promhttp.Handler()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	plugins := plugin.NewManager(cfg.Plugins.Dir)
	if err := plugins.Discover(); err != nil {
		slog.Warn("plugin discovery failed", "dir", cfg.Plugins.Dir, "err", err)
	}

	extractor, err := orientation.NewExtractor(cfg.Sensor.Extractor, cfg.Sensor.ArmDisplacementDegrees)
	if err != nil {
		return err
	}

	var sources []sensor.Source
	if cfg.Sensor.MQTT != nil {
		sources = append(sources, sensor.NewMQTTSource(*cfg.Sensor.MQTT, nil))
	}
	if cfg.Sensor.Serial != nil {
		sources = append(sources, sensor.NewSerialSource(*cfg.Sensor.Serial, nil))
	}

	hub := server.NewHub()
	application, err := app.New(app.Config{
		Store:     st,
		Engine:    cfg.Engine,
		Extractor: extractor,
		Sources:   sources,
		Plugins:   plugins,
		Executor:  plugin.NewExecutor(cfg.Plugins.Timeout),
		Metrics:   m,
		Events:    hub,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	if cfg.Broadcasts != nil {
		b := sensor.NewMQTTBroadcasts(*cfg.Broadcasts, application.Bus(), nil)
		if err := b.Start(); err != nil {
			slog.Warn("eye-gesture broadcasts unavailable", "broker", cfg.Broadcasts.Broker, "err", err)
		} else {
			defer b.Stop()
		}
	}

	if replayID != "" {
		return replay(ctx, application, replayID)
	}

	if err := application.Resume(); err != nil {
		slog.Warn("could not resume listening", "err", err)
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		slog.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      st,
		Controller: application,
		Replayer:   application,
		Plugins:    plugins,
		Hub:        hub,
		Sensor:     application.Push(),
		Bus:        application.Bus(),
		Metrics:    metricsHandler,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})

	if withTray {
		runTray(gctx, stop, application, dashboardURL(cfg.Server.Addr))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("nodwatch stopped")
	return nil
}

// runTray blocks on the tray's event loop until the user quits or ctx ends.
func runTray(ctx context.Context, quit context.CancelFunc, application *app.App, url string) {
	tr := tray.New(application.Listening())
	tr.OnToggle(func(listening bool) {
		var err error
		if listening {
			err = application.Start()
		} else {
			err = application.Stop()
		}
		if err != nil {
			slog.Error("toggle listening failed", "listening", listening, "err", err)
			tr.SetListening(application.Listening())
		}
	})
	tr.OnDashboard(func() {
		if err := openBrowser(url); err != nil {
			slog.Warn("could not open dashboard", "url", url, "err", err)
		}
	})
	tr.OnQuit(quit)
	application.SetNotifier(tr)

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()
	tr.Run()
	quit()
}

func replay(ctx context.Context, application *app.App, id string) error {
	stats, err := application.ReplayBatch(ctx, id, 0)
	if err != nil {
		return err
	}
	application.Close()
	fmt.Printf("replayed %s: %d samples, %d nods, %d head-shakes\n", id, stats.Samples, stats.Nods, stats.HeadShakes)
	return nil
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.nodwatch/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".nodwatch", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
