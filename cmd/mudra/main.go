// Command mudra runs the fingerspelling server: the recognition pipeline,
// the HTTP API and, optionally, the menu bar icon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/spell"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	dataDir, err := config.DataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}

	configPath := flag.String("config", filepath.Join(dataDir, "config.yaml"), "path to the YAML configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.listen_addr)")
	camera := flag.Int("camera", -1, "camera device ID; enables capture (overrides capture.camera_id)")
	showTray := flag.Bool("tray", false, "show the menu bar icon")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}
	if *camera >= 0 {
		cfg.Capture.Enabled = true
		cfg.Capture.CameraID = *camera
	}
	if *showTray {
		cfg.Tray.Enabled = true
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("mudra starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"profile", cfg.Engine.Profile,
		"capture", cfg.Capture.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Initialize the store
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		slog.Error("failed to create data directory", "dir", dataDir, "err", err)
		return 1
	}
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "mudra.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		slog.Error("failed to initialise store", "path", dbPath, "err", err)
		return 1
	}
	defer st.Close()

	dict, err := loadDictionary(cfg.Spell.Dictionary)
	if err != nil {
		slog.Error("failed to load dictionary", "err", err)
		return 1
	}
	corrector := spell.NewCorrector(dict, spell.WithMaxLengthDelta(cfg.Spell.MaxLengthDelta))

	engine, err := gesture.NewEngine(cfg.Engine.Gesture())
	if err != nil {
		slog.Error("invalid engine configuration", "err", err)
		return 1
	}

	autocorrect, err := st.Settings().GetBool(store.SettingAutocorrect, cfg.Spell.Autocorrect)
	if err != nil {
		slog.Warn("failed to read autocorrect setting", "err", err)
		autocorrect = cfg.Spell.Autocorrect
	}

	sess := session.New(engine, dict,
		session.WithCorrector(corrector),
		session.WithAutocorrect(autocorrect),
		session.WithMetrics(metrics),
	)

	// The app is created after the server so that detected hands can be
	// published on the server's event hub.
	var application *app.App
	reloadTemplates := func() {
		if application == nil {
			return
		}
		if err := application.LoadTemplates(); err != nil {
			slog.Error("failed to reload templates", "err", err)
		}
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(dataDir)
	}
	if staticDir != "" {
		slog.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:          staticDir,
		Store:              st,
		Session:            sess,
		Corrector:          corrector,
		OnTemplatesChanged: reloadTemplates,
		CaptureActive: func() bool {
			return application != nil && application.Capturing()
		},
		Metrics: metrics,
	})

	pluginDir := cfg.Plugins.Dir
	if pluginDir == "" {
		pluginDir = filepath.Join(dataDir, "plugins")
	}

	pluginSettings, err := cfg.Plugins.SettingsJSON()
	if err != nil {
		slog.Error("invalid plugin settings", "err", err)
		return 1
	}

	application, err = app.New(app.Config{
		Store:   st,
		Session: sess,
		Metrics: metrics,
		DetectorConfig: detector.Config{
			MaxHands:        cfg.Detector.MaxHands,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		},
		CameraID:        cfg.Capture.CameraID,
		Mirror:          cfg.Capture.Mirror,
		TickHz:          cfg.Capture.TickHz,
		Tolerance:       cfg.Detector.Tolerance,
		PluginDir:       pluginDir,
		SpeakPlugin:     cfg.Plugins.Speak,
		TypePlugin:      cfg.Plugins.Type,
		PluginTimeoutMS: cfg.Plugins.TimeoutMS,
		PluginSettings:  pluginSettings,
		OnHand: func(h *detector.HandLandmarks) {
			srv.Events().Publish(server.EventHand, h)
		},
	})
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Warn("application close error", "err", err)
		}
	}()

	if err := application.LoadTemplates(); err != nil {
		slog.Error("failed to load templates", "err", err)
		return 1
	}
	if err := application.DiscoverPlugins(); err != nil {
		slog.Warn("plugin discovery failed", "dir", pluginDir, "err", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.ListenAddr)
	})
	if cfg.Capture.Enabled {
		g.Go(func() error {
			return application.Run(gctx)
		})
	}

	if cfg.Tray.Enabled {
		runTray(gctx, stop, cfg, application, sess, st)
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown complete")
	return 0
}

// runTray shows the menu bar icon and blocks until it quits. Quitting the
// tray stops the whole program.
func runTray(ctx context.Context, stop context.CancelFunc, cfg *config.Config, application *app.App, sess *session.Session, st *store.Store) {
	t := tray.New(tray.Handlers{
		Toggle: application.SetEnabled,
		Autocorrect: func(enabled bool) {
			sess.SetAutocorrect(enabled)
			if err := st.Settings().SetBool(store.SettingAutocorrect, enabled); err != nil {
				slog.Warn("failed to persist autocorrect setting", "err", err)
			}
		},
		Clear: sess.Clear,
		Settings: func() {
			openBrowser(settingsURL(cfg.Server.ListenAddr))
		},
		Quit: stop,
	}, sess.Autocorrect())

	sess.OnTick(func(snap session.Snapshot) {
		t.SetBuffer(snap.Buffer)
	})
	sess.OnWord(func(w session.Word) {
		t.SetLastWord(w.Text)
	})

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func loadDictionary(path string) (*spell.Dictionary, error) {
	if path == "" {
		return spell.Default(), nil
	}
	return spell.LoadFile(path)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func settingsURL(listenAddr string) string {
	if len(listenAddr) > 0 && listenAddr[0] == ':' {
		return "http://localhost" + listenAddr
	}
	return "http://" + listenAddr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("failed to open browser", "url", url, "err", err)
	}
}

// newLogger creates a text slog.Logger writing to stderr at the given level.
func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.Slog()}))
}
