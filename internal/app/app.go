// Package app wires the camera, hand detector, letter classifier and
// fingerspelling session into the running application.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// Defaults applied when Config leaves a value unset.
const (
	DefaultTickHz          = 20
	DefaultPluginTimeoutMS = 5000

	wordQueueSize = 16
)

// ErrNoSession is returned by New when Config.Session is nil.
var ErrNoSession = errors.New("app: session is required")

// Config holds configuration options for the application.
type Config struct {
	Store   *store.Store
	Session *session.Session
	Metrics *observe.Metrics

	// Camera and Detector override the device camera and MediaPipe detector.
	Camera         capture.Camera
	Detector       detector.Detector
	DetectorConfig detector.Config
	CameraID       int
	// Mirror flips device frames horizontally.
	Mirror bool

	// TickHz is the fixed rate at which frames become observations.
	TickHz int

	// Tolerance is used for templates stored without one.
	Tolerance float64

	PluginDir       string
	SpeakPlugin     string
	TypePlugin      string
	PluginTimeoutMS int
	// PluginSettings is sent as the request config to the plugin of the same name.
	PluginSettings map[string]json.RawMessage

	// OnHand, if set, receives the hand seen on each tick, or nil.
	OnHand func(*detector.HandLandmarks)
}

// App is the main application that turns camera frames into words.
type App struct {
	config     Config
	session    *session.Session
	camera     capture.Camera
	detector   detector.Detector
	classifier *classify.TemplateClassifier
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	metrics    *observe.Metrics

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	wordsMu  sync.Mutex
	words    chan session.Word
	closed   bool
	wordsWG  sync.WaitGroup
	closeOne sync.Once
}

// New creates an App and subscribes it to the session's committed words.
// Call Close to release the camera, the detector and the word worker.
func New(config Config) (*App, error) {
	if config.Session == nil {
		return nil, ErrNoSession
	}
	if config.TickHz <= 0 {
		config.TickHz = DefaultTickHz
	}
	if config.PluginTimeoutMS <= 0 {
		config.PluginTimeoutMS = DefaultPluginTimeoutMS
	}
	if config.Tolerance <= 0 {
		config.Tolerance = classify.DefaultTolerance
	}

	a := &App{
		config:     config,
		session:    config.Session,
		camera:     config.Camera,
		detector:   config.Detector,
		classifier: classify.NewTemplateClassifier(),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(config.PluginTimeoutMS),
		metrics:    config.Metrics,
		enabled:    true,
		words:      make(chan session.Word, wordQueueSize),
	}
	for name, settings := range config.PluginSettings {
		a.pluginMgr.Configure(name, settings)
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraID,
			capture.WithFPS(config.TickHz),
			capture.WithMirror(config.Mirror),
		)
	}

	if a.detector == nil {
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			slog.Info("using MediaPipe hand detection")
		} else {
			slog.Warn("MediaPipe not available, using mock detector", "err", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.wordsWG.Add(1)
	go a.wordWorker()
	a.session.OnWord(a.HandleWord)

	return a, nil
}

// SetEnabled enables or disables recognition. Disabled ticks are skipped.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Capturing reports whether the tick loop is running and recognition is enabled.
func (a *App) Capturing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil && a.enabled
}

// LoadTemplates replaces the classifier's templates with the ones in the store.
// Templates with an unknown label or without trained landmarks are skipped.
func (a *App) LoadTemplates() error {
	if a.config.Store == nil {
		return nil
	}

	stored, err := a.config.Store.Templates().List()
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	templates := make([]*classify.Template, 0, len(stored))
	for _, t := range stored {
		label, ok := gesture.ParseLabel(t.Label)
		if !ok {
			slog.Warn("skipping template with unknown label", "id", t.ID, "label", t.Label)
			continue
		}

		landmarks, err := a.config.Store.Templates().GetLandmarks(t.ID)
		if err != nil {
			slog.Warn("failed to load landmarks", "label", t.Label, "err", err)
			continue
		}
		if len(landmarks) == 0 {
			continue
		}

		tolerance := t.Tolerance
		if tolerance <= 0 {
			tolerance = a.config.Tolerance
		}

		templates = append(templates, &classify.Template{
			ID:        t.ID,
			Label:     label,
			Landmarks: storeLandmarksToDetector(landmarks),
			Tolerance: tolerance,
		})
	}

	a.classifier.SetTemplates(templates)
	slog.Info("loaded templates", "count", a.classifier.Len(), "stored", len(stored))
	return nil
}

// storeLandmarksToDetector converts store.Landmark slice to detector.Point3D slice.
func storeLandmarksToDetector(landmarks []store.Landmark) []detector.Point3D {
	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return points
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return err
	}
	for _, name := range []string{a.config.SpeakPlugin, a.config.TypePlugin} {
		if name == "" {
			continue
		}
		if _, err := a.pluginMgr.Get(name); err != nil {
			slog.Warn("configured plugin not found", "plugin", name, "dir", a.pluginMgr.PluginDir())
		}
	}
	return nil
}

// HandleWord queues a committed word for storage and the output plugins.
// It never blocks the tick loop; when the queue is full or the app is closed
// the word is dropped.
func (a *App) HandleWord(w session.Word) {
	a.wordsMu.Lock()
	defer a.wordsMu.Unlock()
	if a.closed {
		slog.Debug("app closed, dropping word", "word", w.Text)
		return
	}
	select {
	case a.words <- w:
	default:
		slog.Warn("word queue full, dropping word", "word", w.Text)
	}
}

func (a *App) wordWorker() {
	defer a.wordsWG.Done()
	for w := range a.words {
		a.deliver(context.Background(), w)
	}
}

// deliver stores w and sends it to the configured plugins in order.
func (a *App) deliver(ctx context.Context, w session.Word) {
	if a.config.Store != nil {
		err := a.config.Store.Words().Create(&store.Word{
			SessionID: a.session.ID(),
			Raw:       w.Raw,
			Word:      w.Text,
			Corrected: w.Corrected,
			Distance:  w.Distance,
			CreatedAt: w.At,
		})
		if err != nil {
			slog.Error("failed to store word", "word", w.Text, "err", err)
		}
	}

	req := &plugin.Request{
		Action:    plugin.ActionWord,
		Word:      w.Text,
		Original:  w.Raw,
		Corrected: w.Corrected,
		Session:   a.session.ID(),
	}
	for _, name := range []string{a.config.SpeakPlugin, a.config.TypePlugin} {
		if name == "" {
			continue
		}
		if _, err := a.pluginMgr.Run(ctx, a.pluginExec, name, req); err != nil {
			slog.Warn("plugin failed", "plugin", name, "word", w.Text, "err", err)
			if a.metrics != nil {
				a.metrics.RecordPluginError(ctx, name)
			}
		}
	}
}

// Start opens the camera and begins the tick loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.TickHz)

	a.stopCh = make(chan struct{})
	a.loopWG.Add(1)
	go a.runPipeline(a.stopCh)

	slog.Info("recognition pipeline started", "tick_hz", a.config.TickHz)
	return nil
}

// Stop halts the tick loop and closes the camera. It can be restarted.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh := a.stopCh
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	a.loopWG.Wait()

	if err := a.camera.Close(); err != nil {
		slog.Warn("error closing camera", "err", err)
	}

	slog.Info("recognition pipeline stopped")
}

// Run starts the pipeline and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	a.Stop()
	return nil
}

// Close stops the pipeline, drains queued words and releases the detector.
func (a *App) Close() error {
	a.Stop()

	var err error
	a.closeOne.Do(func() {
		a.wordsMu.Lock()
		a.closed = true
		close(a.words)
		a.wordsMu.Unlock()
		a.wordsWG.Wait()
		if a.detector != nil {
			err = a.detector.Close()
		}
	})
	return err
}

// Session returns the session fed by the pipeline.
func (a *App) Session() *session.Session {
	return a.session
}

// Classifier returns the letter classifier.
func (a *App) Classifier() *classify.TemplateClassifier {
	return a.classifier
}

// TickInterval returns the time between ticks.
func (a *App) TickInterval() time.Duration {
	return time.Second / time.Duration(a.config.TickHz)
}
