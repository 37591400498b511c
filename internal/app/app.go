// Package app wires the process together: config, logger, store, bus,
// detection engine, vision client, per-camera capture/buffer pipelines,
// the event orchestrator, and the local HTTP surface.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sentrycore/internal/buffer"
	"sentrycore/internal/bus"
	"sentrycore/internal/capture"
	"sentrycore/internal/config"
	"sentrycore/internal/detect"
	"sentrycore/internal/handler"
	"sentrycore/internal/logger"
	"sentrycore/internal/model"
	"sentrycore/internal/orchestrator"
	"sentrycore/internal/repository/sqlite"
	"sentrycore/internal/route"
	"sentrycore/internal/vision"
	"sentrycore/internal/wsview"

	"gocv.io/x/gocv"
)

// App owns every long-lived collaborator and the HTTP server.
type App struct {
	config *config.Config
	log    *logger.Logger

	db    *sqlite.DB
	store *sqlite.EventStore
	bus   *bus.Bus

	engine *detect.Engine
	vision *vision.Client

	cameras map[string]*orchestrator.Camera
	captures map[string]*capture.Capture
	hubs     map[string]*wsview.Hub

	orch *orchestrator.Orchestrator

	server *http.Server
}

// NewApp loads config and constructs every collaborator, but does not yet
// start any goroutine or listener — call Run for that.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	store := sqlite.NewEventStore(db)

	b := bus.New(bus.Config{
		BrokerURL:    cfg.MQTTBrokerURL,
		ClientID:     cfg.MQTTClientID,
		StatusPrefix: cfg.MQTTStatusPrefix,
	}, log)

	engine := detect.NewEngine(cfg.ModelPath, cfg.ConfigPath, log)

	templates := vision.PromptTemplates{"default": cfg.VisionDefaultTemplate}
	for _, cam := range cfg.Cameras {
		if cam.VisionPrompt != "" {
			templates[cam.ID] = cam.VisionPrompt
		}
	}
	vc := vision.New(vision.Config{
		Endpoint:        cfg.VisionEndpoint,
		Model:           cfg.VisionModel,
		OverallTimeout:  time.Duration(cfg.VisionOverallTimeout) * time.Second,
		Templates:       templates,
		DefaultTemplate: cfg.VisionDefaultTemplate,
		MaxWords:        cfg.VisionMaxWords,
	}, log)

	orch := orchestrator.New(orchestrator.Config{
		RecordingsDir:  cfg.RecordingsDirectory,
		SnapshotsDir:   cfg.SnapshotsDirectory,
		FPS:            cfg.FPS,
		DetectEveryNth: cfg.DetectEveryNth,
		VisionModel:    cfg.VisionModel,
		PublicBaseURL:  cfg.PublicBaseURL,
	}, b, store, engine, vc, log)

	a := &App{
		config:   cfg,
		log:      log,
		db:       db,
		store:    store,
		bus:      b,
		engine:   engine,
		vision:   vc,
		cameras:  make(map[string]*orchestrator.Camera),
		captures: make(map[string]*capture.Capture),
		hubs:     make(map[string]*wsview.Hub),
		orch:     orch,
	}

	for _, camCfg := range cfg.Cameras {
		a.registerCamera(camCfg)
	}

	return a, nil
}

func (a *App) registerCamera(camCfg model.CameraConfig) {
	// headroom sizing per SPEC_FULL.md §4.1: ring capacity + headroom.
	poolCapacity := a.config.RingBufferCapacity + a.config.PoolHeadroom
	pool := buffer.NewFramePool(poolCapacity, 0, 0)
	ring := buffer.NewRingBuffer(a.config.RingBufferCapacity)

	cam := &orchestrator.Camera{Config: camCfg, Pool: pool, Ring: ring}
	a.cameras[camCfg.ID] = cam
	a.orch.RegisterCamera(cam)

	cp := capture.New(camCfg.ID, camCfg.StreamURL, pool, ring, a.log)
	a.captures[camCfg.ID] = cp

	a.hubs[camCfg.ID] = wsview.NewHub(camCfg.ID, ring, encodeLatestJPEG, a.log)
}

func encodeLatestJPEG(ring *buffer.RingBuffer) ([]byte, error) {
	frame := ring.Latest()
	if frame == nil {
		return nil, fmt.Errorf("no frame available")
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pixels)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Run starts every capture goroutine, the orchestrator, the websocket hubs,
// and the HTTP server, blocking until the server stops.
func (a *App) Run() error {
	if err := a.bus.Connect(); err != nil {
		return fmt.Errorf("app: connect bus: %w", err)
	}
	if err := a.orch.Start(); err != nil {
		return fmt.Errorf("app: start orchestrator: %w", err)
	}

	for id, cp := range a.captures {
		cp.Start()
		a.log.Info("app: capture started for camera %q", id)
	}
	for _, hub := range a.hubs {
		go hub.Run()
	}

	sources := make([]handler.CameraSource, 0, len(a.captures))
	rings := make(map[string]*buffer.RingBuffer, len(a.cameras))
	for id, cp := range a.captures {
		sources = append(sources, handler.CameraSource{ID: id, Capture: cp})
		rings[id] = a.cameras[id].Ring
	}

	mux := route.SetupRoutes(sources, rings, a.hubs, a.bus, a.log)
	a.server = &http.Server{Addr: fmt.Sprintf(":%d", a.config.Port), Handler: mux}

	a.log.Info("sentrycore listening on :%d", a.config.Port)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown performs the bounded graceful shutdown named in SPEC_FULL.md
// §1: orchestrator stop, capture stop, store close, bus disconnect.
func (a *App) Shutdown(ctx context.Context) error {
	if a.server != nil {
		_ = a.server.Shutdown(ctx)
	}
	for _, hub := range a.hubs {
		hub.Stop()
	}
	a.orch.Stop()
	for id, cp := range a.captures {
		cp.Stop()
		a.log.Info("app: capture stopped for camera %q", id)
	}
	if err := a.store.Close(); err != nil {
		a.log.Error("app: close store: %v", err)
	}
	a.bus.Disconnect()
	return nil
}
