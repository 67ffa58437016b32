// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/buffer"
	"github.com/sentinelcam/sentinel/internal/dispatch"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
	"github.com/sentinelcam/sentinel/internal/video"
)

var (
	// ErrAlreadyRunning is returned by Start while a pipeline is active.
	ErrAlreadyRunning = errors.New("detection already running")

	// ErrNotRunning is returned by Stop with no active pipeline.
	ErrNotRunning = errors.New("detection not running")
)

// stopTimeout bounds how long Stop waits for the reader and worker.
const stopTimeout = 10 * time.Second

// Capabilities are the external model adapters shared by all pipelines.
type Capabilities struct {
	Person perception.ObjectDetector
	Weapon perception.ObjectDetector // nil disables weapon detection
	Pose   perception.PoseEstimator  // nil disables the faint cue
}

// StageConfig bundles the per-stage configuration for new pipelines.
type StageConfig struct {
	Tamper     tamper.Config
	Perception perception.Config
	Action     action.Config

	// IngestBufferSize caps the ingestion queue.
	IngestBufferSize int
}

// Manager starts and stops the detection pipeline. At most one pipeline
// runs at a time; the output buffer outlives pipeline restarts so the
// live feed endpoint keeps a stable handle.
type Manager struct {
	sup        *suture.Supervisor
	dispatcher *dispatch.Dispatcher
	caps       Capabilities
	cfg        StageConfig
	output     *buffer.Ring[*video.Frame]

	mu        sync.Mutex
	running   bool
	name      string
	source    video.Source
	readerTok suture.ServiceToken
	workerTok suture.ServiceToken
}

// NewManager creates a manager. sup must already be serving (or be part
// of a serving tree) for Start to have effect.
func NewManager(sup *suture.Supervisor, dispatcher *dispatch.Dispatcher, caps Capabilities, cfg StageConfig, output *buffer.Ring[*video.Frame]) *Manager {
	return &Manager{
		sup:        sup,
		dispatcher: dispatcher,
		caps:       caps,
		cfg:        cfg,
		output:     output,
	}
}

// Start opens the source and launches the reader/worker pair.
func (m *Manager) Start(sourceURL, name string, fps float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}
	if name == "" {
		name = "default"
	}
	if fps <= 0 {
		fps = m.cfg.Tamper.FPS
	}

	source, err := video.Open(sourceURL, fps)
	if err != nil {
		return fmt.Errorf("open video source: %w", err)
	}

	tamperCfg := m.cfg.Tamper
	tamperCfg.FPS = fps

	ingest := buffer.New[*video.Frame](m.cfg.IngestBufferSize)
	reader := NewReader(name, source, ingest)
	worker := NewWorker(
		name,
		ingest,
		m.output,
		tamper.NewDetector(tamperCfg),
		perception.NewStage(m.cfg.Perception, m.caps.Person, m.caps.Weapon),
		action.NewStage(m.cfg.Action, m.caps.Pose),
		m.dispatcher,
	)

	m.readerTok = m.sup.Add(reader)
	m.workerTok = m.sup.Add(worker)
	m.source = source
	m.name = name
	m.running = true

	logging.Info().Str("pipeline", name).Str("source", sourceURL).Float64("fps", fps).Msg("detection started")
	return nil
}

// Stop tears the running pipeline down and waits for both services.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return ErrNotRunning
	}

	if err := m.sup.RemoveAndWait(m.readerTok, stopTimeout); err != nil {
		logging.Warn().Err(err).Str("pipeline", m.name).Msg("reader did not stop cleanly")
	}
	if err := m.sup.RemoveAndWait(m.workerTok, stopTimeout); err != nil {
		logging.Warn().Err(err).Str("pipeline", m.name).Msg("worker did not stop cleanly")
	}
	if err := m.source.Close(); err != nil {
		logging.Warn().Err(err).Str("pipeline", m.name).Msg("source close failed")
	}

	logging.Info().Str("pipeline", m.name).Msg("detection stopped")
	m.running = false
	m.source = nil
	m.name = ""
	return nil
}

// Running reports whether a pipeline is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Name returns the active pipeline name, or empty.
func (m *Manager) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Output returns the annotated-frame buffer feeding the live stream.
func (m *Manager) Output() *buffer.Ring[*video.Frame] {
	return m.output
}
