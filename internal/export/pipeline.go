/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export captures the canvas surface and saves it as canvas_snapshot.png or
// canvas_snapshot.pdf. A run walks an ordered list of phases; each phase yields a
// completion signal and the next phase starts only after it fires.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanema/gween/ease"

	"storycanvas/internal/anim"
	applog "storycanvas/internal/log"
	"storycanvas/internal/render"
	"storycanvas/internal/telemetry"
)

// ErrExportInProgress is returned when Run is called while another run is in flight.
var ErrExportInProgress = errors.New("export already in progress")

// Mode selects the output format.
type Mode int

const (
	ModePNG Mode = iota
	ModePDF
)

func (m Mode) String() string {
	if m == ModePDF {
		return "pdf"
	}
	return "png"
}

// Status messages shown in the save overlay.
const (
	MsgSavingPNG = "Saving your story..."
	MsgSavingPDF = "Saving as PDF..."
	MsgSavedPNG  = "Journal saved successfully!"
	MsgSavedPDF  = "PDF saved successfully!"
)

// Phase of an export run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnnouncing
	PhaseProgress
	PhaseHiding
	PhaseCapturing
	PhaseRendering
	PhaseRestoring
)

var phaseNames = [...]string{"idle", "announcing", "progress", "hiding", "capturing", "rendering", "restoring"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Host is the editor side of an export: it owns the chrome state and produces frames.
type Host interface {
	SetStatus(msg string)
	SetMessageStyle(opacity, scale float64)
	SetProgress(pct float64)
	// SetChromeVisible shows or hides the toolbar, the floating toolbar (if present) and
	// the status overlay together.
	SetChromeVisible(visible bool)
	Frame() render.Frame
}

// Rasterizer captures a frame; *render.Rasterizer implements it.
type Rasterizer interface {
	Rasterize(render.Frame, render.Options) (image.Image, error)
}

// Timing holds the cosmetic animation durations and the settle delay before capture.
type Timing struct {
	Announce time.Duration
	Progress time.Duration
	Settle   time.Duration
}

// DefaultTiming matches the save animation of the editor.
func DefaultTiming() Timing {
	return Timing{Announce: 800 * time.Millisecond, Progress: 2000 * time.Millisecond, Settle: 500 * time.Millisecond}
}

// Config wires a pipeline.
type Config struct {
	Timing  Timing
	PNGName string
	PDFName string
	// Events receives export_completed and export_failed. Nil disables events.
	Events telemetry.Sender
	// OnPhase is called on every phase change, from the goroutine calling Run.
	OnPhase func(Phase)
}

// Result describes a finished export.
type Result struct {
	Mode   Mode
	Path   string
	Width  int
	Height int
	PDF    PDFLayout
	// Finale is the success message animation. It is not part of the run; callers that
	// want a quiet chrome before continuing can wait for it.
	Finale *anim.Animation
}

// Pipeline runs exports one at a time.
type Pipeline struct {
	host   Host
	raster Rasterizer
	sink   Sink
	cfg    Config
	log    *slog.Logger

	busy  atomic.Bool
	mu    sync.Mutex
	phase Phase
}

func New(host Host, raster Rasterizer, sink Sink, cfg Config) *Pipeline {
	if cfg.PNGName == "" {
		cfg.PNGName = "canvas_snapshot.png"
	}
	if cfg.PDFName == "" {
		cfg.PDFName = "canvas_snapshot.pdf"
	}
	return &Pipeline{host: host, raster: raster, sink: sink, cfg: cfg, log: applog.WithComponent("export")}
}

// Phase returns the current phase.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Busy reports whether a run is in flight.
func (p *Pipeline) Busy() bool { return p.busy.Load() }

func (p *Pipeline) setPhase(ph Phase) {
	p.mu.Lock()
	p.phase = ph
	p.mu.Unlock()
	if p.cfg.OnPhase != nil {
		p.cfg.OnPhase(ph)
	}
}

// state carries data between phases of one run.
type state struct {
	mode  Mode
	img   image.Image
	res   Result
	start time.Time
}

type step struct {
	phase Phase
	// do returns a completion signal, or nil when the phase completed synchronously.
	do func(ctx context.Context, st *state) (*anim.Animation, error)
}

func (p *Pipeline) steps() []step {
	return []step{
		{PhaseAnnouncing, p.announce},
		{PhaseProgress, p.progress},
		{PhaseHiding, p.hide},
		{PhaseCapturing, p.capture},
		{PhaseRendering, p.renderOutput},
		{PhaseRestoring, p.restore},
	}
}

// Run performs one export. On failure the error names the phase, and the chrome hidden
// by the hiding phase stays hidden.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (Result, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return Result{}, ErrExportInProgress
	}
	defer p.busy.Store(false)

	l := applog.WithOperation(p.log, "export."+mode.String())
	st := &state{mode: mode, start: time.Now(), res: Result{Mode: mode}}
	for _, s := range p.steps() {
		p.setPhase(s.phase)
		l.DebugContext(ctx, "phase", slog.String("phase", s.phase.String()))
		sig, err := s.do(ctx, st)
		if err == nil && sig != nil {
			err = sig.Wait(ctx)
		}
		if err != nil {
			p.setPhase(PhaseIdle)
			l.ErrorContext(ctx, "export failed", slog.String("phase", s.phase.String()), slog.Any("err", err))
			p.event(telemetry.EventExportFailed, map[string]any{"mode": mode.String(), "phase": s.phase.String()})
			return Result{}, fmt.Errorf("export %s: %s: %w", mode, s.phase, err)
		}
	}
	p.setPhase(PhaseIdle)
	l.InfoContext(ctx, "export saved", slog.String("path", st.res.Path), slog.Duration("took", time.Since(st.start)))
	p.event(telemetry.EventExportCompleted, map[string]any{
		"mode":   mode.String(),
		"width":  st.res.Width,
		"height": st.res.Height,
		"took":   time.Since(st.start),
	})
	return st.res, nil
}

func (p *Pipeline) event(name string, props map[string]any) {
	if p.cfg.Events != nil {
		p.cfg.Events.Event(name, props)
	}
}

// messageIn plays the status message entrance: opacity 0 to 1, scale 0.9 to 1.
func (p *Pipeline) messageIn(ctx context.Context) *anim.Animation {
	p.host.SetMessageStyle(0, 0.9)
	return anim.Start(ctx, anim.Spec{
		Duration: p.cfg.Timing.Announce,
		Easing:   ease.OutExpo,
		Frame: func(v float64) {
			p.host.SetMessageStyle(anim.Lerp(0, 1, v), anim.Lerp(0.9, 1, v))
		},
	})
}

func (p *Pipeline) progressBar(ctx context.Context) *anim.Animation {
	p.host.SetProgress(0)
	return anim.Start(ctx, anim.Spec{
		Duration: p.cfg.Timing.Progress,
		Easing:   ease.InOutQuad,
		Frame:    func(v float64) { p.host.SetProgress(anim.Lerp(0, 100, v)) },
	})
}

func (p *Pipeline) announce(ctx context.Context, st *state) (*anim.Animation, error) {
	msg := MsgSavingPNG
	if st.mode == ModePDF {
		msg = MsgSavingPDF
	}
	p.host.SetStatus(msg)
	return p.messageIn(ctx), nil
}

func (p *Pipeline) progress(ctx context.Context, _ *state) (*anim.Animation, error) {
	return p.progressBar(ctx), nil
}

func (p *Pipeline) hide(ctx context.Context, _ *state) (*anim.Animation, error) {
	p.host.SetChromeVisible(false)
	return anim.Delay(ctx, p.cfg.Timing.Settle), nil
}

// captureIgnore leaves the editor chrome and all rotation handles out of the capture.
func captureIgnore(part render.Part) bool {
	switch part {
	case render.PartStatus, render.PartToolbar, render.PartFloatingToolbar, render.PartRotationHandle:
		return true
	}
	return false
}

func (p *Pipeline) capture(ctx context.Context, st *state) (*anim.Animation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := p.raster.Rasterize(p.host.Frame(), render.Options{Ignore: captureIgnore})
	if err != nil {
		return nil, err
	}
	st.img = img
	st.res.Width, st.res.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return nil, nil
}

func (p *Pipeline) renderOutput(ctx context.Context, st *state) (*anim.Animation, error) {
	var href, name string
	switch st.mode {
	case ModePDF:
		data, err := EncodePNG(st.img)
		if err != nil {
			return nil, err
		}
		var l PDFLayout
		href, l, err = PDFDataURL(data)
		if err != nil {
			return nil, err
		}
		st.res.PDF = l
		name = p.cfg.PDFName
	default:
		var err error
		href, err = PNGDataURL(st.img)
		if err != nil {
			return nil, err
		}
		name = p.cfg.PNGName
	}
	path, err := p.sink.Download(ctx, name, href)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	st.res.Path = path
	return nil, nil
}

func (p *Pipeline) restore(_ context.Context, st *state) (*anim.Animation, error) {
	msg := MsgSavedPNG
	if st.mode == ModePDF {
		msg = MsgSavedPDF
	}
	p.host.SetStatus(msg)
	p.host.SetChromeVisible(true)
	// A new message replays the entrance and the progress bar, detached from the run.
	st.res.Finale = anim.All(p.messageIn(context.Background()), p.progressBar(context.Background()))
	return nil, nil
}
