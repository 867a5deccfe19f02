package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge-agent/internal/analysis"
	"github.com/clipforge/clipforge-agent/internal/clips"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/history"
	"github.com/clipforge/clipforge-agent/internal/logging"
)

var (
	ErrInvalidFileKind  = errors.New("invalid file kind")
	ErrEmptySelection   = errors.New("no clips selected")
	ErrExportInProgress = errors.New("export already in progress")
	ErrNoClips          = errors.New("no clips ready for export")
	ErrRunCanceled      = errors.New("run was canceled")
)

const DefaultExportDelay = 3 * time.Second

// canceledRunError is recorded for runs abandoned before preview.
const canceledRunError = "canceled"

const subscriberBuffer = 16

// Recorder persists run and export history. history.Repository satisfies it.
type Recorder interface {
	CreateRun(ctx context.Context, run *history.Run) error
	UpdateRunProgress(ctx context.Context, id, phase string, progress, clipCount int) error
	UpdateRunError(ctx context.Context, id, errorMsg string) error
	CreateExport(ctx context.Context, export *history.Export) error
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	RunID      string         `json:"run_id,omitempty"`
	Phase      Phase          `json:"phase"`
	Progress   int            `json:"progress"`
	FileName   string         `json:"file_name"`
	FileSize   int64          `json:"file_size"`
	Clips      []clips.Clip   `json:"clips"`
	Stats      clips.Stats    `json:"stats"`
	Exporting  bool           `json:"exporting"`
	LastExport *export.Result `json:"last_export,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Config struct {
	Source      analysis.Source
	Exporter    export.Exporter
	Recorder    Recorder
	Scheduler   Scheduler
	Timeline    []Step
	ExportDelay time.Duration
	Logger      *slog.Logger
}

// Run is the handle of one upload's timeline. Canceling it stops every
// pending step; steps already applied stay applied.
type Run struct {
	id      string
	upload  Upload
	ctx     context.Context
	cancel  context.CancelFunc
	timers  []Timer
	started time.Time
}

func (r *Run) ID() string {
	return r.id
}

// Done is closed once the run is canceled or superseded.
func (r *Run) Done() <-chan struct{} {
	return r.ctx.Done()
}

func (r *Run) Cancel() {
	r.cancel()
	for _, t := range r.timers {
		t.Stop()
	}
}

// Controller owns the phase, progress and clip collection of the session.
type Controller struct {
	source      analysis.Source
	exporter    export.Exporter
	recorder    Recorder
	scheduler   Scheduler
	timeline    []Step
	exportDelay time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	phase      Phase
	progress   int
	run        *Run
	collection *clips.Collection
	exporting  bool
	// stopExport aborts the export in flight, if any.
	stopExport context.CancelFunc
	lastExport *export.Result
	lastError  string
	updatedAt  time.Time

	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	source := cfg.Source
	if source == nil {
		source = analysis.NewFixtureSource(logger)
	}
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = export.NewSimulated(logger)
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	timeline := cfg.Timeline
	if timeline == nil {
		timeline = DefaultTimeline()
	}

	return &Controller{
		source:      source,
		exporter:    exporter,
		recorder:    cfg.Recorder,
		scheduler:   scheduler,
		timeline:    timeline,
		exportDelay: cfg.ExportDelay,
		logger:      logging.WithComponent(logger, "session"),
		phase:       PhaseUpload,
		collection:  clips.NewCollection(),
		updatedAt:   time.Now(),
		subs:        make(map[int]chan Snapshot),
	}
}

// SubmitUpload records the file, moves to analyzing and schedules the
// timeline. Any run still pending is canceled first.
func (c *Controller) SubmitUpload(ctx context.Context, upload Upload) (*Run, error) {
	if err := upload.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &Run{
		id:      uuid.NewString(),
		upload:  upload,
		ctx:     runCtx,
		cancel:  cancel,
		started: time.Now(),
	}

	if c.recorder != nil {
		err := c.recorder.CreateRun(ctx, &history.Run{
			ID:        run.id,
			FileName:  upload.Name,
			FileSize:  upload.Size,
			Phase:     string(PhaseAnalyzing),
			CreatedAt: run.started,
			UpdatedAt: run.started,
		})
		if err != nil {
			c.logger.Warn("failed to record run", "run_id", run.id, "error", err)
		}
	}

	c.mu.Lock()
	abandoned := c.abandonLocked()
	if abandoned != "" {
		c.logger.Info("superseding pending run", "run_id", abandoned, "new_run_id", run.id)
	}
	c.run = run
	c.phase = PhaseAnalyzing
	c.progress = 0
	c.collection.Clear()
	c.exporting = false
	c.lastExport = nil
	c.lastError = ""

	for _, step := range c.timeline {
		step := step
		run.timers = append(run.timers, c.scheduler.AfterFunc(step.After, func() {
			c.applyStep(run, step)
		}))
	}
	c.publishLocked()
	c.mu.Unlock()

	c.recordCanceled(abandoned)

	logging.WithRunID(c.logger, run.id).Info("upload submitted",
		"file_name", upload.Name,
		"mime_type", upload.MIMEType,
		"size", humanize.Bytes(uint64(max(upload.Size, 0))),
	)
	return run, nil
}

func (c *Controller) applyStep(run *Run, step Step) {
	var fetched []clips.Clip
	var fetchErr error
	if step.Populate {
		if !c.isActive(run) {
			return
		}
		fetched, fetchErr = c.source.Clips(run.ctx, analysis.Request{
			FileName:    run.upload.Name,
			MIMEType:    run.upload.MIMEType,
			Size:        run.upload.Size,
			Fingerprint: run.upload.Fingerprint,
		})
	}

	c.mu.Lock()
	if c.run != run || run.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}

	if step.Progress > c.progress {
		c.progress = step.Progress
	}
	if step.Phase != "" && step.Phase.order() > c.phase.order() {
		c.phase = step.Phase
	}
	if step.Populate {
		if fetchErr != nil {
			c.lastError = fetchErr.Error()
		} else {
			c.collection.Populate(fetched)
		}
	}

	phase, progress, clipCount := c.phase, c.progress, c.collection.Len()
	c.publishLocked()
	c.mu.Unlock()

	logger := logging.WithRunID(c.logger, run.id)
	if fetchErr != nil {
		logger.Error("clip analysis failed", "error", fetchErr)
	}
	logger.Info("timeline step applied", "phase", phase, "progress", progress, "clip_count", clipCount)

	if c.recorder != nil {
		ctx := context.Background()
		if err := c.recorder.UpdateRunProgress(ctx, run.id, string(phase), progress, clipCount); err != nil {
			logger.Warn("failed to record run progress", "error", err)
		}
		if fetchErr != nil {
			if err := c.recorder.UpdateRunError(ctx, run.id, fetchErr.Error()); err != nil {
				logger.Warn("failed to record run error", "error", err)
			}
		}
	}
}

func (c *Controller) isActive(run *Run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == run && run.ctx.Err() == nil
}

// Reset cancels any pending run and returns to the initial upload state.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.run != nil {
		c.logger.Info("resetting session", "run_id", c.run.id, "phase", c.phase)
	}
	abandoned := c.abandonLocked()
	c.run = nil
	c.phase = PhaseUpload
	c.progress = 0
	c.collection.Clear()
	c.exporting = false
	c.lastExport = nil
	c.lastError = ""
	c.publishLocked()
	c.mu.Unlock()

	c.recordCanceled(abandoned)
}

// abandonLocked cancels the current run and any export in flight. It returns
// the run id when the run was still processing, "" otherwise.
func (c *Controller) abandonLocked() string {
	if c.stopExport != nil {
		c.stopExport()
		c.stopExport = nil
	}
	if c.run == nil {
		return ""
	}
	c.run.Cancel()
	if !c.phase.Processing() {
		return ""
	}
	return c.run.id
}

func (c *Controller) recordCanceled(runID string) {
	if runID == "" || c.recorder == nil {
		return
	}
	if err := c.recorder.UpdateRunError(context.Background(), runID, canceledRunError); err != nil {
		logging.WithRunID(c.logger, runID).Warn("failed to record canceled run", "error", err)
	}
}

// ToggleSelection flips the selection of one clip. Unknown ids are a no-op
// and report false.
func (c *Controller) ToggleSelection(clipID string) (clips.Clip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clip, ok := c.collection.Toggle(clipID)
	if ok {
		c.publishLocked()
	}
	return clip, ok
}

// ExportSelected exports the currently selected clips after the configured
// delay. A result with at least one exported clip completes the session.
func (c *Controller) ExportSelected(ctx context.Context) (*export.Result, error) {
	c.mu.Lock()
	if (c.phase != PhasePreview && c.phase != PhaseComplete) || c.collection.Len() == 0 {
		c.mu.Unlock()
		return nil, ErrNoClips
	}
	if c.exporting {
		c.mu.Unlock()
		return nil, ErrExportInProgress
	}
	selected := c.collection.Selected()
	if len(selected) == 0 {
		c.mu.Unlock()
		return nil, ErrEmptySelection
	}
	run := c.run
	exportCtx, stopExport := context.WithCancel(ctx)
	defer stopExport()
	c.exporting = true
	c.stopExport = stopExport
	c.publishLocked()
	c.mu.Unlock()

	logger := logging.WithRunID(c.logger, run.id)
	logger.Info("export started", "clip_count", len(selected))

	if err := c.waitExportDelay(ctx, exportCtx); err != nil {
		c.finishExport(run, nil)
		return nil, err
	}

	result, err := c.exporter.Export(exportCtx, export.Request{
		RunID:      run.id,
		SourceName: run.upload.Name,
		Clips:      selected,
	})
	if err != nil {
		if !c.finishExport(run, nil) && ctx.Err() == nil {
			return nil, ErrRunCanceled
		}
		logger.Error("export failed", "error", err)
		return nil, fmt.Errorf("export: %w", err)
	}

	if !c.finishExport(run, result) {
		return nil, ErrRunCanceled
	}

	logger.Info("export finished",
		"export_id", result.ID,
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"output_path", logging.SanitizePath(result.OutputPath),
	)

	if c.recorder != nil {
		rctx := context.Background()
		err := c.recorder.CreateExport(rctx, &history.Export{
			ID:           result.ID,
			RunID:        run.id,
			Format:       result.Format,
			ClipCount:    len(result.Outcomes),
			Succeeded:    result.Succeeded(),
			Failed:       result.Failed(),
			TotalSeconds: result.TotalSeconds,
			OutputPath:   result.OutputPath,
			CreatedAt:    result.CreatedAt,
		})
		if err != nil {
			logger.Warn("failed to record export", "error", err)
		}
		if result.Succeeded() > 0 {
			snap := c.Snapshot()
			if err := c.recorder.UpdateRunProgress(rctx, run.id, string(PhaseComplete), snap.Progress, len(snap.Clips)); err != nil {
				logger.Warn("failed to record run progress", "error", err)
			}
		}
	}
	return result, nil
}

// waitExportDelay waits out the export delay. exportCtx is derived from the
// caller's ctx and is also canceled by Reset or a new upload.
func (c *Controller) waitExportDelay(ctx, exportCtx context.Context) error {
	if c.exportDelay <= 0 {
		return nil
	}

	elapsed := make(chan struct{})
	timer := c.scheduler.AfterFunc(c.exportDelay, func() { close(elapsed) })

	select {
	case <-elapsed:
		return nil
	case <-exportCtx.Done():
		timer.Stop()
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrRunCanceled
	}
}

// finishExport clears the exporting flag and, on success, stores the result.
// It reports false when the run was reset or superseded meanwhile.
func (c *Controller) finishExport(run *Run, result *export.Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != run {
		return false
	}
	c.exporting = false
	c.stopExport = nil
	if result != nil {
		c.lastExport = result
		if result.Succeeded() > 0 {
			c.phase = PhaseComplete
		}
	}
	c.publishLocked()
	return true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:      c.phase,
		Progress:   c.progress,
		Clips:      c.collection.Clips(),
		Stats:      c.collection.Stats(),
		Exporting:  c.exporting,
		LastExport: c.lastExport,
		LastError:  c.lastError,
		UpdatedAt:  c.updatedAt,
	}
	if c.run != nil {
		snap.RunID = c.run.id
		snap.FileName = c.run.upload.Name
		snap.FileSize = c.run.upload.Size
	}
	return snap
}

// Subscribe returns a channel receiving a snapshot after every state change.
// Slow subscribers miss intermediate snapshots instead of blocking the
// controller. The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) publishLocked() {
	c.updatedAt = time.Now()
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for id, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			c.logger.Debug("subscriber lagging, snapshot dropped", "subscriber", id)
		}
	}
}

// Close cancels the pending run and closes every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.abandonLocked()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.closed = true
}
