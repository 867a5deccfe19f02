package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/clipforge/clipforge-agent/internal/analysis"
	"github.com/clipforge/clipforge-agent/internal/clips"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/history"
)

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	fired   bool
	stopped bool
	s       *fakeScheduler
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler fires callbacks synchronously from Advance, in due order.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{at: s.now + d, seq: s.seq, f: f, s: s}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	for {
		var due []*fakeTimer
		for _, t := range s.timers {
			if !t.fired && !t.stopped && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at != due[j].at {
				return due[i].at < due[j].at
			}
			return due[i].seq < due[j].seq
		})
		next := due[0]
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.f()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type fakeRecorder struct {
	mu       sync.Mutex
	runs     []*history.Run
	progress []string
	errors   []string
	exports  []*history.Export
}

func (r *fakeRecorder) CreateRun(ctx context.Context, run *history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRecorder) UpdateRunProgress(ctx context.Context, id, phase string, progress, clipCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, phase)
	return nil
}

func (r *fakeRecorder) UpdateRunError(ctx context.Context, id, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, errorMsg)
	return nil
}

func (r *fakeRecorder) CreateExport(ctx context.Context, e *history.Export) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, e)
	return nil
}

type failingSource struct{}

func (failingSource) Clips(ctx context.Context, req analysis.Request) ([]clips.Clip, error) {
	return nil, errors.New("analysis service unavailable")
}

type blockingExporter struct {
	started chan struct{}
	release chan struct{}
}

func (e *blockingExporter) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	close(e.started)
	<-e.release
	return export.NewSimulated(nil).Export(ctx, req)
}

type failingExporter struct{}

func (failingExporter) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	result := &export.Result{ID: "exp", RunID: req.RunID}
	for _, c := range req.Clips {
		result.Outcomes = append(result.Outcomes, export.Outcome{ClipID: c.ID, Status: export.StatusFailed, Error: "disk full"})
	}
	return result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, cfg Config) (*Controller, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	cfg.Scheduler = sched
	cfg.Logger = testLogger()
	c := NewController(cfg)
	t.Cleanup(c.Close)
	return c, sched
}

func podcast() Upload {
	return Upload{Name: "podcast.mp4", MIMEType: "video/mp4", Size: 50 << 20}
}

func drain(ch <-chan Snapshot) []Snapshot {
	var out []Snapshot
	for {
		select {
		case s := <-ch:
			out = append(out, s)
		default:
			return out
		}
	}
}

func runToPreview(t *testing.T, c *Controller, sched *fakeScheduler) {
	t.Helper()
	if _, err := c.SubmitUpload(context.Background(), podcast()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}
	sched.Advance(4500 * time.Millisecond)
	if got := c.Snapshot().Phase; got != PhasePreview {
		t.Fatalf("phase after timeline = %q, want preview", got)
	}
}

func TestController_InitialState(t *testing.T) {
	c, _ := newTestController(t, Config{})

	snap := c.Snapshot()
	if snap.Phase != PhaseUpload || snap.Progress != 0 || snap.FileName != "" || len(snap.Clips) != 0 {
		t.Fatalf("initial snapshot = %+v", snap)
	}
}

func TestController_TimelineOrder(t *testing.T) {
	c, sched := newTestController(t, Config{})
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	if _, err := c.SubmitUpload(context.Background(), podcast()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}

	sched.Advance(1499 * time.Millisecond)
	if snap := c.Snapshot(); snap.Phase != PhaseAnalyzing || snap.Progress != 0 {
		t.Fatalf("before first step: %s/%d, want analyzing/0", snap.Phase, snap.Progress)
	}

	sched.Advance(1 * time.Millisecond)
	if snap := c.Snapshot(); snap.Phase != PhaseGenerating || snap.Progress != 25 || len(snap.Clips) != 0 {
		t.Fatalf("at 1.5s: %s/%d/%d clips, want generating/25/0", snap.Phase, snap.Progress, len(snap.Clips))
	}

	sched.Advance(1500 * time.Millisecond)
	if snap := c.Snapshot(); snap.Phase != PhaseGenerating || snap.Progress != 75 || len(snap.Clips) != 5 {
		t.Fatalf("at 3s: %s/%d/%d clips, want generating/75/5", snap.Phase, snap.Progress, len(snap.Clips))
	}

	sched.Advance(1500 * time.Millisecond)
	if snap := c.Snapshot(); snap.Phase != PhasePreview || snap.Progress != 100 {
		t.Fatalf("at 4.5s: %s/%d, want preview/100", snap.Phase, snap.Progress)
	}

	got := drain(events)
	want := []struct {
		phase    Phase
		progress int
	}{
		{PhaseAnalyzing, 0},
		{PhaseGenerating, 25},
		{PhaseGenerating, 75},
		{PhasePreview, 100},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Phase != w.phase || got[i].Progress != w.progress {
			t.Errorf("snapshot %d = %s/%d, want %s/%d", i, got[i].Phase, got[i].Progress, w.phase, w.progress)
		}
	}
}

func TestController_PodcastScenario(t *testing.T) {
	c, sched := newTestController(t, Config{})
	runToPreview(t, c, sched)

	snap := c.Snapshot()
	if snap.FileName != "podcast.mp4" {
		t.Errorf("FileName = %q, want podcast.mp4", snap.FileName)
	}
	if len(snap.Clips) != 5 {
		t.Fatalf("len(Clips) = %d, want 5", len(snap.Clips))
	}

	var selected []string
	for _, clip := range snap.Clips {
		if clip.Selected {
			selected = append(selected, clip.ID)
		}
	}
	if len(selected) != 3 || selected[0] != "1" || selected[1] != "2" || selected[2] != "3" {
		t.Errorf("selected ids = %v, want [1 2 3]", selected)
	}
	if snap.Stats.TotalSelectedDuration != "1:25" || snap.Stats.AverageConfidencePercent != 88 {
		t.Errorf("stats = %+v", snap.Stats)
	}
}

func TestController_ResetFromEveryPhase(t *testing.T) {
	advances := map[Phase]time.Duration{
		PhaseUpload:     -1,
		PhaseAnalyzing:  0,
		PhaseGenerating: 1500 * time.Millisecond,
		PhasePreview:    4500 * time.Millisecond,
	}

	for phase, advance := range advances {
		t.Run(string(phase), func(t *testing.T) {
			c, sched := newTestController(t, Config{})
			if advance >= 0 {
				if _, err := c.SubmitUpload(context.Background(), podcast()); err != nil {
					t.Fatalf("SubmitUpload() error = %v", err)
				}
				sched.Advance(advance)
			}
			if got := c.Snapshot().Phase; got != phase {
				t.Fatalf("setup phase = %q, want %q", got, phase)
			}

			c.Reset()
			first := c.Snapshot()
			c.Reset()
			second := c.Snapshot()

			for i, snap := range []Snapshot{first, second} {
				if snap.Phase != PhaseUpload || snap.Progress != 0 || snap.FileName != "" || len(snap.Clips) != 0 || snap.RunID != "" {
					t.Errorf("reset %d snapshot = %+v", i+1, snap)
				}
			}
		})
	}
}

func TestController_ResetFromComplete(t *testing.T) {
	c, sched := newTestController(t, Config{})
	runToPreview(t, c, sched)

	if _, err := c.ExportSelected(context.Background()); err != nil {
		t.Fatalf("ExportSelected() error = %v", err)
	}
	if got := c.Snapshot().Phase; got != PhaseComplete {
		t.Fatalf("phase = %q, want complete", got)
	}

	c.Reset()
	snap := c.Snapshot()
	if snap.Phase != PhaseUpload || len(snap.Clips) != 0 || snap.LastExport != nil {
		t.Fatalf("snapshot after reset = %+v", snap)
	}
}

func TestController_ResetCancelsPendingTimeline(t *testing.T) {
	c, sched := newTestController(t, Config{})

	run, err := c.SubmitUpload(context.Background(), podcast())
	if err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}
	sched.Advance(1500 * time.Millisecond)
	c.Reset()

	select {
	case <-run.Done():
	default:
		t.Fatal("run not canceled by Reset")
	}
	if n := sched.Pending(); n != 0 {
		t.Errorf("pending timers after reset = %d, want 0", n)
	}

	sched.Advance(10 * time.Second)
	snap := c.Snapshot()
	if snap.Phase != PhaseUpload || snap.Progress != 0 || len(snap.Clips) != 0 {
		t.Fatalf("stale timeline changed state after reset: %+v", snap)
	}
}

func TestController_SupersedingUploadCancelsPreviousRun(t *testing.T) {
	c, sched := newTestController(t, Config{})

	first, err := c.SubmitUpload(context.Background(), Upload{Name: "a.mp4", MIMEType: "video/mp4"})
	if err != nil {
		t.Fatalf("first SubmitUpload() error = %v", err)
	}
	sched.Advance(1000 * time.Millisecond)

	second, err := c.SubmitUpload(context.Background(), Upload{Name: "b.mov", MIMEType: "video/quicktime"})
	if err != nil {
		t.Fatalf("second SubmitUpload() error = %v", err)
	}
	if first.ID() == second.ID() {
		t.Fatal("runs share an id")
	}

	// The first run's 1.5s step would fire here.
	sched.Advance(600 * time.Millisecond)
	if snap := c.Snapshot(); snap.Phase != PhaseAnalyzing || snap.Progress != 0 {
		t.Fatalf("superseded step applied: %s/%d", snap.Phase, snap.Progress)
	}

	sched.Advance(900 * time.Millisecond)
	snap := c.Snapshot()
	if snap.Phase != PhaseGenerating || snap.Progress != 25 || snap.FileName != "b.mov" {
		t.Fatalf("second run step = %s/%d/%s, want generating/25/b.mov", snap.Phase, snap.Progress, snap.FileName)
	}
	if snap.RunID != second.ID() {
		t.Errorf("RunID = %q, want %q", snap.RunID, second.ID())
	}
}

func TestController_RunCancelFreezesProgress(t *testing.T) {
	c, sched := newTestController(t, Config{})

	run, err := c.SubmitUpload(context.Background(), podcast())
	if err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}
	sched.Advance(1500 * time.Millisecond)
	run.Cancel()
	sched.Advance(5 * time.Second)

	if snap := c.Snapshot(); snap.Phase != PhaseGenerating || snap.Progress != 25 {
		t.Fatalf("after cancel: %s/%d, want generating/25", snap.Phase, snap.Progress)
	}
}

func TestController_CanceledRunsAreRecorded(t *testing.T) {
	tests := []struct {
		name string
		act  func(t *testing.T, c *Controller)
	}{
		{"reset", func(t *testing.T, c *Controller) { c.Reset() }},
		{"superseding upload", func(t *testing.T, c *Controller) {
			if _, err := c.SubmitUpload(context.Background(), Upload{Name: "b.mov", MIMEType: "video/quicktime"}); err != nil {
				t.Fatalf("second SubmitUpload() error = %v", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			c, sched := newTestController(t, Config{Recorder: rec})

			if _, err := c.SubmitUpload(context.Background(), podcast()); err != nil {
				t.Fatalf("SubmitUpload() error = %v", err)
			}
			sched.Advance(1500 * time.Millisecond)
			tt.act(t, c)

			rec.mu.Lock()
			defer rec.mu.Unlock()
			if len(rec.errors) != 1 || rec.errors[0] != "canceled" {
				t.Fatalf("recorded errors = %v, want [canceled]", rec.errors)
			}
		})
	}
}

func TestController_ResetFromPreviewRecordsNothing(t *testing.T) {
	rec := &fakeRecorder{}
	c, sched := newTestController(t, Config{Recorder: rec})
	runToPreview(t, c, sched)

	c.Reset()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errors) != 0 {
		t.Fatalf("recorded errors = %v, want none", rec.errors)
	}
}

func TestController_InvalidFileKind(t *testing.T) {
	c, _ := newTestController(t, Config{})

	uploads := []Upload{
		{Name: "photo.png", MIMEType: "image/png"},
		{Name: "notes.txt"},
		{Name: "", MIMEType: "video/mp4"},
	}
	for _, u := range uploads {
		if _, err := c.SubmitUpload(context.Background(), u); !errors.Is(err, ErrInvalidFileKind) {
			t.Errorf("SubmitUpload(%+v) error = %v, want ErrInvalidFileKind", u, err)
		}
	}

	if snap := c.Snapshot(); snap.Phase != PhaseUpload {
		t.Fatalf("phase after rejected uploads = %q, want upload", snap.Phase)
	}
}

func TestUpload_ExtensionFallback(t *testing.T) {
	for _, name := range []string{"talk.MOV", "clip.webm", "a.mkv"} {
		if err := (Upload{Name: name}).Validate(); err != nil {
			t.Errorf("Validate(%q) error = %v", name, err)
		}
	}
}

func TestController_SourceFailure(t *testing.T) {
	rec := &fakeRecorder{}
	c, sched := newTestController(t, Config{Source: failingSource{}, Recorder: rec})
	runToPreview(t, c, sched)

	snap := c.Snapshot()
	if len(snap.Clips) != 0 {
		t.Errorf("len(Clips) = %d, want 0", len(snap.Clips))
	}
	if snap.LastError == "" {
		t.Error("LastError empty after analysis failure")
	}
	if snap.Progress != 100 {
		t.Errorf("Progress = %d, want 100", snap.Progress)
	}
	if _, err := c.ExportSelected(context.Background()); !errors.Is(err, ErrNoClips) {
		t.Errorf("ExportSelected() error = %v, want ErrNoClips", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errors) != 1 {
		t.Errorf("recorded errors = %v, want one", rec.errors)
	}
}

func TestController_ToggleSelection(t *testing.T) {
	c, sched := newTestController(t, Config{})
	runToPreview(t, c, sched)

	clip, ok := c.ToggleSelection("4")
	if !ok || !clip.Selected {
		t.Fatalf("ToggleSelection(4) = %+v, %v", clip, ok)
	}
	if got := c.Snapshot().Stats.TotalSelectedSeconds; got != 115 {
		t.Errorf("TotalSelectedSeconds = %d, want 115", got)
	}

	c.ToggleSelection("4")
	if got := c.Snapshot().Stats.TotalSelectedSeconds; got != 85 {
		t.Errorf("TotalSelectedSeconds after second toggle = %d, want 85", got)
	}

	if _, ok := c.ToggleSelection("99"); ok {
		t.Error("ToggleSelection(99) = true, want false")
	}
}

func TestController_ExportCompletesSession(t *testing.T) {
	rec := &fakeRecorder{}
	c, sched := newTestController(t, Config{Recorder: rec})
	runToPreview(t, c, sched)

	result, err := c.ExportSelected(context.Background())
	if err != nil {
		t.Fatalf("ExportSelected() error = %v", err)
	}
	if len(result.Outcomes) != 3 || result.Succeeded() != 3 {
		t.Fatalf("outcomes = %+v", result.Outcomes)
	}

	snap := c.Snapshot()
	if snap.Phase != PhaseComplete {
		t.Errorf("phase = %q, want complete", snap.Phase)
	}
	if snap.Exporting {
		t.Error("Exporting still true after export")
	}
	if snap.LastExport == nil || snap.LastExport.ID != result.ID {
		t.Error("LastExport not stored")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.runs) != 1 || len(rec.exports) != 1 {
		t.Fatalf("recorded runs/exports = %d/%d, want 1/1", len(rec.runs), len(rec.exports))
	}
	if rec.exports[0].TotalSeconds != 85 {
		t.Errorf("recorded TotalSeconds = %d, want 85", rec.exports[0].TotalSeconds)
	}
	if last := rec.progress[len(rec.progress)-1]; last != string(PhaseComplete) {
		t.Errorf("last recorded phase = %q, want complete", last)
	}
}

func TestController_ExportAllFailedStaysInPreview(t *testing.T) {
	c, sched := newTestController(t, Config{Exporter: failingExporter{}})
	runToPreview(t, c, sched)

	result, err := c.ExportSelected(context.Background())
	if err != nil {
		t.Fatalf("ExportSelected() error = %v", err)
	}
	if result.Failed() != 3 {
		t.Fatalf("Failed() = %d, want 3", result.Failed())
	}
	if got := c.Snapshot().Phase; got != PhasePreview {
		t.Errorf("phase = %q, want preview", got)
	}
}

func TestController_ExportEmptySelection(t *testing.T) {
	c, sched := newTestController(t, Config{})
	runToPreview(t, c, sched)

	for _, id := range []string{"1", "2", "3"} {
		c.ToggleSelection(id)
	}

	if _, err := c.ExportSelected(context.Background()); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("ExportSelected() error = %v, want ErrEmptySelection", err)
	}
}

func TestController_ExportBeforePreview(t *testing.T) {
	c, sched := newTestController(t, Config{})
	if _, err := c.SubmitUpload(context.Background(), podcast()); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}
	sched.Advance(3 * time.Second)

	if _, err := c.ExportSelected(context.Background()); !errors.Is(err, ErrNoClips) {
		t.Fatalf("ExportSelected() during generating error = %v, want ErrNoClips", err)
	}
}

func TestController_ExportInProgress(t *testing.T) {
	exp := &blockingExporter{started: make(chan struct{}), release: make(chan struct{})}
	c, sched := newTestController(t, Config{Exporter: exp})
	runToPreview(t, c, sched)

	done := make(chan error, 1)
	go func() {
		_, err := c.ExportSelected(context.Background())
		done <- err
	}()
	<-exp.started

	if !c.Snapshot().Exporting {
		t.Error("Exporting = false while export is running")
	}
	if _, err := c.ExportSelected(context.Background()); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("second ExportSelected() error = %v, want ErrExportInProgress", err)
	}

	close(exp.release)
	if err := <-done; err != nil {
		t.Fatalf("first ExportSelected() error = %v", err)
	}
}

func TestController_ExportWaitsForDelay(t *testing.T) {
	c, sched := newTestController(t, Config{ExportDelay: DefaultExportDelay})
	runToPreview(t, c, sched)

	done := make(chan error, 1)
	go func() {
		_, err := c.ExportSelected(context.Background())
		done <- err
	}()

	waitFor(t, func() bool { return sched.Pending() == 1 })

	sched.Advance(2999 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("export finished before delay elapsed: %v", err)
	default:
	}

	sched.Advance(time.Millisecond)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ExportSelected() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export did not finish after delay")
	}
	if got := c.Snapshot().Phase; got != PhaseComplete {
		t.Errorf("phase = %q, want complete", got)
	}
}

func TestController_ExportCanceledByContext(t *testing.T) {
	c, sched := newTestController(t, Config{ExportDelay: DefaultExportDelay})
	runToPreview(t, c, sched)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.ExportSelected(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ExportSelected() error = %v, want context.Canceled", err)
	}

	snap := c.Snapshot()
	if snap.Exporting || snap.Phase != PhasePreview {
		t.Fatalf("after canceled export: exporting=%v phase=%q", snap.Exporting, snap.Phase)
	}
}

func TestController_ResetDuringExport(t *testing.T) {
	c, sched := newTestController(t, Config{ExportDelay: DefaultExportDelay})
	runToPreview(t, c, sched)

	done := make(chan error, 1)
	go func() {
		_, err := c.ExportSelected(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return sched.Pending() == 1 })

	c.Reset()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRunCanceled) {
			t.Fatalf("ExportSelected() error = %v, want ErrRunCanceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export not interrupted by reset")
	}
	if got := c.Snapshot().Phase; got != PhaseUpload {
		t.Errorf("phase = %q, want upload", got)
	}
}

func TestController_ExportAfterRunCancel(t *testing.T) {
	c, sched := newTestController(t, Config{ExportDelay: DefaultExportDelay})

	run, err := c.SubmitUpload(context.Background(), podcast())
	if err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}
	sched.Advance(4500 * time.Millisecond)
	run.Cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.ExportSelected(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return sched.Pending() == 1 })
	sched.Advance(DefaultExportDelay)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ExportSelected() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export did not finish after delay")
	}
	if got := c.Snapshot().Phase; got != PhaseComplete {
		t.Errorf("phase = %q, want complete", got)
	}
}

func TestController_SupersedingUploadDuringExport(t *testing.T) {
	c, sched := newTestController(t, Config{ExportDelay: DefaultExportDelay})
	runToPreview(t, c, sched)

	done := make(chan error, 1)
	go func() {
		_, err := c.ExportSelected(context.Background())
		done <- err
	}()
	waitFor(t, func() bool { return sched.Pending() == 1 })

	if _, err := c.SubmitUpload(context.Background(), Upload{Name: "b.mov", MIMEType: "video/quicktime"}); err != nil {
		t.Fatalf("SubmitUpload() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrRunCanceled) {
			t.Fatalf("ExportSelected() error = %v, want ErrRunCanceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export not interrupted by new upload")
	}
	if snap := c.Snapshot(); snap.Phase != PhaseAnalyzing || snap.Exporting {
		t.Errorf("after new upload: phase=%q exporting=%v", snap.Phase, snap.Exporting)
	}
}

func TestController_SubscribeAfterClose(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Close()

	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatal("subscription after Close should be closed")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
