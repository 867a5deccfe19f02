// Package session drives the upload -> analyzing -> generating -> preview ->
// complete flow of a single session on a fixed, cancelable timeline.
package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Phase is the current stage of the simulated processing pipeline.
type Phase string

const (
	PhaseUpload     Phase = "upload"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseGenerating Phase = "generating"
	PhasePreview    Phase = "preview"
	PhaseComplete   Phase = "complete"
)

// Phases lists every phase in flow order.
var Phases = []Phase{PhaseUpload, PhaseAnalyzing, PhaseGenerating, PhasePreview, PhaseComplete}

func (p Phase) order() int {
	for i, candidate := range Phases {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Processing reports whether a timeline is still running in this phase.
func (p Phase) Processing() bool {
	return p == PhaseAnalyzing || p == PhaseGenerating
}

// Step is one scheduled transition, relative to the upload time.
type Step struct {
	After    time.Duration
	Progress int
	// Phase is left unchanged when empty.
	Phase Phase
	// Populate fills the clip collection from the analysis source.
	Populate bool
}

// DefaultTimeline returns the reference timeline: 25% at 1.5s, clips at 3s,
// preview at 4.5s.
func DefaultTimeline() []Step {
	return []Step{
		{After: 1500 * time.Millisecond, Progress: 25, Phase: PhaseGenerating},
		{After: 3000 * time.Millisecond, Progress: 75, Populate: true},
		{After: 4500 * time.Millisecond, Progress: 100, Phase: PhasePreview},
	}
}

// Upload is the file handle handed over by the upload surface.
type Upload struct {
	Name     string
	MIMEType string
	Size     int64
	// Fingerprint is a content hash of the leading bytes, when known.
	Fingerprint string
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".m4v":  true,
}

// Validate rejects anything that is not a video. The MIME type wins when
// present; otherwise the extension decides.
func (u Upload) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidFileKind)
	}
	if u.MIMEType != "" {
		if !strings.HasPrefix(strings.ToLower(u.MIMEType), "video/") {
			return fmt.Errorf("%w: %s", ErrInvalidFileKind, u.MIMEType)
		}
		return nil
	}
	ext := strings.ToLower(filepath.Ext(u.Name))
	if !videoExtensions[ext] {
		return fmt.Errorf("%w: unsupported extension %q", ErrInvalidFileKind, ext)
	}
	return nil
}
