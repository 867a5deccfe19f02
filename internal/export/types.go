// Package export turns the selected clips of a run into export outcomes.
package export

import (
	"context"
	"time"

	"github.com/clipforge/clipforge-agent/internal/clips"
)

const (
	StatusExported = "exported"
	StatusFailed   = "failed"
)

// Request is one export of the selected clips.
type Request struct {
	RunID       string
	ProjectName string
	SourceName  string
	Clips       []clips.Clip
}

// Outcome is the per-clip result of an export.
type Outcome struct {
	ClipID   string `json:"clip_id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	FileName string `json:"file_name,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result enumerates what happened to every requested clip.
type Result struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Format       string    `json:"format"`
	OutputPath   string    `json:"output_path,omitempty"`
	TotalSeconds int       `json:"total_seconds"`
	Outcomes     []Outcome `json:"outcomes"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusExported {
			n++
		}
	}
	return n
}

func (r *Result) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Exporter writes out the clips of a Request.
type Exporter interface {
	Export(ctx context.Context, req Request) (*Result, error)
}
