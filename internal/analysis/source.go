// Package analysis provides the sources a run's clip candidates come from:
// the built-in fixture set or a remote analysis service.
package analysis

import (
	"context"
	"log/slog"

	"github.com/clipforge/clipforge-agent/internal/clips"
)

// Request describes the uploaded video an analysis is run for.
type Request struct {
	FileName    string `json:"file_name"`
	MIMEType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Source produces the candidate clips for an upload.
type Source interface {
	Clips(ctx context.Context, req Request) ([]clips.Clip, error)
}

// FixtureSource returns the canned clip set regardless of input.
type FixtureSource struct {
	logger *slog.Logger
}

func NewFixtureSource(logger *slog.Logger) *FixtureSource {
	return &FixtureSource{logger: logger}
}

func (s *FixtureSource) Clips(ctx context.Context, req Request) ([]clips.Clip, error) {
	if s.logger != nil {
		s.logger.Debug("fixture analysis requested", "file_name", req.FileName)
	}
	return clips.Fixture(), nil
}
