package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	FormatSimulated = "simulated"
	FormatEDL       = "edl"

	DefaultFrameRate = 30.0
)

// Simulated pretends to render every clip. Nothing is written.
type Simulated struct {
	logger *slog.Logger
}

func NewSimulated(logger *slog.Logger) *Simulated {
	return &Simulated{logger: logger}
}

func (s *Simulated) Export(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := newResult(req, FormatSimulated)
	for i, clip := range req.Clips {
		result.Outcomes = append(result.Outcomes, Outcome{
			ClipID:   clip.ID,
			Title:    clip.Title,
			Status:   StatusExported,
			FileName: ClipFileName(i+1, clip.Title),
		})
	}

	if s.logger != nil {
		s.logger.Info("simulated export finished", "export_id", result.ID, "clip_count", len(result.Outcomes))
	}
	return result, nil
}

// EDLExporter writes the clips as one CMX3600 edit decision list.
type EDLExporter struct {
	OutputDir string
	FrameRate float64
	logger    *slog.Logger
}

func NewEDLExporter(outputDir string, frameRate float64, logger *slog.Logger) *EDLExporter {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return &EDLExporter{OutputDir: outputDir, FrameRate: frameRate, logger: logger}
}

func (e *EDLExporter) Export(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateOutputDir(e.OutputDir); err != nil {
		return nil, err
	}

	projectName := req.ProjectName
	if projectName == "" {
		projectName = ProjectName(req.SourceName)
	}

	result := newResult(req, FormatEDL)
	events := make([]EDLEvent, 0, len(req.Clips))
	for i, clip := range req.Clips {
		outcome := Outcome{ClipID: clip.ID, Title: clip.Title}
		if clip.StartTime < 0 || clip.EndTime <= clip.StartTime {
			outcome.Status = StatusFailed
			outcome.Error = "start_time must be less than end_time"
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		name := SanitizeName(clip.Title, 160)
		if name == "" {
			name = clip.ID
		}
		events = append(events, EDLEvent{
			ClipID:     clip.ID,
			Name:       name,
			Source:     req.SourceName,
			Confidence: clip.Confidence,
			In:         clip.StartTime,
			Out:        clip.EndTime,
		})
		outcome.Status = StatusExported
		outcome.FileName = ClipFileName(i+1, clip.Title)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if len(events) == 0 {
		return result, nil
	}

	edl := RenderEDL(projectName, e.FrameRate, events)
	outputPath := filepath.Join(e.OutputDir, projectName+".edl")
	if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}
	result.OutputPath = outputPath

	if e.logger != nil {
		e.logger.Info("edl export written", "export_id", result.ID, "path", outputPath, "clip_count", len(events))
	}
	return result, nil
}

func newResult(req Request, format string) *Result {
	total := 0
	for _, c := range req.Clips {
		total += c.Duration
	}
	return &Result{
		ID:           uuid.NewString(),
		RunID:        req.RunID,
		Format:       format,
		TotalSeconds: total,
		Outcomes:     make([]Outcome, 0, len(req.Clips)),
		CreatedAt:    time.Now(),
	}
}
