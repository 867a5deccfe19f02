package api

import (
	"time"

	"github.com/clipforge/clipforge-agent/internal/clips"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/history"
	"github.com/clipforge/clipforge-agent/internal/i18n"
	"github.com/clipforge/clipforge-agent/internal/session"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ClipResponse struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Duration          int     `json:"duration"`
	DurationFormatted string  `json:"duration_formatted"`
	Thumbnail         string  `json:"thumbnail"`
	StartTime         int     `json:"start_time"`
	EndTime           int     `json:"end_time"`
	Confidence        float64 `json:"confidence"`
	Tier              string  `json:"tier"`
	Selected          bool    `json:"selected"`
}

type SessionResponse struct {
	RunID       string                `json:"run_id,omitempty"`
	Phase       string                `json:"phase"`
	Progress    int                   `json:"progress"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	FileName    string                `json:"file_name,omitempty"`
	FileSize    int64                 `json:"file_size,omitempty"`
	Clips       []ClipResponse        `json:"clips"`
	Stats       clips.Stats           `json:"stats"`
	Exporting   bool                  `json:"exporting"`
	LastExport  *ExportResultResponse `json:"last_export,omitempty"`
	LastError   string                `json:"last_error,omitempty"`
	UpdatedAt   string                `json:"updated_at"`
}

type UploadResponse struct {
	RunID       string `json:"run_id"`
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	SizeText    string `json:"size_text"`
	Fingerprint string `json:"fingerprint"`
}

type ToggleResponse struct {
	Toggled bool          `json:"toggled"`
	Clip    *ClipResponse `json:"clip,omitempty"`
}

type ExportResultResponse struct {
	ID           string           `json:"id"`
	RunID        string           `json:"run_id"`
	Format       string           `json:"format"`
	OutputPath   string           `json:"output_path,omitempty"`
	TotalSeconds int              `json:"total_seconds"`
	Succeeded    int              `json:"succeeded"`
	Failed       int              `json:"failed"`
	Outcomes     []export.Outcome `json:"outcomes"`
	CreatedAt    string           `json:"created_at"`
}

type RunResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	Phase     string `json:"phase"`
	Progress  int    `json:"progress"`
	ClipCount int    `json:"clip_count"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type ExportResponse struct {
	ID           string `json:"id"`
	RunID        string `json:"run_id"`
	Format       string `json:"format"`
	ClipCount    int    `json:"clip_count"`
	Succeeded    int    `json:"succeeded"`
	Failed       int    `json:"failed"`
	TotalSeconds int    `json:"total_seconds"`
	OutputPath   string `json:"output_path,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ClipToResponse(c clips.Clip) ClipResponse {
	return ClipResponse{
		ID:                c.ID,
		Title:             c.Title,
		Duration:          c.Duration,
		DurationFormatted: clips.FormatTime(c.Duration),
		Thumbnail:         c.ThumbnailURL,
		StartTime:         c.StartTime,
		EndTime:           c.EndTime,
		Confidence:        c.Confidence,
		Tier:              string(c.Tier()),
		Selected:          c.Selected,
	}
}

func SnapshotToResponse(s session.Snapshot, phaseCopy i18n.PhaseCopy) SessionResponse {
	resp := SessionResponse{
		RunID:       s.RunID,
		Phase:       string(s.Phase),
		Progress:    s.Progress,
		Title:       phaseCopy.Title,
		Description: phaseCopy.Description,
		FileName:    s.FileName,
		FileSize:    s.FileSize,
		Clips:       make([]ClipResponse, 0, len(s.Clips)),
		Stats:       s.Stats,
		Exporting:   s.Exporting,
		LastError:   s.LastError,
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
	for _, c := range s.Clips {
		resp.Clips = append(resp.Clips, ClipToResponse(c))
	}
	if s.LastExport != nil {
		r := ExportResultToResponse(s.LastExport)
		resp.LastExport = &r
	}
	return resp
}

func ExportResultToResponse(r *export.Result) ExportResultResponse {
	outcomes := r.Outcomes
	if outcomes == nil {
		outcomes = []export.Outcome{}
	}
	return ExportResultResponse{
		ID:           r.ID,
		RunID:        r.RunID,
		Format:       r.Format,
		OutputPath:   r.OutputPath,
		TotalSeconds: r.TotalSeconds,
		Succeeded:    r.Succeeded(),
		Failed:       r.Failed(),
		Outcomes:     outcomes,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

func RunToResponse(r *history.Run) RunResponse {
	return RunResponse{
		ID:        r.ID,
		FileName:  r.FileName,
		FileSize:  r.FileSize,
		Phase:     r.Phase,
		Progress:  r.Progress,
		ClipCount: r.ClipCount,
		Error:     r.Error,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
}

func ExportToResponse(e *history.Export) ExportResponse {
	return ExportResponse{
		ID:           e.ID,
		RunID:        e.RunID,
		Format:       e.Format,
		ClipCount:    e.ClipCount,
		Succeeded:    e.Succeeded,
		Failed:       e.Failed,
		TotalSeconds: e.TotalSeconds,
		OutputPath:   e.OutputPath,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}
