// Package history records processing runs and exports in SQLite.
package history

import "time"

// Run is one submitted upload and how far its timeline got.
type Run struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	Phase     string    `json:"phase"`
	Progress  int       `json:"progress"`
	ClipCount int       `json:"clip_count"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Export summarizes one export of a run's selected clips.
type Export struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Format       string    `json:"format"`
	ClipCount    int       `json:"clip_count"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	TotalSeconds int       `json:"total_seconds"`
	OutputPath   string    `json:"output_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
