package history

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	UpdateRunProgress(ctx context.Context, id, phase string, progress, clipCount int) error
	UpdateRunError(ctx context.Context, id, errorMsg string) error

	CreateExport(ctx context.Context, export *Export) error
	ListExports(ctx context.Context, limit int) ([]*Export, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, file_name, file_size, phase, progress, clip_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.FileName, run.FileSize, run.Phase, run.Progress, run.ClipCount, nullString(run.Error),
		run.CreatedAt.Format(time.RFC3339), run.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, file_name, file_size, phase, progress, clip_count, error, created_at, updated_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_name, file_size, phase, progress, clip_count, error, created_at, updated_at
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) UpdateRunProgress(ctx context.Context, id, phase string, progress, clipCount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET phase = ?, progress = ?, clip_count = ?, updated_at = ? WHERE id = ?
	`, phase, progress, clipCount, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateRunError(ctx context.Context, id, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET error = ?, updated_at = ? WHERE id = ?
	`, nullString(errorMsg), time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, run_id, format, clip_count, succeeded, failed, total_seconds, output_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.RunID, e.Format, e.ClipCount, e.Succeeded, e.Failed, e.TotalSeconds,
		nullString(e.OutputPath), e.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*Export, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, format, clip_count, succeeded, failed, total_seconds, output_path, created_at
		FROM exports ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		var e Export
		var outputPath sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Format, &e.ClipCount, &e.Succeeded, &e.Failed,
			&e.TotalSeconds, &outputPath, &createdAt); err != nil {
			return nil, err
		}
		e.OutputPath = outputPath.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		exports = append(exports, &e)
	}
	return exports, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&run.ID, &run.FileName, &run.FileSize, &run.Phase, &run.Progress, &run.ClipCount,
		&errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	run.Error = errMsg.String
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
