package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge-agent/internal/clips"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/i18n"
	"github.com/clipforge/clipforge-agent/internal/session"
)

const (
	uploadField       = "video"
	multipartOverhead = 1 << 20
	defaultListLimit  = 20
	maxListLimit      = 100
)

// SessionController is the session surface the HTTP API drives.
// *session.Controller satisfies it.
type SessionController interface {
	SubmitUpload(ctx context.Context, upload session.Upload) (*session.Run, error)
	Reset()
	ToggleSelection(clipID string) (clips.Clip, bool)
	ExportSelected(ctx context.Context) (*export.Result, error)
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/session", getSessionHandler(cfg))
		r.Post("/session/upload", uploadHandler(cfg))
		r.Post("/session/reset", resetHandler(cfg))
		r.Post("/session/clips/{id}/toggle", toggleHandler(cfg))
		r.Post("/session/export", exportHandler(cfg))
		r.Get("/runs", listRunsHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/ws", sessionWSHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, sessionResponse(cfg, cfg.Controller.Snapshot(), r.Header.Get("Accept-Language")))
	}
}

func sessionResponse(cfg ServerConfig, snap session.Snapshot, acceptLanguage string) SessionResponse {
	var phaseCopy i18n.PhaseCopy
	if cfg.Catalog != nil {
		phaseCopy = cfg.Catalog.Phase(string(snap.Phase), acceptLanguage)
	}
	return SnapshotToResponse(snap, phaseCopy)
}

// uploadHandler streams the multipart "video" part and discards its bytes;
// only name, type, size and fingerprint reach the controller.
func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := cfg.MaxUploadBytes
		if limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "expected multipart/form-data body", "INVALID_REQUEST")
			return
		}

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				WriteError(w, http.StatusBadRequest, "video file is required", "INVALID_REQUEST")
				return
			}
			if err != nil {
				writeBodyError(w, err)
				return
			}

			if part.FormName() != uploadField {
				_, _ = io.Copy(io.Discard, part)
				part.Close()
				continue
			}

			upload := session.Upload{
				Name:     part.FileName(),
				MIMEType: part.Header.Get("Content-Type"),
			}
			// Generic binary types say nothing about the content; let the
			// extension decide.
			if upload.MIMEType == "application/octet-stream" {
				upload.MIMEType = ""
			}
			if err := upload.Validate(); err != nil {
				part.Close()
				WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILE_KIND")
				return
			}

			fp := newFingerprint()
			n, err := io.Copy(fp, part)
			part.Close()
			if err != nil {
				writeBodyError(w, err)
				return
			}
			if limit > 0 && n > limit {
				WriteError(w, http.StatusRequestEntityTooLarge,
					"file exceeds the "+humanize.IBytes(uint64(limit))+" limit", "FILE_TOO_LARGE")
				return
			}
			upload.Size = n
			upload.Fingerprint = fp.Sum()

			run, err := cfg.Controller.SubmitUpload(r.Context(), upload)
			if err != nil {
				if errors.Is(err, session.ErrInvalidFileKind) {
					WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILE_KIND")
					return
				}
				requestLogger(cfg, r).Error("upload submit failed", "error", err)
				WriteError(w, http.StatusInternalServerError, "failed to start processing", "INTERNAL_ERROR")
				return
			}

			WriteJSON(w, http.StatusAccepted, UploadResponse{
				RunID:       run.ID(),
				FileName:    upload.Name,
				Size:        upload.Size,
				SizeText:    humanize.Bytes(uint64(upload.Size)),
				Fingerprint: upload.Fingerprint,
			})
			return
		}
	}
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge,
			"file exceeds the "+humanize.IBytes(uint64(tooLarge.Limit))+" limit", "FILE_TOO_LARGE")
		return
	}
	WriteError(w, http.StatusBadRequest, "malformed upload body", "INVALID_REQUEST")
}

func resetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Controller.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		clip, ok := cfg.Controller.ToggleSelection(id)
		if !ok {
			WriteJSON(w, http.StatusOK, ToggleResponse{Toggled: false})
			return
		}

		resp := ClipToResponse(clip)
		WriteJSON(w, http.StatusOK, ToggleResponse{Toggled: true, Clip: &resp})
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := cfg.Controller.ExportSelected(r.Context())
		switch {
		case err == nil:
			WriteJSON(w, http.StatusOK, ExportResultToResponse(result))
		case errors.Is(err, session.ErrEmptySelection):
			WriteError(w, http.StatusConflict, err.Error(), "EMPTY_SELECTION")
		case errors.Is(err, session.ErrExportInProgress):
			WriteError(w, http.StatusConflict, err.Error(), "EXPORT_IN_PROGRESS")
		case errors.Is(err, session.ErrNoClips):
			WriteError(w, http.StatusConflict, err.Error(), "NO_CLIPS")
		case errors.Is(err, session.ErrRunCanceled):
			WriteError(w, http.StatusConflict, err.Error(), "RUN_CANCELED")
		case errors.Is(err, context.Canceled):
			requestLogger(cfg, r).Info("export request canceled by client")
		default:
			requestLogger(cfg, r).Error("export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "export failed", "EXPORT_FAILED")
		}
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := cfg.Repository.ListRuns(r.Context(), listLimit(r))
		if err != nil {
			requestLogger(cfg, r).Error("failed to list runs", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, 0, len(runs))}
		for _, run := range runs {
			resp.Runs = append(resp.Runs, RunToResponse(run))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := cfg.Repository.ListExports(r.Context(), listLimit(r))
		if err != nil {
			requestLogger(cfg, r).Error("failed to list exports", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportResponse, 0, len(exports))}
		for _, e := range exports {
			resp.Exports = append(resp.Exports, ExportToResponse(e))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
