// Package api exposes the dashboard over HTTP: the read-only view, the
// sky map shape list, and the inbound calls that change the session.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/obscode/magdash/internal/dashboard"
	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/ingest"
	"github.com/obscode/magdash/internal/polar"
	"github.com/obscode/magdash/internal/queue"
)

const (
	maxCatalogBytes = 10 << 20
	maxRequestBytes = 64 << 10
)

type handlers struct {
	d      Dashboard
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	var ce *filter.ConfigError
	var ie *ingest.Error
	switch {
	case errors.As(err, &ce), errors.Is(err, dashboard.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrUnknownQueue):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotConfigured), errors.Is(err, dashboard.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.As(err, &ie):
		if errors.Is(err, ingest.ErrNoRows) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.failWith(w, r, statusFor(err), err)
}

func (h *handlers) failWith(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed",
			"component", "api",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSONError(w, status, err.Error())
}

// decode reads a small JSON request body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// snapshot returns the published view, or answers 503 while the session
// is starting.
func (h *handlers) snapshot(w http.ResponseWriter) *dashboard.Snapshot {
	snap := h.d.Snapshot()
	if snap == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "dashboard starting")
	}
	return snap
}

// GET /api/v1/view
func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	if snap := h.snapshot(w); snap != nil {
		writeJSON(w, http.StatusOK, snap)
	}
}

type skyMapResponse struct {
	Generation uint64        `json:"generation"`
	Updated    time.Time     `json:"updated"`
	Shapes     []polar.Shape `json:"shapes"`
}

// GET /api/v1/skymap
func (h *handlers) skymap(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, skyMapResponse{
		Generation: snap.Generation,
		Updated:    snap.Updated,
		Shapes:     snap.SkyMap,
	})
}

// POST /api/v1/ingest/catalog?name=tonight.cat
func (h *handlers) ingestCatalog(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCatalogBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("catalog exceeds %d bytes", mbe.Limit))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "reading catalog: "+err.Error())
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "upload"
	}

	rep, err := h.d.IngestCatalog(r.Context(), name, data)
	if err != nil {
		// An uploaded catalog that yields nothing is the client's fault.
		var ie *ingest.Error
		if errors.As(err, &ie) {
			h.failWith(w, r, http.StatusUnprocessableEntity, err)
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// POST /api/v1/ingest/remote
func (h *handlers) ingestRemote(w http.ResponseWriter, r *http.Request) {
	rep, err := h.d.IngestRemote(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// POST /api/v1/ingest/queue/{queue}
func (h *handlers) ingestQueue(w http.ResponseWriter, r *http.Request) {
	rep, err := h.d.IngestQueue(r.Context(), r.PathValue("queue"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// PUT /api/v1/filters/{name}
func (h *handlers) applyFilter(w http.ResponseWriter, r *http.Request) {
	var u filter.Update
	if err := decode(r, &u); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	u.Name = r.PathValue("name")
	if err := h.d.ApplyFilter(r.Context(), u); err != nil {
		h.fail(w, r, err)
		return
	}
	h.view(w, r)
}

type selectionRequest struct {
	Rows []int `json:"rows"`
}

// POST /api/v1/selection
func (h *handlers) selection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.d.Select(r.Context(), req.Rows); err != nil {
		h.fail(w, r, err)
		return
	}
	h.view(w, r)
}

// POST /api/v1/reset
func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.view(w, r)
}

type dateRequest struct {
	Date string `json:"date"`
}

// PUT /api/v1/date
// An empty or missing date returns to following the current night.
func (h *handlers) setDate(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if err := decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.d.SetDate(r.Context(), strings.TrimSpace(req.Date)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.view(w, r)
}

// GET /api/v1/telescope/{tel}
func (h *handlers) telescope(w http.ResponseWriter, r *http.Request) {
	st, err := h.d.Telescope(r.Context(), r.PathValue("tel"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
