// Package api exposes the controller over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/fencewatch/internal/codec"
	"github.com/UnknownOlympus/fencewatch/internal/containment"
	"github.com/UnknownOlympus/fencewatch/internal/geocoding"
	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/UnknownOlympus/fencewatch/internal/service"
	"golang.org/x/time/rate"
)

const (
	// maxBodyBytes caps fence documents.
	maxBodyBytes = 1 << 20
	// drawingIDHeader carries the client's drawing identifier.
	drawingIDHeader = "X-Drawing-ID"

	defaultEventLimit = 50
	maxEventLimit     = 500
)

// defaultCenter is used before the first position arrives (CN Tower, Toronto).
var defaultCenter = models.Coordinate{Latitude: 43.642558, Longitude: -79.387046}

// Controller is the part of service.Controller the API drives.
type Controller interface {
	OnFenceDrawn(ctx context.Context, drawing service.Drawing) (service.Replacement, error)
	OnFenceCleared(ctx context.Context)
	Status() models.ContainmentStatus
	State() service.State
	ActiveFence() *models.Fence
	LatestPosition() *models.PositionSample
	ExportFence() ([]byte, error)
}

// EventSource lists recorded status transitions.
type EventSource interface {
	FetchRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// OverlayFactory creates the overlay handle for a drawing.
type OverlayFactory interface {
	Overlay(drawingID string) models.Overlay
}

// Handler serves the fence and status endpoints.
type Handler struct {
	log      *slog.Logger
	ctrl     Controller
	events   EventSource        // nil when the recorder is disabled
	overlays OverlayFactory     // nil when drawings have no remote overlay
	geocoder geocoding.Provider // nil when geocoding is disabled
	limiter  *rate.Limiter
}

type statusResponse struct {
	Status  models.ContainmentStatus `json:"status"`
	State   service.State            `json:"state"`
	FenceID string                   `json:"fence_id,omitempty"`
}

type fenceResponse struct {
	FenceID   string                   `json:"fence_id"`
	Displaced string                   `json:"displaced,omitempty"`
	Vertices  int                      `json:"vertices"`
	Status    models.ContainmentStatus `json:"status"`
}

type centerResponse struct {
	models.Coordinate
	Source string `json:"source"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates a Handler. events, overlays, geocoder and limiter may be nil.
func NewHandler(
	log *slog.Logger,
	ctrl Controller,
	events EventSource,
	overlays OverlayFactory,
	geocoder geocoding.Provider,
	limiter *rate.Limiter,
) *Handler {
	return &Handler{
		log:      log,
		ctrl:     ctrl,
		events:   events,
		overlays: overlays,
		geocoder: geocoder,
		limiter:  limiter,
	}
}

// PutFence replaces the active fence with the drawing in the request body.
func (h *Handler) PutFence(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, http.StatusRequestEntityTooLarge, err)
		return
	}

	var path codec.NativePath
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		path, err = codec.ReadDocument(body)
	case "polyline":
		path, err = codec.ReadPolyline(strings.TrimSpace(string(body)))
	default:
		err = errors.New("unsupported fence format: " + format)
	}
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	drawing := service.Drawing{ID: r.Header.Get(drawingIDHeader), Path: path}
	if h.overlays != nil && drawing.ID != "" {
		drawing.Overlay = h.overlays.Overlay(drawing.ID)
	}

	replacement, err := h.ctrl.OnFenceDrawn(r.Context(), drawing)
	if err != nil {
		// A rejected drawing never became active, so its shape is removed here.
		if drawing.Overlay != nil {
			drawing.Overlay.Release()
		}
		status := http.StatusInternalServerError
		if errors.Is(err, codec.ErrMalformedPoint) || errors.Is(err, containment.ErrDegenerateFence) {
			status = http.StatusBadRequest
		}
		h.writeError(w, r, status, err)
		return
	}

	resp := fenceResponse{
		FenceID:  replacement.Fence.ID,
		Vertices: len(replacement.Fence.Path),
		Status:   replacement.Status,
	}
	if replacement.Displaced != nil {
		resp.Displaced = replacement.Displaced.ID
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// DeleteFence clears the active fence.
func (h *Handler) DeleteFence(w http.ResponseWriter, r *http.Request) {
	h.ctrl.OnFenceCleared(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetFence exports the active fence as the canonical coordinates document.
func (h *Handler) GetFence(w http.ResponseWriter, r *http.Request) {
	data, err := h.ctrl.ExportFence()
	if errors.Is(err, service.ErrNoActiveFence) {
		h.writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if fence := h.ctrl.ActiveFence(); fence != nil {
		w.Header().Set(drawingIDHeader, fence.ID)
	}
	if _, err = w.Write(data); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

// GetStatus reports the containment status and fence state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: h.ctrl.Status(), State: h.ctrl.State()}
	if fence := h.ctrl.ActiveFence(); fence != nil {
		resp.FenceID = fence.ID
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// GetEvents lists the most recent recorded transitions.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, r, http.StatusNotFound, errors.New("event recording is disabled"))
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxEventLimit {
			h.writeError(w, r, http.StatusBadRequest, errors.New("limit must be an integer between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := h.events.FetchRecentEvents(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	h.writeJSON(w, r, http.StatusOK, events)
}

// GetCenter tells a drawing client where to center its map: the geocoded address
// when one is given, else the latest position, else the default center.
func (h *Handler) GetCenter(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		if sample := h.ctrl.LatestPosition(); sample != nil {
			h.writeJSON(w, r, http.StatusOK, centerResponse{Coordinate: sample.Coordinate, Source: "position"})
			return
		}
		h.writeJSON(w, r, http.StatusOK, centerResponse{Coordinate: defaultCenter, Source: "default"})
		return
	}

	if h.geocoder == nil {
		h.writeError(w, r, http.StatusNotFound, errors.New("geocoding is disabled"))
		return
	}

	coord, err := h.geocoder.Geocode(r.Context(), address)
	switch {
	case errors.Is(err, geocoding.ErrNoResults):
		h.writeError(w, r, http.StatusNotFound, err)
	case err != nil:
		h.writeError(w, r, http.StatusBadGateway, err)
	default:
		h.writeJSON(w, r, http.StatusOK, centerResponse{Coordinate: *coord, Source: "geocoder"})
	}
}

// limitEdits rejects fence edits beyond the configured rate.
func (h *Handler) limitEdits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			h.writeError(w, r, http.StatusTooManyRequests, errors.New("too many fence edits"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	} else {
		h.log.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
