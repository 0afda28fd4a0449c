package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"opintel/pkg/analysis"
	"opintel/pkg/catalog"
	"opintel/pkg/geo"
	"opintel/pkg/geometry"
)

const maxSelectionBody = 8 << 20

// AnalysisHandler drives the selection controller over HTTP.
type AnalysisHandler struct {
	ctrl    *analysis.Controller
	catalog *catalog.Catalog
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(ctrl *analysis.Controller, c *catalog.Catalog) *AnalysisHandler {
	return &AnalysisHandler{ctrl: ctrl, catalog: c}
}

// SnapshotResponse is the JSON view of the current analysis.
type SnapshotResponse struct {
	State    analysis.State   `json:"state"`
	Mode     analysis.Mode    `json:"mode"`
	FireYear int              `json:"fire_year,omitempty"`
	Result   *analysis.Result `json:"result"`
}

// SelectionRequest carries a fire feature picked on the map.
type SelectionRequest struct {
	Year    int              `json:"year"`
	Feature *geojson.Feature `json:"feature"`
}

// ModeRequest changes the operating mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

func snapshotResponse(s analysis.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{State: s.State, Mode: s.Mode, Result: s.Result}
	if s.Fire != nil {
		resp.FireYear = s.Fire.Year
	}
	return resp
}

// HandleSelectFire selects a feature of a loaded fire layer by index.
// POST /api/fires/{year}/{index}/select
func (h *AnalysisHandler) HandleSelectFire(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", r.PathValue("year")))
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index %q", r.PathValue("index")))
		return
	}

	sel, err := h.catalog.Fire(year, index)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.selectFeature(w, r, sel.Feature, sel.Year)
}

// HandleSelection selects an arbitrary GeoJSON feature.
// POST /api/selection
func (h *AnalysisHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSelectionBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req SelectionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid selection: %w", err))
		return
	}
	if req.Feature == nil || req.Feature.Geometry == nil {
		writeError(w, http.StatusBadRequest, errors.New("selection has no feature geometry"))
		return
	}
	h.selectFeature(w, r, geo.FromGeoJSON(req.Feature), req.Year)
}

func (h *AnalysisHandler) selectFeature(w http.ResponseWriter, r *http.Request, f geo.Feature, year int) {
	if h.ctrl.Mode() != analysis.ModeManagement {
		writeJSON(w, http.StatusAccepted, map[string]bool{"ignored": true})
		return
	}

	err := h.ctrl.Select(r.Context(), f, year)
	var gerr *geometry.Error
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snapshotResponse(h.ctrl.Snapshot()))
	case errors.Is(err, analysis.ErrSuperseded):
		writeJSON(w, http.StatusConflict, map[string]bool{"superseded": true})
	case errors.As(err, &gerr):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, context.Canceled):
		slog.Debug("Selection abandoned by client", "year", year)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// HandleGetMode returns the operating mode.
// GET /api/mode
func (h *AnalysisHandler) HandleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]analysis.Mode{"mode": h.ctrl.Mode()})
}

// HandleSetMode switches the operating mode.
// POST /api/mode
func (h *AnalysisHandler) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid mode request: %w", err))
		return
	}
	mode, err := analysis.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.ctrl.SetMode(mode)
	writeJSON(w, http.StatusOK, map[string]analysis.Mode{"mode": mode})
}

// HandleAnalysis returns the current analysis, or 204 when there is none.
// GET /api/analysis
func (h *AnalysisHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	if snap.Result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

// HandleBuffer returns the current impact buffer as GeoJSON, or 204.
// GET /api/analysis/buffer
func (h *AnalysisHandler) HandleBuffer(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	if snap.Buffer == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := snap.Buffer.GeoJSON().MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}
