package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"opintel/pkg/catalog"
	"opintel/pkg/geo"
)

// CatalogHandler serves the layer catalog and the selectable fire layers.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// LayerResponse describes one catalog layer.
type LayerResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Classification geo.Classification `json:"classification"`
	Weighted       bool               `json:"weighted"`
	Features       int                `json:"features"`
	Missing        bool               `json:"missing"`
}

// FireLayerResponse describes one fire layer.
type FireLayerResponse struct {
	Year     int  `json:"year"`
	Features int  `json:"features"`
	Missing  bool `json:"missing"`
}

// HandleLayers lists the catalog layers in presentation order.
// GET /api/catalog
func (h *CatalogHandler) HandleLayers(w http.ResponseWriter, r *http.Request) {
	layers := h.catalog.Layers()
	resp := make([]LayerResponse, 0, len(layers))
	for _, l := range layers {
		resp = append(resp, LayerResponse{
			ID:             l.ID,
			Name:           l.Name,
			Classification: l.Classification,
			Weighted:       l.Weighted,
			Features:       len(l.Features),
			Missing:        l.Missing,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleFires lists the fire layers.
// GET /api/fires
func (h *CatalogHandler) HandleFires(w http.ResponseWriter, r *http.Request) {
	fires := h.catalog.Fires()
	resp := make([]FireLayerResponse, 0, len(fires))
	for _, f := range fires {
		resp = append(resp, FireLayerResponse{Year: f.Year, Features: len(f.Features), Missing: f.Missing})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleFireLayer returns one fire layer as a FeatureCollection. Each
// feature carries its index, which is what selection refers to.
// GET /api/fires/{year}
func (h *CatalogHandler) HandleFireLayer(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", r.PathValue("year")))
		return
	}

	layer, err := h.catalog.FireLayer(year)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for i, f := range layer.Features {
		gf := f.GeoJSON()
		gf.ID = i
		gf.Properties["year"] = year
		fc.Append(gf)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	_, _ = w.Write(data)
}

func statusFor(err error) int {
	if errors.Is(err, catalog.ErrUnknownFire) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
