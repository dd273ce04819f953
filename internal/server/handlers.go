// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cadastre-gateway/internal/catastro"
	"cadastre-gateway/internal/geo"

	"github.com/rs/zerolog/log"
)

// HandleHealth reports service liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "cadastre-gateway",
	})
}

// HandlePlots serves the cadastral parcels intersecting a WGS84 bounding
// box, converted to GeoJSON.
func (s *ServerContext) HandlePlots(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("bbox")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: bbox")
		return
	}

	bbox, err := geo.ParseBBox(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid BBOX format. Must be minLon,minLat,maxLon,maxLat.")
		return
	}

	gml, err := s.Catastro.ParcelsByBBox(r.Context(), bbox)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	s.writeFeatures(w, gml)
}

// HandleParcel serves a single parcel looked up by cadastral reference.
func (s *ServerContext) HandleParcel(w http.ResponseWriter, r *http.Request) {
	s.handleStoredQuery(w, r, catastro.QueryParcel, "refcat")
}

// HandleZone serves the cadastral zoning geometry for a zone code.
func (s *ServerContext) HandleZone(w http.ResponseWriter, r *http.Request) {
	s.handleStoredQuery(w, r, catastro.QueryZoning, "cod_zona")
}

// HandleParcelsByZone serves all parcels inside a cadastral zone.
func (s *ServerContext) HandleParcelsByZone(w http.ResponseWriter, r *http.Request) {
	s.handleStoredQuery(w, r, catastro.QueryParcelsByZoning, "cod_zona")
}

// HandleNeighbors serves the parcels adjacent to a cadastral reference.
func (s *ServerContext) HandleNeighbors(w http.ResponseWriter, r *http.Request) {
	s.handleStoredQuery(w, r, catastro.QueryNeighbourParcel, "refcat")
}

// handleStoredQuery runs a WFS stored query taking one required parameter
// and serves the converted result.
func (s *ServerContext) handleStoredQuery(w http.ResponseWriter, r *http.Request, query, param string) {
	value := r.URL.Query().Get(param)
	if value == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: "+param)
		return
	}

	gml, err := s.Catastro.StoredQuery(r.Context(), query, param, value)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	s.writeFeatures(w, gml)
}

// writeFeatures converts the GML payload and serves it as GeoJSON.
// Conversion never fails; faulty payloads come out as empty collections.
func (s *ServerContext) writeFeatures(w http.ResponseWriter, gml []byte) {
	fc, res := catastro.Convert(gml)

	log.Debug().
		Int("parcels", res.ParcelsSeen).
		Int("features", len(fc.Features)).
		Int("skipped", res.Skipped).
		Msg("Converted WFS response")

	w.Header().Set("Content-Type", "application/geo+json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(fc)
}

// writeUpstreamError maps WFS failures onto gateway responses. A non-200
// from the service becomes a 502 naming its status; everything else is an
// opaque 500 with the detail kept in the log.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var statusErr *catastro.StatusError
	if errors.As(err, &statusErr) {
		log.Warn().Int("upstream_status", statusErr.StatusCode).Msg("Catastro WFS rejected the request")
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Catastro WFS request failed: %d", statusErr.StatusCode))
		return
	}

	log.Error().Err(err).Msg("Catastro WFS request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
