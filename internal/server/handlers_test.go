package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cadastre-gateway/internal/config"

	"github.com/paulmach/orb/geojson"
)

const upstreamParcelGML = `<?xml version="1.0" encoding="utf-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0"
    xmlns:gml="http://www.opengis.net/gml/3.2"
    xmlns:cp="http://inspire.ec.europa.eu/schemas/cp/4.0">
  <wfs:member>
    <cp:CadastralParcel gml:id="ES.SDGC.CP.TEST1">
      <cp:areaValue uom="m2">5000</cp:areaValue>
      <cp:geometry>
        <gml:MultiSurface gml:id="MS1">
          <gml:surfaceMember>
            <gml:Surface gml:id="S1">
              <gml:patches>
                <gml:PolygonPatch>
                  <gml:exterior>
                    <gml:LinearRing>
                      <gml:posList>440000 4470000 440100 4470000 440100 4470100 440000 4470000</gml:posList>
                    </gml:LinearRing>
                  </gml:exterior>
                </gml:PolygonPatch>
              </gml:patches>
            </gml:Surface>
          </gml:surfaceMember>
        </gml:MultiSurface>
      </cp:geometry>
      <cp:nationalCadastralReference>TEST1REF000001</cp:nationalCadastralReference>
    </cp:CadastralParcel>
  </wfs:member>
</wfs:FeatureCollection>`

const upstreamExceptionGML = `<?xml version="1.0" encoding="utf-8"?>
<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1" version="2.0.0">
  <ows:Exception exceptionCode="NoApplicableCode">
    <ows:ExceptionText>Server error</ows:ExceptionText>
  </ows:Exception>
</ows:ExceptionReport>`

// newTestContext points the gateway at a stub WFS returning a fixed status
// and body. The returned values pointer holds the query parameters of the
// last upstream request.
func newTestContext(t *testing.T, status int, body string) (*ServerContext, *url.Values) {
	t.Helper()

	lastQuery := &url.Values{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*lastQuery = r.URL.Query()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Upstream.URL = upstream.URL
	cfg.Upstream.Timeout = 5

	return NewServerContext(cfg), lastQuery
}

func decodeDetail(t *testing.T, body []byte) string {
	t.Helper()

	var resp map[string]string
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp["detail"]
}

func TestHandleHealth(t *testing.T) {
	ctx, _ := newTestContext(t, http.StatusOK, "")

	rec := httptest.NewRecorder()
	ctx.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "healthy" || got["service"] != "cadastre-gateway" {
		t.Errorf("payload: got %v", got)
	}
}

func TestHandlePlotsBadRequests(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantDetail string
	}{
		{
			name:       "MissingBBox",
			target:     "/api/catastro-plots",
			wantDetail: "Missing required parameter: bbox",
		},
		{
			name:       "MalformedBBox",
			target:     "/api/catastro-plots?bbox=not,numbers,at,all",
			wantDetail: "Invalid BBOX format. Must be minLon,minLat,maxLon,maxLat.",
		},
		{
			name:       "TooFewValues",
			target:     "/api/catastro-plots?bbox=-3.8,40.3,-3.6",
			wantDetail: "Invalid BBOX format. Must be minLon,minLat,maxLon,maxLat.",
		},
	}

	ctx, _ := newTestContext(t, http.StatusOK, upstreamParcelGML)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctx.HandlePlots(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rec.Code)
			}
			if got := decodeDetail(t, rec.Body.Bytes()); got != tt.wantDetail {
				t.Errorf("detail: got %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestHandlePlotsSuccess(t *testing.T) {
	ctx, lastQuery := newTestContext(t, http.StatusOK, upstreamParcelGML)

	rec := httptest.NewRecorder()
	ctx.HandlePlots(rec, httptest.NewRequest(http.MethodGet, "/api/catastro-plots?bbox=-3.8,40.3,-3.6,40.5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type: got %q", ct)
	}

	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features: got %d, want 1", len(fc.Features))
	}
	if v := fc.Features[0].Properties["cadastral_reference"]; v != "TEST1REF000001" {
		t.Errorf("cadastral_reference: got %v", v)
	}

	if got := lastQuery.Get("Typenames"); got != "cp.cadastralparcel" {
		t.Errorf("upstream Typenames: got %q", got)
	}
	if got := lastQuery.Get("SRSname"); got != "EPSG::25830" {
		t.Errorf("upstream SRSname: got %q", got)
	}
	if parts := strings.Split(lastQuery.Get("bbox"), ","); len(parts) != 4 {
		t.Errorf("upstream bbox: got %q", lastQuery.Get("bbox"))
	}
}

func TestHandlePlotsUpstreamStatus(t *testing.T) {
	ctx, _ := newTestContext(t, http.StatusInternalServerError, "boom")

	rec := httptest.NewRecorder()
	ctx.HandlePlots(rec, httptest.NewRequest(http.MethodGet, "/api/catastro-plots?bbox=-3.8,40.3,-3.6,40.5", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", rec.Code)
	}
	if got := decodeDetail(t, rec.Body.Bytes()); got != "Catastro WFS request failed: 500" {
		t.Errorf("detail: got %q", got)
	}
}

func TestHandlePlotsExceptionReport(t *testing.T) {
	ctx, _ := newTestContext(t, http.StatusOK, upstreamExceptionGML)

	rec := httptest.NewRecorder()
	ctx.HandlePlots(rec, httptest.NewRequest(http.MethodGet, "/api/catastro-plots?bbox=-3.8,40.3,-3.6,40.5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(fc.Features) != 0 {
		t.Errorf("features: got %d, want 0", len(fc.Features))
	}
}

func TestHandlePlotsTransportError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstreamURL := upstream.URL
	upstream.Close()

	cfg := config.Default()
	cfg.Upstream.URL = upstreamURL
	cfg.Upstream.Timeout = 2
	ctx := NewServerContext(cfg)

	rec := httptest.NewRecorder()
	ctx.HandlePlots(rec, httptest.NewRequest(http.MethodGet, "/api/catastro-plots?bbox=-3.8,40.3,-3.6,40.5", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if got := decodeDetail(t, rec.Body.Bytes()); got != "Internal server error" {
		t.Errorf("transport details must not leak: got %q", got)
	}
}

func TestStoredQueryHandlers(t *testing.T) {
	tests := []struct {
		name      string
		handler   func(*ServerContext, http.ResponseWriter, *http.Request)
		target    string
		wantQuery string
		wantKey   string
		wantValue string
	}{
		{
			name:      "Parcel",
			handler:   (*ServerContext).HandleParcel,
			target:    "/api/catastro-parcel?refcat=3662001TF3136S",
			wantQuery: "GetParcel",
			wantKey:   "refcat",
			wantValue: "3662001TF3136S",
		},
		{
			name:      "Zone",
			handler:   (*ServerContext).HandleZone,
			target:    "/api/catastro-zone?cod_zona=366200100TF31",
			wantQuery: "GetZoning",
			wantKey:   "cod_zona",
			wantValue: "366200100TF31",
		},
		{
			name:      "ParcelsByZone",
			handler:   (*ServerContext).HandleParcelsByZone,
			target:    "/api/catastro-parcels-by-zone?cod_zona=366200100TF31",
			wantQuery: "GetParcelsByZoning",
			wantKey:   "cod_zona",
			wantValue: "366200100TF31",
		},
		{
			name:      "Neighbors",
			handler:   (*ServerContext).HandleNeighbors,
			target:    "/api/catastro-neighbors?refcat=3662001TF3136S",
			wantQuery: "GetNeighbourParcel",
			wantKey:   "refcat",
			wantValue: "3662001TF3136S",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, lastQuery := newTestContext(t, http.StatusOK, upstreamParcelGML)

			rec := httptest.NewRecorder()
			tt.handler(ctx, rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rec.Code)
			}
			if got := lastQuery.Get("STOREDQUERIE_ID"); got != tt.wantQuery {
				t.Errorf("stored query id: got %q, want %q", got, tt.wantQuery)
			}
			if got := lastQuery.Get(tt.wantKey); got != tt.wantValue {
				t.Errorf("%s: got %q, want %q", tt.wantKey, got, tt.wantValue)
			}

			fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if len(fc.Features) != 1 {
				t.Errorf("features: got %d, want 1", len(fc.Features))
			}
		})
	}
}

func TestStoredQueryMissingParam(t *testing.T) {
	tests := []struct {
		name       string
		handler    func(*ServerContext, http.ResponseWriter, *http.Request)
		target     string
		wantDetail string
	}{
		{
			name:       "Parcel",
			handler:    (*ServerContext).HandleParcel,
			target:     "/api/catastro-parcel",
			wantDetail: "Missing required parameter: refcat",
		},
		{
			name:       "Zone",
			handler:    (*ServerContext).HandleZone,
			target:     "/api/catastro-zone",
			wantDetail: "Missing required parameter: cod_zona",
		},
		{
			name:       "ParcelsByZone",
			handler:    (*ServerContext).HandleParcelsByZone,
			target:     "/api/catastro-parcels-by-zone",
			wantDetail: "Missing required parameter: cod_zona",
		},
		{
			name:       "Neighbors",
			handler:    (*ServerContext).HandleNeighbors,
			target:     "/api/catastro-neighbors",
			wantDetail: "Missing required parameter: refcat",
		},
	}

	ctx, _ := newTestContext(t, http.StatusOK, upstreamParcelGML)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(ctx, rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rec.Code)
			}
			if got := decodeDetail(t, rec.Body.Bytes()); got != tt.wantDetail {
				t.Errorf("detail: got %q, want %q", got, tt.wantDetail)
			}
		})
	}
}
