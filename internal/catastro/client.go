// Package catastro talks to the Spanish Cadastre INSPIRE WFS and turns
// its GML responses into GeoJSON.
package catastro

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cadastre-gateway/internal/config"
	"cadastre-gateway/internal/geo"

	"github.com/rs/zerolog/log"
)

// Stored queries published by the Catastro WFS.
const (
	QueryParcel          = "GetParcel"
	QueryZoning          = "GetZoning"
	QueryParcelsByZoning = "GetParcelsByZoning"
	QueryNeighbourParcel = "GetNeighbourParcel"
)

// HTTPClient is the minimal interface the client needs, satisfied by
// *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues GetFeature requests against the Catastro WFS.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	typeNames  string
}

// StatusError reports a non-200 answer from the WFS.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catastro WFS returned status %d", e.StatusCode)
}

// NewClient builds a client for the configured WFS endpoint. The timeout
// is mandatory and bounds the whole request including the body read.
func NewClient(cfg config.Upstream) *Client {
	transport := &http.Transport{
		TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
	}

	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	typeNames := cfg.TypeNames
	if typeNames == "" {
		typeNames = "cp.cadastralparcel"
	}

	return &Client{
		baseURL:   cfg.URL,
		typeNames: typeNames,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(timeout) * time.Second,
		},
	}
}

// NewClientWithHTTP builds a client around a caller-provided HTTP client.
func NewClientWithHTTP(baseURL string, httpClient HTTPClient) *Client {
	return &Client{
		baseURL:    baseURL,
		typeNames:  "cp.cadastralparcel",
		httpClient: httpClient,
	}
}

// ParcelsByBBox requests all cadastral parcels intersecting the box.
// Parameter names and casing follow the service documentation exactly;
// the box goes in EPSG:25830 with the CRS carried by SRSname.
func (c *Client) ParcelsByBBox(ctx context.Context, bbox geo.BBox) ([]byte, error) {
	params := url.Values{}
	params.Set("service", "wfs")
	params.Set("request", "getfeature")
	params.Set("version", "2.0.0")
	params.Set("Typenames", c.typeNames)
	params.Set("SRSname", "EPSG::25830")
	params.Set("bbox", bbox.ToUTM30().String())
	params.Set("outputFormat", "text/xml; subtype=gml/3.2")

	return c.get(ctx, params)
}

// StoredQuery runs one of the published stored queries with a single
// key=value argument. STOREDQUERIE_ID is the spelling the endpoint accepts.
func (c *Client) StoredQuery(ctx context.Context, id, key, value string) ([]byte, error) {
	params := url.Values{}
	params.Set("service", "wfs")
	params.Set("version", "2")
	params.Set("request", "getfeature")
	params.Set("STOREDQUERIE_ID", id)
	params.Set(key, value)
	params.Set("srsname", "EPSG::25830")

	return c.get(ctx, params)
}

// GetCapabilities fetches the service capabilities document.
func (c *Client) GetCapabilities(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("request", "GetCapabilities")
	params.Set("VERSION", "2.0.0")

	return c.get(ctx, params)
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	requestURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build WFS request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catastro WFS request: %w", err)
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read WFS response: %w", err)
	}

	log.Debug().
		Int("bytes", len(body)).
		Str("url", requestURL).
		Msg("Catastro WFS request completed")

	return body, nil
}
