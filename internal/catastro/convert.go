package catastro

import (
	"bytes"
	"strconv"
	"strings"

	"cadastre-gateway/internal/geo"

	"github.com/antchfx/xmlquery"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// Outcome classifies what a conversion produced. The HTTP surface treats
// every outcome as a regular, possibly empty, collection; the distinction
// exists for logging.
type Outcome int

const (
	// OutcomeOK means at least one parcel was converted.
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the document was valid but held no parcels.
	OutcomeEmpty
	// OutcomeException means the WFS answered with an exception report.
	OutcomeException
	// OutcomeUnparsable means the payload was not XML.
	OutcomeUnparsable
)

// Result describes a single conversion run.
type Result struct {
	ExceptionText string
	ParcelsSeen   int
	Skipped       int
	Outcome       Outcome
}

// parcelQueries are tried in order. Catastro responses prefix the INSPIRE
// cadastral parcels namespace as either cp or CP depending on the endpoint.
var parcelQueries = []string{
	"//cp:CadastralParcel",
	"//CP:CadastralParcel",
}

// surfaceQueries pick the geometry payload inside a parcel's geometry
// container, most common nesting first.
var surfaceQueries = []string{
	"*[local-name()='MultiSurface']",
	"*[local-name()='Surface']",
	"*[local-name()='Polygon']",
}

// referenceQueries are the cadastral reference fallbacks, most specific
// first.
var referenceQueries = []string{
	".//*[local-name()='nationalCadastralReference']",
	".//*[local-name()='localId']",
	".//*[local-name()='inspireId']",
}

// Convert turns a Catastro GML response into a GeoJSON feature collection
// of cadastral parcels. It never fails: malformed payloads and upstream
// exception reports yield an empty collection, with the cause recorded in
// the Result. Parcels without usable geometry are skipped one by one.
func Convert(gml []byte) (*geojson.FeatureCollection, Result) {
	fc := geojson.NewFeatureCollection()

	doc, err := xmlquery.Parse(bytes.NewReader(gml))
	if err != nil {
		log.Warn().Err(err).Msg("Catastro response is not parseable XML")
		return fc, Result{Outcome: OutcomeUnparsable}
	}

	// encoding/xml tolerates plain text, so an HTML error page or a raw
	// string still parses. No elements at all means no XML payload.
	if xmlquery.FindOne(doc, "*") == nil {
		log.Warn().Msg("Catastro response contains no XML elements")
		return fc, Result{Outcome: OutcomeUnparsable}
	}

	// The service reports errors inside a 200 response. Match by local
	// name: reports arrive in the ows namespace, not the wfs one.
	if report := xmlquery.FindOne(doc, "//*[local-name()='ExceptionReport']"); report != nil {
		text := getText(report, ".//*[local-name()='ExceptionText']")
		log.Warn().Str("exception", text).Msg("Catastro WFS returned an exception report")
		return fc, Result{Outcome: OutcomeException, ExceptionText: text}
	}

	var parcels []*xmlquery.Node
	for _, q := range parcelQueries {
		found, qerr := xmlquery.QueryAll(doc, q)
		if qerr == nil && len(found) > 0 {
			parcels = found
			break
		}
	}

	if len(parcels) == 0 {
		return fc, Result{Outcome: OutcomeEmpty}
	}

	result := Result{Outcome: OutcomeOK, ParcelsSeen: len(parcels)}

	for _, parcel := range parcels {
		feature, ok := parcelFeature(parcel)
		if !ok {
			result.Skipped++
			continue
		}
		fc.Append(feature)
	}

	return fc, result
}

// parcelFeature builds a single polygon feature from a CadastralParcel
// node. It reports false when the parcel has no usable geometry.
func parcelFeature(parcel *xmlquery.Node) (*geojson.Feature, bool) {
	container := xmlquery.FindOne(parcel, "*[local-name()='geometry']")
	if container == nil {
		return nil, false
	}

	var surface *xmlquery.Node
	for _, q := range surfaceQueries {
		if surface = xmlquery.FindOne(container, q); surface != nil {
			break
		}
	}
	if surface == nil {
		return nil, false
	}

	posList := xmlquery.FindOne(surface, ".//*[local-name()='posList']")
	if posList == nil {
		return nil, false
	}

	ring, ok := parseRing(posList.InnerText())
	if !ok {
		return nil, false
	}

	feature := geojson.NewFeature(orb.Polygon{ring})
	feature.Properties = parcelProperties(parcel)

	return feature, true
}

// parseRing splits a gml:posList into easting/northing pairs and projects
// them to WGS84, preserving order. A trailing unpaired value is dropped.
func parseRing(text string) (orb.Ring, bool) {
	fields := strings.Fields(text)

	ring := make(orb.Ring, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		easting, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, false
		}
		northing, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, false
		}

		lon, lat := geo.UTM30ToWGS84(easting, northing)
		ring = append(ring, orb.Point{lon, lat})
	}

	if len(ring) == 0 {
		return nil, false
	}

	return ring, true
}

func parcelProperties(parcel *xmlquery.Node) geojson.Properties {
	id := parcel.SelectAttr("gml:id")
	if id == "" {
		id = parcel.SelectAttr("id")
	}
	if id == "" {
		id = "unknown"
	}

	reference := "unknown"
	for _, q := range referenceQueries {
		if v := getText(parcel, q); v != "" {
			reference = v
			break
		}
	}

	areaSqm := 0.0
	if v, err := strconv.ParseFloat(getText(parcel, ".//*[local-name()='areaValue']"), 64); err == nil && v > 0 {
		areaSqm = v
	}

	areaHectares := 0.0
	if areaSqm > 0 {
		areaHectares = areaSqm / 10000
	}

	return geojson.Properties{
		"cadastral_id":        id,
		"cadastral_reference": reference,
		"area_sqm":            areaSqm,
		"area_hectares":       areaHectares,
		"country":             "spain",
	}
}

func getText(parent *xmlquery.Node, selector string) string {
	n := xmlquery.FindOne(parent, selector)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}
