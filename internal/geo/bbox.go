package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is a WGS84 bounding box in minLon,minLat,maxLon,maxLat order.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// ParseBBox parses a "minLon,minLat,maxLon,maxLat" string. Exactly four
// numeric values are required.
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("expected 4 comma separated values, got %d", len(parts))
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("value %q is not a number", p)
		}
		vals[i] = v
	}

	return BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

// String renders the box in the order ParseBBox accepts.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ToUTM30 projects both corners to ETRS89 / UTM zone 30N. Corners map
// min to min and max to max, which holds for peninsular Spain.
func (b BBox) ToUTM30() UTMBBox {
	minE, minN := WGS84ToUTM30(b.MinLon, b.MinLat)
	maxE, maxN := WGS84ToUTM30(b.MaxLon, b.MaxLat)

	return UTMBBox{
		MinEasting:  minE,
		MinNorthing: minN,
		MaxEasting:  maxE,
		MaxNorthing: maxN,
	}
}

// UTMBBox is a bounding box in EPSG:25830 easting/northing meters.
type UTMBBox struct {
	MinEasting  float64
	MinNorthing float64
	MaxEasting  float64
	MaxNorthing float64
}

// String renders the box as a WFS bbox parameter value, millimeter
// precision, without a trailing CRS component.
func (b UTMBBox) String() string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", b.MinEasting, b.MinNorthing, b.MaxEasting, b.MaxNorthing)
}
