// Package geo handles geographic data structures and coordinate conversions.
package geo

import "math"

// ETRS89 / UTM zone 30N (EPSG:25830) on the GRS80 ellipsoid. GRS80 and
// WGS84 differ by well under a millimeter, so WGS84 input is accepted as-is.
const (
	semiMajor  = 6378137.0
	flattening = 1.0 / 298.257222101

	scaleFactor  = 0.9996
	falseEasting = 500000.0

	// Central meridian of UTM zone 30, in radians.
	centralMeridian = -3.0 * math.Pi / 180.0

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

var (
	e2  = flattening * (2 - flattening) // first eccentricity squared
	ep2 = e2 / (1 - e2)                 // second eccentricity squared
	e1  = (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
)

// WGS84ToUTM30 projects a WGS84 longitude/latitude pair to EPSG:25830
// easting/northing meters. Safe for concurrent use.
func WGS84ToUTM30(lon, lat float64) (easting, northing float64) {
	phi := lat * degToRad
	lambda := lon * degToRad

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := sinPhi / cosPhi

	nu := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lambda - centralMeridian) * cosPhi

	a2 := a * a
	a3 := a2 * a
	a4 := a2 * a2
	a5 := a4 * a
	a6 := a4 * a2

	easting = falseEasting + scaleFactor*nu*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)

	northing = scaleFactor * (meridianArc(phi) + nu*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))

	return easting, northing
}

// UTM30ToWGS84 is the inverse projection from EPSG:25830 to WGS84 degrees.
// Safe for concurrent use.
func UTM30ToWGS84(easting, northing float64) (lon, lat float64) {
	m := northing / scaleFactor
	mu := m / (semiMajor * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := sinPhi1 / cosPhi1

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	w := 1 - e2*sinPhi1*sinPhi1
	nu1 := semiMajor / math.Sqrt(w)
	rho1 := semiMajor * (1 - e2) / (w * math.Sqrt(w))
	d := (easting - falseEasting) / (nu1 * scaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d2 * d2
	d5 := d4 * d
	d6 := d4 * d2

	phi := phi1 - (nu1*tanPhi1/rho1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lambda := centralMeridian + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	return lambda * radToDeg, phi * radToDeg
}

// meridianArc returns the distance along the meridian from the equator.
func meridianArc(phi float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2

	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
