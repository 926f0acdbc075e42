package geo

import (
	"errors"
	"fmt"
	"math"
)

// WGS84 constants.
const (
	k0 = 0.9996
	e  = 0.00669438
	r  = 6378137.0
)

var (
	e2  = e * e
	e3  = e2 * e
	eP2 = e / (1 - e)

	sqrtE = math.Sqrt(1 - e)
	e1    = (1 - sqrtE) / (1 + sqrtE)
	e1_2  = e1 * e1
	e1_3  = e1_2 * e1
	e1_4  = e1_3 * e1
	e1_5  = e1_4 * e1

	m1 = 1 - e/4 - 3*e2/64 - 5*e3/256
	m2 = 3*e/8 + 3*e2/32 + 45*e3/1024
	m3 = 15*e2/256 + 45*e3/1024
	m4 = 35 * e3 / 3072

	p2 = 3.0/2*e1 - 27.0/32*e1_3 + 269.0/512*e1_5
	p3 = 21.0/16*e1_2 - 55.0/32*e1_4
	p4 = 151.0/96*e1_3 - 417.0/128*e1_5
	p5 = 1097.0 / 512 * e1_4
)

const zoneLetters = "CDEFGHJKLMNPQRSTUVWXX"

// ErrZoneMismatch is returned when coordinates from different UTM zones
// are combined.
var ErrZoneMismatch = errors.New("sites do not share a UTM zone")

// Zone identifies a UTM zone, e.g. 10S.
type Zone struct {
	Number int
	Letter string
}

func (z Zone) String() string { return fmt.Sprintf("%d%s", z.Number, z.Letter) }

// Northern reports whether the zone lies in the northern hemisphere.
func (z Zone) Northern() bool { return z.Letter >= "N" }

// Validate checks the zone number and letter ranges.
func (z Zone) Validate() error {
	if z.Number < 1 || z.Number > 60 {
		return fmt.Errorf("zone number out of range (must be between 1 and 60): %d", z.Number)
	}
	if len(z.Letter) != 1 || !containsLetter(z.Letter[0]) {
		return fmt.Errorf("zone letter out of range (must be between C and X): %q", z.Letter)
	}
	return nil
}

func containsLetter(c byte) bool {
	for i := 0; i < len(zoneLetters); i++ {
		if zoneLetters[i] == c {
			return true
		}
	}
	return false
}

// SameZone returns the shared zone of zs, or ErrZoneMismatch.
func SameZone(zs ...Zone) (Zone, error) {
	if len(zs) == 0 {
		return Zone{}, fmt.Errorf("no zones given")
	}
	for _, z := range zs[1:] {
		if z != zs[0] {
			return Zone{}, fmt.Errorf("%w: %s and %s", ErrZoneMismatch, zs[0], z)
		}
	}
	return zs[0], nil
}

// ToLatLon converts UTM easting/northing in zone z to WGS84 degrees.
func ToLatLon(easting, northing float64, z Zone) (lat, lon float64, err error) {
	if err := z.Validate(); err != nil {
		return 0, 0, err
	}
	if easting < 100000 || easting >= 1000000 {
		return 0, 0, fmt.Errorf("easting out of range (must be between 100,000 m and 999,999 m): %f", easting)
	}
	if northing < 0 || northing > 10000000 {
		return 0, 0, fmt.Errorf("northing out of range (must be between 0 m and 10,000,000 m): %f", northing)
	}

	x := easting - 500000
	y := northing
	if !z.Northern() {
		y -= 10000000
	}

	m := y / k0
	mu := m / (r * m1)

	pRad := mu +
		p2*math.Sin(2*mu) +
		p3*math.Sin(4*mu) +
		p4*math.Sin(6*mu) +
		p5*math.Sin(8*mu)

	pSin := math.Sin(pRad)
	pSin2 := pSin * pSin
	pCos := math.Cos(pRad)
	pTan := pSin / pCos
	pTan2 := pTan * pTan
	pTan4 := pTan2 * pTan2

	epSin := 1 - e*pSin2
	epSinSqrt := math.Sqrt(1 - e*pSin2)

	n := r / epSinSqrt
	rad := (1 - e) / epSin

	c := eP2 * pCos * pCos
	c2 := c * c

	d := x / (n * k0)
	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	latRad := pRad - (pTan/rad)*
		(d2/2-
			d4/24*(5+3*pTan2+10*c-4*c2-9*eP2)) +
		d6/720*(61+90*pTan2+298*c+45*pTan4-252*eP2-3*c2)

	lonRad := (d -
		d3/6*(1+2*pTan2+c) +
		d5/120*(5-2*c+28*pTan2-3*c2+8*eP2+24*pTan4)) / pCos

	lat = latRad * 180 / math.Pi
	lon = lonRad*180/math.Pi + centralLongitude(z.Number)
	return lat, lon, nil
}

// FromLatLon converts WGS84 degrees to UTM, choosing the zone.
func FromLatLon(lat, lon float64) (easting, northing float64, z Zone, err error) {
	if lat < -80 || lat > 84 {
		return 0, 0, Zone{}, fmt.Errorf("latitude out of range (must be between 80 deg S and 84 deg N): %f", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, Zone{}, fmt.Errorf("longitude out of range (must be between 180 deg W and 180 deg E): %f", lon)
	}

	latRad := lat * math.Pi / 180
	latSin := math.Sin(latRad)
	latCos := math.Cos(latRad)
	latTan := latSin / latCos
	latTan2 := latTan * latTan
	latTan4 := latTan2 * latTan2

	z = Zone{Number: zoneNumber(lat, lon), Letter: zoneLetter(lat)}

	lonRad := lon * math.Pi / 180
	centralRad := centralLongitude(z.Number) * math.Pi / 180

	n := r / math.Sqrt(1-e*latSin*latSin)
	c := eP2 * latCos * latCos

	a := latCos * (lonRad - centralRad)
	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	m := r * (m1*latRad -
		m2*math.Sin(2*latRad) +
		m3*math.Sin(4*latRad) -
		m4*math.Sin(6*latRad))

	easting = k0*n*(a+
		a3/6*(1-latTan2+c)+
		a5/120*(5-18*latTan2+latTan4+72*c-58*eP2)) + 500000

	northing = k0 * (m + n*latTan*(a2/2+
		a4/24*(5-latTan2+9*c+4*c*c)+
		a6/720*(61-58*latTan2+latTan4+600*c-330*eP2)))

	if lat < 0 {
		northing += 10000000
	}
	return easting, northing, z, nil
}

func zoneLetter(lat float64) string {
	if lat < -80 || lat > 84 {
		return ""
	}
	return string(zoneLetters[int(lat+80)>>3])
}

func zoneNumber(lat, lon float64) int {
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 && lon >= 0 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		case lon < 42:
			return 37
		}
	}
	if lon == 180 {
		return 60
	}
	return int((lon+180)/6) + 1
}

func centralLongitude(zone int) float64 {
	return float64((zone-1)*6 - 180 + 3)
}
