package adsb

import (
	"math"
)

// cprMod performs an always positive MOD operation (dump1090 style)
func cprMod(a, b float64) float64 {
	res := math.Mod(a, b)
	if res < 0 {
		res += b
	}
	return res
}

// NL returns the number of longitude zones at the given latitude, using the
// closed form dump1090 derives its NL table from.
func NL(lat float64) int {
	if lat == 0 {
		return 59
	}
	if lat == 87 || lat == -87 {
		return 2
	}
	if lat > 87 || lat < -87 {
		return 1
	}

	tmp := 1.0 - math.Cos(math.Pi/(2.0*NZ))
	tmp = tmp / math.Pow(math.Cos(math.Pi*lat/180.0), 2)
	tmp = math.Acos(1.0 - tmp)

	nl := int(math.Floor(2.0 * math.Pi / tmp))
	// within a few ulps of the equator the quotient can round up to 60
	if nl > 4*NZ-1 {
		nl = 4*NZ - 1
	}
	return nl
}

// cprDlat returns the size in degrees of a latitude zone
func cprDlat(p Parity) float64 {
	return 360.0 / float64(4*NZ-p.Bit())
}

// cprDlon returns the size in degrees of a longitude zone at lat
func cprDlon(lat float64, p Parity) float64 {
	nl := NL(lat)
	if nl == 0 {
		return 0
	}
	n := nl - p.Bit()
	if n < 1 {
		n = 1
	}
	return 360.0 / float64(n)
}

// clampLatitude limits lat to [-90, 90]
func clampLatitude(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// normalizeLongitude wraps lon into [-180, 180)
func normalizeLongitude(lon float64) float64 {
	if lon < -180 || lon >= 180 {
		lon -= 360 * math.Floor((lon+180)/360)
	}
	// rounding in the step above can land exactly on a boundary
	for lon < -180 {
		lon += 360
	}
	for lon >= 180 {
		lon -= 360
	}
	return lon
}

// cprIndex scales the zone-relative part of v to a 17-bit index
func cprIndex(v, zone float64) CPRCoord {
	if zone == 0 {
		return 0
	}
	return newCPRCoord(int64(math.Floor(CPR_LAT_MAX * (cprMod(v, zone) / zone))))
}

// EncodeCPR encodes an airborne position into 17-bit CPR latitude and
// longitude indices for the given parity. Latitude is clamped and
// longitude wrapped before encoding; no input is rejected.
func EncodeCPR(lat, lon float64, p Parity) (CPRCoord, CPRCoord) {
	lat = clampLatitude(lat)
	lon = normalizeLongitude(lon)

	latCPR := cprIndex(lat, cprDlat(p))
	lonCPR := cprIndex(lon, cprDlon(lat, p))

	return latCPR, lonCPR
}
