package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	geo "github.com/kellydunn/golang-geo"

	"go1090tx/internal/adsb"
)

const (
	// KmPerNauticalMile converts knots to km/h
	KmPerNauticalMile = 1.852

	// initial spread around the center, degrees
	spawnOffsetDeg = 0.3

	minSpeedKnots = 250
	maxSpeedKnots = 500

	// aircraft level off instead of descending through this altitude
	MinAltitudeFt = 1000
)

var (
	cruiseAltitudes = []float64{3500, 7500, 10000, 15000, 20750, 25000, 32000, 35000}
	climbRates      = []float64{-500, -300, -100, 0, 0, 0, 100, 300, 500}
)

// Center is a named geographic point aircraft are generated around
type Center struct {
	Name      string  `toml:"name"`
	Latitude  float64 `toml:"lat"`
	Longitude float64 `toml:"lon"`
}

// String formats the center as name(lat,lon)
func (c Center) String() string {
	return fmt.Sprintf("%s(%.6f,%.6f)", c.Name, c.Latitude, c.Longitude)
}

// Point returns the center as a golang-geo point
func (c Center) Point() *geo.Point {
	return geo.NewPoint(c.Latitude, c.Longitude)
}

// Aircraft is one simulated target flying a straight great-circle track
type Aircraft struct {
	ICAO         adsb.ICAOAddress
	Latitude     float64
	Longitude    float64
	AltitudeFt   float64
	SpeedKnots   float64
	HeadingDeg   float64
	ClimbRateFPM float64
	LastUpdate   time.Time
}

// NewAircraft creates a random aircraft near center
func NewAircraft(center Center, rng *rand.Rand, now time.Time) *Aircraft {
	return &Aircraft{
		ICAO:         adsb.NewICAOAddress(uint32(rng.Intn(0x1000000))),
		Latitude:     center.Latitude + uniform(rng, -spawnOffsetDeg, spawnOffsetDeg),
		Longitude:    center.Longitude + uniform(rng, -spawnOffsetDeg, spawnOffsetDeg),
		AltitudeFt:   cruiseAltitudes[rng.Intn(len(cruiseAltitudes))],
		SpeedKnots:   float64(minSpeedKnots + rng.Intn(maxSpeedKnots-minSpeedKnots+1)),
		HeadingDeg:   float64(rng.Intn(360)),
		ClimbRateFPM: climbRates[rng.Intn(len(climbRates))],
		LastUpdate:   now,
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// Advance moves the aircraft to its position at now
func (a *Aircraft) Advance(now time.Time) {
	elapsed := now.Sub(a.LastUpdate)
	a.LastUpdate = now
	if elapsed <= 0 {
		return
	}

	hours := elapsed.Hours()
	distKm := a.SpeedKnots * KmPerNauticalMile * hours
	if distKm > 0 {
		p := geo.NewPoint(a.Latitude, a.Longitude).PointAtDistanceAndBearing(distKm, a.HeadingDeg)
		a.Latitude = math.Max(-90, math.Min(90, p.Lat()))
		a.Longitude = wrapLongitude(p.Lng())
	}

	a.AltitudeFt += a.ClimbRateFPM * elapsed.Minutes()
	if a.AltitudeFt < MinAltitudeFt {
		a.AltitudeFt = MinAltitudeFt
		a.ClimbRateFPM = 0
	}
}

func wrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// DistanceKm returns the great-circle distance from the aircraft to center
func (a *Aircraft) DistanceKm(center Center) float64 {
	return geo.NewPoint(a.Latitude, a.Longitude).GreatCircleDistance(center.Point())
}

// Position returns the current position
func (a *Aircraft) Position() adsb.Position {
	return adsb.Position{Latitude: a.Latitude, Longitude: a.Longitude}
}

// Velocity returns the current velocity vector
func (a *Aircraft) Velocity() adsb.Velocity {
	return adsb.Velocity{
		SpeedKnots:      a.SpeedKnots,
		HeadingDeg:      a.HeadingDeg,
		VerticalRateFPM: a.ClimbRateFPM,
	}
}

// PositionFrame encodes the current position with the given CPR parity
func (a *Aircraft) PositionFrame(parity adsb.Parity) adsb.Frame {
	return adsb.EncodeAirbornePosition(a.ICAO, a.Position(), a.AltitudeFt, parity)
}

// Frames returns the even and odd position frames followed by the velocity
// frame, all encoded from the same state
func (a *Aircraft) Frames() []adsb.Frame {
	return []adsb.Frame{
		a.PositionFrame(adsb.Even),
		a.PositionFrame(adsb.Odd),
		a.VelocityFrame(),
	}
}

// VelocityFrame encodes the current velocity
func (a *Aircraft) VelocityFrame() adsb.Frame {
	return adsb.EncodeAirborneVelocity(a.ICAO, a.Velocity())
}
