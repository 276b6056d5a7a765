package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fleet churn policy
const (
	ChurnProbability = 0.05
	AddProbability   = 0.7
	MaxChurnFleet    = 15 // no additions at or above this size
	MinChurnFleet    = 5  // no removals at or below this size

	DefaultRadiusKm = 100.0
)

// Fleet holds the aircraft generated around one center
type Fleet struct {
	center   Center
	radiusKm float64
	rng      *rand.Rand
	logger   *logrus.Logger

	mutex    sync.RWMutex
	aircraft []*Aircraft
}

// NewFleet creates size aircraft around center. A non-positive radius
// disables replacement of aircraft that fly away.
func NewFleet(center Center, size int, rng *rand.Rand, radiusKm float64, logger *logrus.Logger) *Fleet {
	f := &Fleet{
		center:   center,
		radiusKm: radiusKm,
		rng:      rng,
		logger:   logger,
	}

	now := time.Now()
	for i := 0; i < size; i++ {
		f.aircraft = append(f.aircraft, NewAircraft(center, rng, now))
	}

	return f
}

// Center returns the fleet's center
func (f *Fleet) Center() Center {
	return f.center
}

// Len returns the number of aircraft
func (f *Fleet) Len() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.aircraft)
}

// Aircraft returns a snapshot of the current aircraft list
func (f *Fleet) Aircraft() []*Aircraft {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	out := make([]*Aircraft, len(f.aircraft))
	copy(out, f.aircraft)
	return out
}

// Advance moves every aircraft to now and replaces the ones that have
// left the radius. It returns the number replaced.
func (f *Fleet) Advance(now time.Time) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	replaced := 0
	for i, a := range f.aircraft {
		a.Advance(now)
		if f.radiusKm > 0 && a.DistanceKm(f.center) > f.radiusKm {
			n := NewAircraft(f.center, f.rng, now)
			f.logger.WithFields(logrus.Fields{
				"center": f.center.Name,
				"old":    a.ICAO.String(),
				"new":    n.ICAO.String(),
			}).Debug("Aircraft left the area, replacing")
			f.aircraft[i] = n
			replaced++
		}
	}

	return replaced
}

// Churn occasionally adds or removes one aircraft
func (f *Fleet) Churn(now time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.rng.Float64() >= ChurnProbability {
		return
	}

	if len(f.aircraft) < MaxChurnFleet && f.rng.Float64() < AddProbability {
		a := NewAircraft(f.center, f.rng, now)
		f.aircraft = append(f.aircraft, a)
		f.logger.WithFields(logrus.Fields{
			"center": f.center.Name,
			"icao":   a.ICAO.String(),
		}).Info("New aircraft added")
		return
	}

	if len(f.aircraft) > MinChurnFleet {
		i := f.rng.Intn(len(f.aircraft))
		removed := f.aircraft[i]
		f.aircraft = append(f.aircraft[:i], f.aircraft[i+1:]...)
		f.logger.WithFields(logrus.Fields{
			"center": f.center.Name,
			"icao":   removed.ICAO.String(),
		}).Info("Aircraft removed")
	}
}
