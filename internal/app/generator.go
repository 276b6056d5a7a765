package app

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"go1090tx/internal/adsb"
	"go1090tx/internal/basestation"
	"go1090tx/internal/beast"
	"go1090tx/internal/sim"
	"go1090tx/internal/transport"
)

// Stats are totals across all generators
type Stats struct {
	FramesSent atomic.Uint64
	BytesSent  atomic.Uint64
	Reconnects atomic.Uint64
	SendErrors atomic.Uint64
}

// generator feeds one center's fleet to its own receiver connection
type generator struct {
	center  sim.Center
	fleet   *sim.Fleet
	client  *transport.Client
	encoder *beast.Encoder
	config  Config
	logger  *logrus.Logger
	metrics *Metrics
	stats   *Stats

	frameLog io.Writer           // optional
	truth    *basestation.Writer // optional

	connected bool // a connection has succeeded before
}

// sleep waits d or until ctx is done; it reports whether d elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// run connects and cycles the fleet until ctx is done. Transport errors
// are recovered by reconnecting after the configured delay.
func (g *generator) run(ctx context.Context) error {
	log := g.logger.WithField("center", g.center.Name)
	defer g.client.Close()

	for ctx.Err() == nil {
		if !g.client.Connected() {
			if err := g.client.Connect(ctx); err != nil {
				if ctx.Err() != nil {
					break
				}
				log.WithError(err).Warn("Receiver unavailable, retrying")
				sleep(ctx, g.config.ReconnectDelay)
				continue
			}
			if g.connected {
				g.stats.Reconnects.Add(1)
				g.metrics.reconnected(g.center.Name)
			}
			g.connected = true
		}

		if err := g.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			g.stats.SendErrors.Add(1)
			log.WithError(err).Warn("Send failed, reconnecting")
			sleep(ctx, g.config.ReconnectDelay)
		}
	}

	log.Info("Generator stopped")
	return nil
}

// cycle sends every aircraft once (even, odd, velocity) then churns the
// fleet
func (g *generator) cycle(ctx context.Context) error {
	if n := g.fleet.Advance(time.Now()); n > 0 {
		g.logger.WithFields(logrus.Fields{
			"center":   g.center.Name,
			"replaced": n,
		}).Debug("Replaced aircraft outside the area")
	}
	g.metrics.setAircraft(g.center.Name, g.fleet.Len())

	for _, a := range g.fleet.Aircraft() {
		frames := a.Frames()

		if err := g.send(ctx, a, frames[0], adsb.Even.String()); err != nil {
			return err
		}
		g.writeTruth(a, frameTypePosition)
		if !sleep(ctx, g.config.PairGap) {
			return ctx.Err()
		}

		if err := g.send(ctx, a, frames[1], adsb.Odd.String()); err != nil {
			return err
		}
		if !sleep(ctx, g.config.PairGap) {
			return ctx.Err()
		}

		if err := g.send(ctx, a, frames[2], frameTypeVelocity); err != nil {
			return err
		}
		g.writeTruth(a, frameTypeVelocity)
		if !sleep(ctx, g.config.AircraftGap) {
			return ctx.Err()
		}
	}

	g.fleet.Churn(time.Now())
	g.metrics.setAircraft(g.center.Name, g.fleet.Len())

	if !sleep(ctx, g.config.CycleGap) {
		return ctx.Err()
	}
	return nil
}

// send writes one frame; kind is "even", "odd" or "velocity"
func (g *generator) send(ctx context.Context, a *sim.Aircraft, frame adsb.Frame, kind string) error {
	data := g.encoder.Encode(frame)
	if err := g.client.Write(ctx, data); err != nil {
		return fmt.Errorf("failed to send %s frame for %s: %w", kind, a.ICAO, err)
	}

	frameType := frameTypePosition
	if kind == frameTypeVelocity {
		frameType = frameTypeVelocity
	}

	g.stats.FramesSent.Add(1)
	g.stats.BytesSent.Add(uint64(len(data)))
	g.metrics.frameSent(g.center.Name, frameType, len(data))

	if g.logger.IsLevelEnabled(logrus.DebugLevel) {
		g.logger.WithFields(logrus.Fields{
			"center":   g.center.Name,
			"icao":     a.ICAO.String(),
			"kind":     kind,
			"frame":    frame.AVR(),
			"lat":      fmt.Sprintf("%.4f", a.Latitude),
			"lon":      fmt.Sprintf("%.4f", a.Longitude),
			"altitude": int(a.AltitudeFt),
		}).Debug("Sent frame")
	}

	if g.frameLog != nil {
		line := fmt.Sprintf("%s %s %s\n", time.Now().UTC().Format(time.RFC3339Nano), g.center.Name, frame.AVR())
		if _, err := io.WriteString(g.frameLog, line); err != nil {
			g.logger.WithError(err).Debug("Failed to archive frame")
		}
	}

	return nil
}

func (g *generator) writeTruth(a *sim.Aircraft, frameType string) {
	if g.truth == nil {
		return
	}

	var err error
	now := time.Now()
	if frameType == frameTypeVelocity {
		err = g.truth.WriteVelocity(a, now)
	} else {
		err = g.truth.WritePosition(a, now)
	}
	if err != nil {
		g.logger.WithError(err).Debug("Failed to write truth record")
	}
}
