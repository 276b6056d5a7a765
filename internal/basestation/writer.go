package basestation

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go1090tx/internal/adsb"
	"go1090tx/internal/sim"
)

// BaseStation message types
const (
	BaseStationMSG = "MSG" // Transmission
)

// BaseStation transmission types written by this package
const (
	TransmissionES_AIRBORNE = 3 // Extended Squitter Airborne Position
	TransmissionES_VELOCITY = 4 // Extended Squitter Airborne Velocity
)

const (
	dateLayout = "2006/01/02"
	timeLayout = "15:04:05.000"
)

// Message is one SBS (BaseStation) CSV record
type Message struct {
	MessageType      string
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	DateGenerated    time.Time
	TimeGenerated    time.Time
	DateLogged       time.Time
	TimeLogged       time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// Writer records the simulated ground truth as SBS lines, one per frame
// sent, so a receiver's decoded output can be compared against it
type Writer struct {
	out       io.Writer
	logger    *logrus.Logger
	sessionID int

	mutex       sync.Mutex
	aircraftIDs map[adsb.ICAOAddress]int
}

// NewWriter creates a new BaseStation writer
func NewWriter(out io.Writer, logger *logrus.Logger) *Writer {
	return &Writer{
		out:         out,
		logger:      logger,
		sessionID:   1,
		aircraftIDs: make(map[adsb.ICAOAddress]int),
	}
}

// WritePosition writes an MSG,3 record with the altitude and position the
// position frames encode
func (w *Writer) WritePosition(a *sim.Aircraft, now time.Time) error {
	msg := w.newMessage(a, TransmissionES_AIRBORNE, now)
	msg.Altitude = strconv.Itoa(quantizeAltitude(a.AltitudeFt))
	msg.Latitude = fmt.Sprintf("%.6f", a.Latitude)
	msg.Longitude = fmt.Sprintf("%.6f", a.Longitude)
	return w.write(msg)
}

// WriteVelocity writes an MSG,4 record with ground speed, track and
// vertical rate
func (w *Writer) WriteVelocity(a *sim.Aircraft, now time.Time) error {
	msg := w.newMessage(a, TransmissionES_VELOCITY, now)
	msg.GroundSpeed = strconv.Itoa(int(math.Round(a.SpeedKnots)))
	msg.Track = fmt.Sprintf("%.1f", a.HeadingDeg)
	msg.VerticalRate = strconv.Itoa(int(math.Round(a.ClimbRateFPM)))
	return w.write(msg)
}

// quantizeAltitude rounds to the 25 ft step of the altitude field
func quantizeAltitude(feet float64) int {
	return int(math.RoundToEven(feet/adsb.AltitudeResolutionFt)) * adsb.AltitudeResolutionFt
}

func (w *Writer) newMessage(a *sim.Aircraft, transmission int, now time.Time) *Message {
	id := w.aircraftID(a.ICAO)
	return &Message{
		MessageType:      BaseStationMSG,
		TransmissionType: transmission,
		SessionID:        w.sessionID,
		AircraftID:       id,
		HexIdent:         a.ICAO.String(),
		FlightID:         id,
		DateGenerated:    now,
		TimeGenerated:    now,
		DateLogged:       now,
		TimeLogged:       now,
		IsOnGround:       "0",
	}
}

// aircraftID assigns sequential ids in order of first appearance
func (w *Writer) aircraftID(icao adsb.ICAOAddress) int {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	id, ok := w.aircraftIDs[icao]
	if !ok {
		id = len(w.aircraftIDs) + 1
		w.aircraftIDs[icao] = id
	}
	return id
}

func (w *Writer) write(msg *Message) error {
	line := FormatCSV(msg) + "\n"
	if _, err := w.out.Write([]byte(line)); err != nil {
		w.logger.WithError(err).WithField("icao", msg.HexIdent).Debug("Failed to write BaseStation record")
		return fmt.Errorf("failed to write to log: %w", err)
	}
	return nil
}

// FormatCSV formats a BaseStation message as its 22-field CSV line
func FormatCSV(msg *Message) string {
	fields := []string{
		msg.MessageType,
		strconv.Itoa(msg.TransmissionType),
		strconv.Itoa(msg.SessionID),
		strconv.Itoa(msg.AircraftID),
		msg.HexIdent,
		strconv.Itoa(msg.FlightID),
		msg.DateGenerated.Format(dateLayout),
		msg.TimeGenerated.Format(timeLayout),
		msg.DateLogged.Format(dateLayout),
		msg.TimeLogged.Format(timeLayout),
		msg.Callsign,
		msg.Altitude,
		msg.GroundSpeed,
		msg.Track,
		msg.Latitude,
		msg.Longitude,
		msg.VerticalRate,
		msg.Squawk,
		msg.Alert,
		msg.Emergency,
		msg.SPI,
		msg.IsOnGround,
	}

	return strings.Join(fields, ",")
}
