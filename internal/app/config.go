package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"go1090tx/internal/beast"
	"go1090tx/internal/sim"
)

// Default configuration constants
const (
	DefaultHost     = "localhost"
	DefaultPort     = beast.PortAVRInput
	DefaultAircraft = 10
	DefaultFormat   = "avr"
	DefaultRadiusKm = sim.DefaultRadiusKm

	DefaultPairGap        = 100 * time.Millisecond // between even and odd frame
	DefaultAircraftGap    = 200 * time.Millisecond // between aircraft
	DefaultCycleGap       = 1 * time.Second        // between fleet cycles
	DefaultReconnectDelay = 5 * time.Second
	DefaultStatsInterval  = 30 * time.Second

	MaxAircraft = 1000
)

// Flag names shared by the command line and scenario merging
const (
	FlagHost     = "host"
	FlagPort     = "port"
	FlagAircraft = "aircraft"
	FlagFormat   = "format"
	FlagRadiusKm = "radius-km"

	FlagArchiveMaxDays = "archive-max-days"
)

// DefaultCenters are the three areas the generator covers when no center
// is configured
func DefaultCenters() []sim.Center {
	return []sim.Center{
		{Name: "Augusta", Latitude: 33.3699, Longitude: -81.9645},
		{Name: "Columbia", Latitude: 33.961436, Longitude: -81.143562},
		{Name: "Orange", Latitude: 33.599107, Longitude: -81.030564},
	}
}

// Config holds application configuration
type Config struct {
	Host           string
	Port           int
	Aircraft       int
	Centers        []sim.Center
	Format         string
	ArchiveDir     string
	ArchiveUTC     bool
	ArchiveMaxDays int
	LogFile        string
	MetricsAddr    string
	Seed           int64
	RadiusKm       float64

	PairGap        time.Duration
	AircraftGap    time.Duration
	CycleGap       time.Duration
	ReconnectDelay time.Duration
	StatsInterval  time.Duration

	Verbose     bool
	ShowVersion bool
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() Config {
	return Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		Aircraft:       DefaultAircraft,
		Centers:        DefaultCenters(),
		Format:         DefaultFormat,
		ArchiveUTC:     true,
		RadiusKm:       DefaultRadiusKm,
		PairGap:        DefaultPairGap,
		AircraftGap:    DefaultAircraftGap,
		CycleGap:       DefaultCycleGap,
		ReconnectDelay: DefaultReconnectDelay,
		StatsInterval:  DefaultStatsInterval,
	}
}

// Address returns host:port of the receiver
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration before anything is started
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Aircraft < 1 || c.Aircraft > MaxAircraft {
		return fmt.Errorf("aircraft per center must be between 1 and %d, got %d", MaxAircraft, c.Aircraft)
	}
	if len(c.Centers) == 0 {
		return errors.New("at least one center is required")
	}
	for _, center := range c.Centers {
		if err := validateCenter(center); err != nil {
			return err
		}
	}
	if _, err := beast.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.ArchiveMaxDays < 0 {
		return fmt.Errorf("archive retention must not be negative, got %d days", c.ArchiveMaxDays)
	}
	if c.RadiusKm < 0 {
		return fmt.Errorf("radius must not be negative, got %v", c.RadiusKm)
	}
	if c.PairGap < 0 || c.AircraftGap < 0 || c.CycleGap < 0 {
		return errors.New("pacing intervals must not be negative")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("reconnect delay must be positive")
	}
	if c.StatsInterval <= 0 {
		return errors.New("statistics interval must be positive")
	}
	return nil
}

func validateCenter(c sim.Center) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("center name must not be empty")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("center %s: latitude %v out of range", c.Name, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("center %s: longitude %v out of range", c.Name, c.Longitude)
	}
	return nil
}

// ParseCenter parses "name:lat,lon"
func ParseCenter(s string) (sim.Center, error) {
	name, coords, ok := strings.Cut(s, ":")
	if !ok {
		return sim.Center{}, fmt.Errorf("invalid center %q: want name:lat,lon", s)
	}
	latStr, lonStr, ok := strings.Cut(coords, ",")
	if !ok {
		return sim.Center{}, fmt.Errorf("invalid center %q: want name:lat,lon", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return sim.Center{}, fmt.Errorf("invalid center %q latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return sim.Center{}, fmt.Errorf("invalid center %q longitude: %w", s, err)
	}

	center := sim.Center{Name: strings.TrimSpace(name), Latitude: lat, Longitude: lon}
	if err := validateCenter(center); err != nil {
		return sim.Center{}, err
	}
	return center, nil
}

// Scenario is the optional TOML scenario file. Zero values leave the
// corresponding setting alone.
type Scenario struct {
	Host        string        `toml:"host"`
	Port        int           `toml:"port"`
	Aircraft    int           `toml:"aircraft"`
	Format      string        `toml:"format"`
	RadiusKm    float64       `toml:"radius_km"`
	PairGap     time.Duration `toml:"pair_gap"`
	AircraftGap time.Duration `toml:"aircraft_gap"`
	CycleGap    time.Duration `toml:"cycle_gap"`
	Centers     []sim.Center  `toml:"center"`
}

// LoadScenario reads a scenario file, rejecting unknown keys
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("scenario %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	for _, c := range s.Centers {
		if err := validateCenter(c); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", path, err)
		}
	}

	return &s, nil
}

// ApplyScenario copies scenario values into c, except for settings whose
// flag was given explicitly (changed reports that)
func (c *Config) ApplyScenario(s *Scenario, changed func(flag string) bool) {
	if s == nil {
		return
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if s.Host != "" && !changed(FlagHost) {
		c.Host = s.Host
	}
	if s.Port != 0 && !changed(FlagPort) {
		c.Port = s.Port
	}
	if s.Aircraft != 0 && !changed(FlagAircraft) {
		c.Aircraft = s.Aircraft
	}
	if s.Format != "" && !changed(FlagFormat) {
		c.Format = s.Format
	}
	if s.RadiusKm != 0 && !changed(FlagRadiusKm) {
		c.RadiusKm = s.RadiusKm
	}
	if s.PairGap != 0 {
		c.PairGap = s.PairGap
	}
	if s.AircraftGap != 0 {
		c.AircraftGap = s.AircraftGap
	}
	if s.CycleGap != 0 {
		c.CycleGap = s.CycleGap
	}
}

// ResolveCenters picks the centers to simulate: explicit --center specs
// first, then a single --lat/--long point, then the scenario list, then
// the defaults
func ResolveCenters(specs []string, point *sim.Center, scenario *Scenario) ([]sim.Center, error) {
	if len(specs) > 0 {
		centers := make([]sim.Center, 0, len(specs))
		for _, spec := range specs {
			c, err := ParseCenter(spec)
			if err != nil {
				return nil, err
			}
			centers = append(centers, c)
		}
		return centers, nil
	}

	if point != nil {
		if err := validateCenter(*point); err != nil {
			return nil, err
		}
		return []sim.Center{*point}, nil
	}

	if scenario != nil && len(scenario.Centers) > 0 {
		return scenario.Centers, nil
	}

	return DefaultCenters(), nil
}
