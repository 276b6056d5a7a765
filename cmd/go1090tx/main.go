package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go1090tx/internal/adsb"
	"go1090tx/internal/app"
	"go1090tx/internal/beast"
	"go1090tx/internal/sim"
)

// generatorOptions are the flags that do not map one-to-one onto app.Config
type generatorOptions struct {
	scenarioPath string
	centers      []string
	latitude     float64
	longitude    float64
}

func main() {
	rootCmd := newRootCmd(func(config app.Config) error {
		return app.NewApplication(config).Start()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree; run is called with the final
// generator configuration
func newRootCmd(run func(app.Config) error) *cobra.Command {
	config := app.DefaultConfig()
	var opts generatorOptions

	rootCmd := &cobra.Command{
		Use:   "go1090tx",
		Short: "ADS-B 1090ES frame generator",
		Long: `ADS-B 1090ES traffic generator (dump1090 AVR/Beast input).

Simulates aircraft around one or more geographic centers and streams DF17
airborne position (even/odd CPR pairs) and airborne velocity frames to a
receiver's raw input port, one TCP connection per center.

Example usage:
  go1090tx --host 10.50.172.24 --aircraft 100 --lat 33.3699 --long -81.9645
  go1090tx --center Augusta:33.3699,-81.9645 --center Orange:33.599107,-81.030564
  go1090tx --config scenario.toml --format beast --archive-dir ./archive`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			final, err := resolveConfig(cmd, config, opts)
			if err != nil {
				return err
			}
			return run(final)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&config.Host, app.FlagHost, app.DefaultHost, "Receiver host")
	flags.IntVarP(&config.Port, app.FlagPort, "p", app.DefaultPort, "Receiver input port (30001 AVR, 30004 Beast)")
	flags.IntVarP(&config.Aircraft, app.FlagAircraft, "n", app.DefaultAircraft, "Aircraft per center")
	flags.Float64Var(&opts.latitude, "lat", 0, "Latitude of a single center")
	flags.Float64Var(&opts.longitude, "long", 0, "Longitude of a single center")
	flags.StringArrayVar(&opts.centers, "center", nil, "Center as name:lat,lon (repeatable)")
	flags.StringVarP(&opts.scenarioPath, "config", "c", "", "Scenario file (TOML)")
	flags.StringVar(&config.Format, app.FlagFormat, app.DefaultFormat, "Output format: avr or beast")
	flags.StringVar(&config.ArchiveDir, "archive-dir", "", "Directory for daily frame and truth archives (disabled when empty)")
	flags.BoolVar(&config.ArchiveUTC, "archive-utc", true, "Use UTC for archive rotation")
	flags.IntVar(&config.ArchiveMaxDays, app.FlagArchiveMaxDays, 0, "Delete archives older than this many days (0 keeps all)")
	flags.StringVar(&config.LogFile, "log-file", "", "Also write the diagnostic log to this file")
	flags.StringVar(&config.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	flags.Int64Var(&config.Seed, "seed", 0, "Random seed (0 uses the clock)")
	flags.Float64Var(&config.RadiusKm, app.FlagRadiusKm, app.DefaultRadiusKm, "Replace aircraft farther than this from their center (0 disables)")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&config.ShowVersion, "version", false, "Show version information")

	rootCmd.AddCommand(newEncodeCmd())

	return rootCmd
}

// resolveConfig merges scenario file, center flags and format defaults
func resolveConfig(cmd *cobra.Command, config app.Config, opts generatorOptions) (app.Config, error) {
	flags := cmd.Flags()

	var scenario *app.Scenario
	if opts.scenarioPath != "" {
		var err error
		scenario, err = app.LoadScenario(opts.scenarioPath)
		if err != nil {
			return config, err
		}
	}
	config.ApplyScenario(scenario, flags.Changed)

	var point *sim.Center
	if flags.Changed("lat") || flags.Changed("long") {
		if !flags.Changed("lat") || !flags.Changed("long") {
			return config, fmt.Errorf("--lat and --long must be given together")
		}
		point = &sim.Center{Name: "Custom", Latitude: opts.latitude, Longitude: opts.longitude}
	}

	centers, err := app.ResolveCenters(opts.centers, point, scenario)
	if err != nil {
		return config, err
	}
	config.Centers = centers

	format, err := beast.ParseFormat(config.Format)
	if err != nil {
		return config, err
	}
	if !flags.Changed(app.FlagPort) && (scenario == nil || scenario.Port == 0) {
		config.Port = format.DefaultPort()
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Print a single AVR frame",
	}

	var (
		icao      string
		lat, lon  float64
		altitude  float64
		odd       bool
		speed     float64
		heading   float64
		climbRate float64
	)

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Encode a TC 11 airborne position frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parity := adsb.Even
			if odd {
				parity = adsb.Odd
			}
			frame, err := adsb.PositionAVR(icao, lat, lon, altitude, parity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), frame)
			return nil
		},
	}
	positionCmd.Flags().StringVar(&icao, "icao", "", "ICAO address (hex)")
	positionCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	positionCmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	positionCmd.Flags().Float64Var(&altitude, "alt", 0, "Altitude (ft)")
	positionCmd.Flags().BoolVar(&odd, "odd", false, "Odd CPR format")
	positionCmd.MarkFlagRequired("icao")

	velocityCmd := &cobra.Command{
		Use:   "velocity",
		Short: "Encode a TC 19 airborne velocity frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := adsb.VelocityAVR(icao, speed, heading, climbRate)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), frame)
			return nil
		},
	}
	velocityCmd.Flags().StringVar(&icao, "icao", "", "ICAO address (hex)")
	velocityCmd.Flags().Float64Var(&speed, "speed", 0, "Ground speed (kt)")
	velocityCmd.Flags().Float64Var(&heading, "heading", 0, "Track, degrees clockwise from north")
	velocityCmd.Flags().Float64Var(&climbRate, "vrate", 0, "Vertical rate (ft/min)")
	velocityCmd.MarkFlagRequired("icao")

	encodeCmd.AddCommand(positionCmd, velocityCmd)
	return encodeCmd
}
