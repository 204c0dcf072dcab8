package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Bucknalla/go-focus-walker/internal/config"
	"github.com/Bucknalla/go-focus-walker/walk"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

// options holds the values that only exist on the command line
type options struct {
	from        string
	to          string
	focus       time.Duration
	routeFile   string
	configPath  string
	showVersion bool
	logInterval time.Duration

	// flag values; applied over the loaded config only when set
	speed      float64
	step       float64
	rate       time.Duration
	timeout    time.Duration
	osrm       string
	profile    string
	serialPort string
	baud       int
	nmea       bool
	gpx        bool
	quiet      bool
	logLevel   string

	set map[string]bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	defaults := walk.DefaultConfig()
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("focus-walker", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.BoolVar(&opts.showVersion, "version", false, "Show version information and exit")
	fs.StringVar(&opts.from, "from", "", "Start point as \"lat,lon\" or a place name")
	fs.StringVar(&opts.to, "to", "", "Destination as \"lat,lon\" or a place name")
	fs.DurationVar(&opts.focus, "focus", 0, "Focus session length; sets the speed so the walk takes this long (e.g., 25m)")
	fs.StringVar(&opts.routeFile, "route", "", "Walk the route of a GPX file instead of asking the directions service")
	fs.StringVar(&opts.configPath, "config", "", "Config file (yaml, toml or json)")
	fs.DurationVar(&opts.logInterval, "log-interval", 10*time.Second, "How often to log progress")
	fs.Float64Var(&opts.speed, "speed", defaults.SpeedKMH, "Walking speed in km/h")
	fs.Float64Var(&opts.step, "step", defaults.StepLength, "Stride length in meters")
	fs.DurationVar(&opts.rate, "rate", defaults.TickRate, "Tick rate")
	fs.DurationVar(&opts.timeout, "timeout", defaults.RouteTimeout, "How long to wait for the directions service")
	fs.StringVar(&opts.osrm, "osrm", defaults.OSRMBaseURL, "OSRM server base URL")
	fs.StringVar(&opts.profile, "profile", defaults.Profile, "OSRM routing profile")
	fs.StringVar(&opts.serialPort, "serial", "", "Serial port for NMEA output (e.g., /dev/ttyUSB0, COM1)")
	fs.IntVar(&opts.baud, "baud", defaults.BaudRate, "Serial port baud rate")
	fs.BoolVar(&opts.nmea, "nmea", false, "Write NMEA sentences of the walker position to stdout")
	fs.BoolVar(&opts.gpx, "gpx", false, "Record the walked track to a GPX file with a timestamp-based filename")
	fs.BoolVar(&opts.quiet, "quiet", false, "Only log warnings and errors")
	fs.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: focus-walker -from <point> -to <point> [options]\n")
		fmt.Fprintf(output, "\nFocus timer that walks a route while the countdown runs.\n")
		fmt.Fprintf(output, "Points are \"lat,lon\" or a place name to look up.\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// apply overrides config values with the flags given on the command line
func (o *options) apply(cfg *walk.Config) {
	if o.set["speed"] {
		cfg.SpeedKMH = o.speed
	}
	if o.set["step"] {
		cfg.StepLength = o.step
	}
	if o.set["rate"] {
		cfg.TickRate = o.rate
	}
	if o.set["timeout"] {
		cfg.RouteTimeout = o.timeout
	}
	if o.set["osrm"] {
		cfg.OSRMBaseURL = o.osrm
	}
	if o.set["profile"] {
		cfg.Profile = o.profile
	}
	if o.set["serial"] {
		cfg.SerialPort = o.serialPort
	}
	if o.set["baud"] {
		cfg.BaudRate = o.baud
	}
	if o.set["nmea"] {
		cfg.NMEA = o.nmea
	}
	if o.set["gpx"] {
		cfg.GPXEnabled = o.gpx
	}
	if o.set["quiet"] {
		cfg.Quiet = o.quiet
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
}

func (o *options) validate() error {
	if o.routeFile == "" && (strings.TrimSpace(o.from) == "" || strings.TrimSpace(o.to) == "") {
		return errors.New("both -from and -to are required unless -route is given")
	}
	if o.focus < 0 {
		return errors.New("focus duration must be positive")
	}
	if o.logInterval <= 0 {
		return errors.New("log interval must be positive")
	}
	return nil
}

func newLogger(cfg walk.Config, output io.Writer) (*log.Logger, error) {
	logger := log.New()
	// Log to stderr so it doesn't interfere with NMEA output
	logger.SetOutput(output)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Quiet && level > log.WarnLevel {
		level = log.WarnLevel
	}
	logger.SetLevel(level)
	return logger, nil
}

func openSerial(cfg walk.Config) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.SerialPort, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.SerialPort, err)
	}
	return port, nil
}

func gpxFilename(now time.Time) string {
	return fmt.Sprintf("%s.gpx", now.Format("20060102_150405"))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// Handle version flag
	if opts.showVersion {
		if Version != "dev" {
			fmt.Fprintf(stdout, "v%s\n", Version)
		} else {
			fmt.Fprintf(stdout, "%s\n", Commit)
		}
		return 0
	}

	if err := opts.validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	loader, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	cfg := loader.Config()
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid configuration: %v\n", err)
		return 2
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := walkRoute(ctx, cfg, opts, loader, logger, stdout); err != nil {
		logger.WithError(err).Error("Walk failed")
		return 1
	}
	return 0
}

func walkRoute(ctx context.Context, cfg walk.Config, opts *options, loader *config.Loader, logger *log.Logger, stdout io.Writer) error {
	var directions walk.Directions = walk.NewOSRMClient(cfg.OSRMBaseURL, cfg.Profile)
	var from, to walk.Coordinate

	if opts.routeFile != "" {
		leg, err := replayLeg(opts.routeFile)
		if err != nil {
			return err
		}
		directions = walk.DirectionsFunc(func(context.Context, walk.Coordinate, walk.Coordinate) (walk.Leg, error) {
			return leg, nil
		})
		from, to = leg.Geometry[0], leg.Geometry[len(leg.Geometry)-1]
		logger.WithFields(log.Fields{"file": opts.routeFile, "points": len(leg.Geometry)}).Info("Walking recorded route")
	} else {
		geocoder := walk.NewNominatimClient(cfg.NominatimBaseURL, cfg.UserAgent)
		var err error
		if from, err = resolve(ctx, geocoder, opts.from, cfg.RouteTimeout); err != nil {
			return fmt.Errorf("resolve -from: %w", err)
		}
		if to, err = resolve(ctx, geocoder, opts.to, cfg.RouteTimeout); err != nil {
			return fmt.Errorf("resolve -to: %w", err)
		}
	}

	renderers := []walk.ProgressRenderer{walk.NewLogRenderer(logger, opts.logInterval)}

	// Setup NMEA output (serial port or stdout)
	if cfg.SerialPort != "" {
		port, err := openSerial(cfg)
		if err != nil {
			return err
		}
		defer port.Close()
		renderers = append(renderers, walk.NewNMEARenderer(port))
		logger.WithFields(log.Fields{"port": cfg.SerialPort, "baud": cfg.BaudRate}).Info("Opened serial port")
	} else if cfg.NMEA {
		renderers = append(renderers, walk.NewNMEARenderer(stdout))
	}

	var recorder *walk.GPXRecorder
	var err error
	if cfg.GPXEnabled {
		if cfg.GPXFile == "" {
			cfg.GPXFile = gpxFilename(time.Now())
		}
		recorder, err = walk.NewGPXRecorder(cfg.GPXFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close GPX file")
			}
		}()
		renderers = append(renderers, recorder)
		logger.WithField("file", cfg.GPXFile).Info("Recording GPX track")
	}

	acquirer, err := walk.NewAcquirer(directions, cfg.RouteTimeout, logger)
	if err != nil {
		return err
	}
	scheduler, err := walk.NewTickerScheduler(cfg.TickRate)
	if err != nil {
		return err
	}
	session, err := walk.NewSession(cfg, acquirer, scheduler,
		walk.WithRenderers(renderers...),
		walk.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer session.Close()

	route, err := session.SetEndpoints(ctx, from, to)
	if err != nil {
		return err
	}
	if recorder != nil {
		recorder.SetRoute(route)
	}
	if advisory := session.Frame().Advisory; advisory != "" {
		logger.Warn(advisory)
	}

	if opts.focus > 0 {
		if err := session.SetFocusDuration(opts.focus); err != nil {
			return err
		}
	}

	frame := session.Frame()
	logger.WithFields(log.Fields{
		"from":     from.String(),
		"to":       to.String(),
		"tier":     frame.Tier.String(),
		"distance": walk.FormatDistance(frame.TotalLength),
		"steps":    frame.TotalSteps,
		"duration": walk.FormatDuration(frame.Remaining()),
		"speed":    fmt.Sprintf("%.1f km/h", walk.MPSToKMH(frame.Speed)),
	}).Info("Route ready")

	loader.Watch(func(updated walk.Config) {
		if opts.set["speed"] || opts.focus > 0 {
			return
		}
		if walk.KMHToMPS(updated.SpeedKMH) == session.Speed() {
			return
		}
		if err := session.SetSpeed(walk.KMHToMPS(updated.SpeedKMH)); err != nil {
			logger.WithError(err).Warn("Ignoring speed from config")
		}
	}, func(err error) {
		logger.WithError(err).Warn("Config reload failed")
	})

	if err := session.Start(); err != nil {
		return err
	}

	select {
	case <-session.Done():
		final := session.Frame()
		logger.WithFields(log.Fields{
			"steps":    final.StepsTaken,
			"distance": walk.FormatDistance(final.DistanceCovered),
		}).Info("Focus session complete")
	case <-ctx.Done():
		session.Pause()
		logger.WithField("progress", walk.FormatPercent(session.Frame().Progress)).Info("Interrupted")
	}
	return nil
}

func replayLeg(filename string) (walk.Leg, error) {
	gpx, err := walk.ReadGPXFile(filename)
	if err != nil {
		return walk.Leg{}, err
	}
	return gpx.Leg()
}

func resolve(ctx context.Context, g walk.Geocoder, input string, timeout time.Duration) (walk.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return walk.Resolve(ctx, g, input)
}
