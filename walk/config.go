package walk

import (
	"math"
	"time"
)

// Config holds all configuration options for a walk session and its hosts
type Config struct {
	SpeedKMH         float64       `mapstructure:"speed_kmh"`   // walking speed in km/h
	StepLength       float64       `mapstructure:"step_length"` // average stride in meters
	RouteTimeout     time.Duration `mapstructure:"route_timeout"`
	TickRate         time.Duration `mapstructure:"tick_rate"`
	OSRMBaseURL      string        `mapstructure:"osrm_base_url"`
	Profile          string        `mapstructure:"profile"` // OSRM routing profile
	NominatimBaseURL string        `mapstructure:"nominatim_base_url"`
	UserAgent        string        `mapstructure:"user_agent"`
	SerialPort       string        `mapstructure:"serial_port"` // Serial port device (e.g., /dev/ttyUSB0, COM1)
	BaudRate         int           `mapstructure:"baud_rate"`
	NMEA             bool          `mapstructure:"nmea"`        // Emit NMEA sentences of the walker position
	GPXEnabled       bool          `mapstructure:"gpx_enabled"` // Record the walked track with a timestamp filename
	GPXFile          string        `mapstructure:"gpx_file"`    // Generated GPX filename (internal use)
	Quiet            bool          `mapstructure:"quiet"`
	LogLevel         string        `mapstructure:"log_level"`
	Listen           string        `mapstructure:"listen"`
	StaticDir        string        `mapstructure:"static_dir"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		SpeedKMH:         5.0,
		StepLength:       0.75,
		RouteTimeout:     2 * time.Second,
		TickRate:         100 * time.Millisecond,
		OSRMBaseURL:      "https://router.project-osrm.org",
		Profile:          "walking",
		NominatimBaseURL: "https://nominatim.openstreetmap.org",
		UserAgent:        "go-focus-walker",
		BaudRate:         9600,
		LogLevel:         "info",
		Listen:           ":8080",
		StaticDir:        "static",
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if !positive(c.SpeedKMH) {
		return ErrInvalidSpeed
	}
	if !positive(c.StepLength) {
		return ErrInvalidStepLength
	}
	if c.RouteTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.TickRate <= 0 {
		return ErrInvalidTickRate
	}
	if c.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	return nil
}

// SpeedMPS returns the configured speed in meters per second
func (c *Config) SpeedMPS() float64 {
	return KMHToMPS(c.SpeedKMH)
}

// KMHToMPS converts km/h to m/s
func KMHToMPS(kmh float64) float64 {
	return kmh * 1000 / 3600
}

// MPSToKMH converts m/s to km/h
func MPSToKMH(mps float64) float64 {
	return mps * 3600 / 1000
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}
