// Package config layers walk.Config from defaults, an optional config file and
// FOCUS_WALKER_* environment variables, and watches the file for changes.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Bucknalla/go-focus-walker/walk"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FOCUS_WALKER_SPEED_KMH
const EnvPrefix = "FOCUS_WALKER"

// Loader holds the resolved configuration
type Loader struct {
	v    *viper.Viper
	path string

	mu      sync.RWMutex
	current walk.Config
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment are used. The file type follows its extension
// (yaml, toml, json).
func Load(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v, walk.DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &Loader{v: v, path: path, current: cfg}, nil
}

// Config returns the current configuration
func (l *Loader) Config() walk.Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Path returns the config file in use, if any
func (l *Loader) Path() string {
	return l.path
}

// Watch calls onChange with the re-read configuration whenever the config file
// is written. Invalid updates are reported through onError and ignored.
func (l *Loader) Watch(onChange func(walk.Config), onError func(error)) {
	if l.path == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(l.v)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("ignoring config change in %s: %w", e.Name, err))
			}
			return
		}

		l.mu.Lock()
		l.current = cfg
		l.mu.Unlock()

		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

func decode(v *viper.Viper) (walk.Config, error) {
	var cfg walk.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return walk.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to Unmarshal
func setDefaults(v *viper.Viper, d walk.Config) {
	v.SetDefault("speed_kmh", d.SpeedKMH)
	v.SetDefault("step_length", d.StepLength)
	v.SetDefault("route_timeout", d.RouteTimeout)
	v.SetDefault("tick_rate", d.TickRate)
	v.SetDefault("osrm_base_url", d.OSRMBaseURL)
	v.SetDefault("profile", d.Profile)
	v.SetDefault("nominatim_base_url", d.NominatimBaseURL)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("serial_port", d.SerialPort)
	v.SetDefault("baud_rate", d.BaudRate)
	v.SetDefault("nmea", d.NMEA)
	v.SetDefault("gpx_enabled", d.GPXEnabled)
	v.SetDefault("gpx_file", d.GPXFile)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("static_dir", d.StaticDir)
}
