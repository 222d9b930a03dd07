package broker

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/plantd-io/meshbroker/logging"
	"gopkg.in/yaml.v2"
)

// Config holds every tunable of a ClientEnv. Zero-valued fields are not
// valid input; use DefaultConfig and override from there.
type Config struct {
	HeartbeatIntervalMin time.Duration `yaml:"heartbeat_interval_min" default:"2000ms"`
	HeartbeatIntervalMax time.Duration `yaml:"heartbeat_interval_max" default:"32000ms"`
	HeartbeatLivenessMax int           `yaml:"heartbeat_liveness_max" default:"5"`
	TickerResolution     time.Duration `yaml:"ticker_resolution" default:"50ms"`
	NewPeerGrace         time.Duration `yaml:"new_peer_grace" default:"2000ms"`

	ControlQueueBuffer int           `yaml:"control_queue_buffer" default:"256"`
	SelectPollTimeout  time.Duration `yaml:"select_poll_timeout" default:"100ms"`
	SocketRcvHWM       int           `yaml:"socket_rcv_hwm" default:"1000"`
	SocketSndHWM       int           `yaml:"socket_snd_hwm" default:"1000"`

	MetricsEnabled   bool   `yaml:"metrics_enabled" default:"false"`
	MetricsNamespace string `yaml:"metrics_namespace" default:"meshbroker"`

	Log logging.Config `yaml:"log"`
}

// DefaultConfig returns a Config with the values spec'd in const.go.
func DefaultConfig() *Config {
	return &Config{
		HeartbeatIntervalMin: HeartbeatIntervalMin,
		HeartbeatIntervalMax: HeartbeatIntervalMax,
		HeartbeatLivenessMax: HeartbeatLivenessMax,
		TickerResolution:     TickerResolution,
		NewPeerGrace:         NewPeerGrace,
		ControlQueueBuffer:   DefaultControlQueueBuffer,
		SelectPollTimeout:    DefaultSelectPollTimeout,
		SocketRcvHWM:         1000,
		SocketSndHWM:         1000,
		MetricsEnabled:       false,
		MetricsNamespace:     "meshbroker",
		Log: logging.Config{
			Level:     "info",
			Formatter: "text",
		},
	}
}

// LoadConfig reads filename as YAML over the defaults, if it exists, then
// applies MESHBROKER_* environment overrides and validates the result.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			data, err := os.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
			}
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, NewConfigError("invalid configuration", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	if val := os.Getenv("MESHBROKER_HEARTBEAT_INTERVAL_MIN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HeartbeatIntervalMin = d
		}
	}
	if val := os.Getenv("MESHBROKER_HEARTBEAT_INTERVAL_MAX"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HeartbeatIntervalMax = d
		}
	}
	if val := os.Getenv("MESHBROKER_HEARTBEAT_LIVENESS_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.HeartbeatLivenessMax = i
		}
	}
	if val := os.Getenv("MESHBROKER_SOCKET_RCV_HWM"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SocketRcvHWM = i
		}
	}
	if val := os.Getenv("MESHBROKER_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("MESHBROKER_METRICS_ENABLED"); val != "" {
		c.MetricsEnabled = val == "true" || val == "1"
	}
}

// Validate rejects configurations that would violate the heartbeat and
// routing invariants before a ClientEnv is ever created.
func (c *Config) Validate() error {
	if c.HeartbeatIntervalMin <= 0 {
		return fmt.Errorf("heartbeat_interval_min must be positive")
	}
	if c.HeartbeatIntervalMax < c.HeartbeatIntervalMin {
		return fmt.Errorf("heartbeat_interval_max must be >= heartbeat_interval_min")
	}
	if c.HeartbeatLivenessMax <= 0 {
		return fmt.Errorf("heartbeat_liveness_max must be positive")
	}
	if c.ControlQueueBuffer <= 0 {
		return fmt.Errorf("control_queue_buffer must be positive")
	}
	if c.SelectPollTimeout <= 0 {
		return fmt.Errorf("select_poll_timeout must be positive")
	}
	if c.TickerResolution <= 0 {
		return fmt.Errorf("ticker_resolution must be positive")
	}
	if c.SocketRcvHWM <= 0 || c.SocketSndHWM <= 0 {
		return fmt.Errorf("socket_rcv_hwm and socket_snd_hwm must be positive")
	}
	return nil
}

// String renders the configuration as YAML for diagnostics.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
