// Package logging configures the structured log sink shared by every
// broker component.
package logging

// LokiConfig points log shipping at a Grafana Loki endpoint.
type LokiConfig struct {
	Address string            `yaml:"address"`
	Labels  map[string]string `yaml:"labels"`
}

// Config controls logrus's level, formatter and optional Loki hook.
type Config struct {
	Level     string     `yaml:"level" default:"info"`
	Formatter string     `yaml:"formatter" default:"text"`
	Loki      LokiConfig `yaml:"loki"`
}
