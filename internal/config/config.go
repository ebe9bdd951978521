// Package config loads the correlator configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	NATSURL  string   `yaml:"nats_url"`
	Queue    string   `yaml:"queue"`
	Subjects Subjects `yaml:"subjects"`
	HTTPAddr string   `yaml:"http_addr"`
	// ReportFile is the durable drive-manager report location.
	ReportFile string `yaml:"report_file"`
	// HostID overrides the detected hostname when set.
	HostID string `yaml:"host_id"`
	// IncidentHistory bounds the in-memory incident history for the ops API.
	IncidentHistory int `yaml:"incident_history"`
	IncidentDedupe  int `yaml:"incident_dedupe"`
}

// Subjects names the NATS subjects this service consumes and produces.
type Subjects struct {
	// Sensors is the inbound sensor message subject.
	Sensors string `yaml:"sensors"`
	// Egress receives outbound status payloads and acks.
	Egress string `yaml:"egress"`
	// Logging receives IEM incident records.
	Logging string `yaml:"logging"`
}

var defaults = Config{
	NATSURL:  "nats://localhost:4222",
	Queue:    "diskcorr",
	HTTPAddr: ":8080",
	Subjects: Subjects{
		Sensors: "sensors.disk",
		Egress:  "sensors.disk.egress",
		Logging: "sensors.disk.iem",
	},
	ReportFile:      "/tmp/dcs/dmreport/drive_manager.json",
	IncidentHistory: 1000,
	IncidentDedupe:  10000,
}

// Load reads configuration from path. When path is empty the default
// candidate locations are tried; a missing file yields the defaults.
// DISKCORR_* environment variables override file values either way.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/drivewatch/correlator.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/drivewatch/correlator.yaml"),
			"correlator.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := defaults
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.NATSURL = getEnv("DISKCORR_NATS_URL", c.NATSURL)
	c.Queue = getEnv("DISKCORR_QUEUE", c.Queue)
	c.HTTPAddr = getEnv("DISKCORR_HTTP_ADDR", c.HTTPAddr)
	c.ReportFile = getEnv("DISKCORR_REPORT_FILE", c.ReportFile)
	c.HostID = getEnv("DISKCORR_HOST_ID", c.HostID)
	c.Subjects.Sensors = getEnv("DISKCORR_SENSORS_SUBJECT", c.Subjects.Sensors)
	c.Subjects.Egress = getEnv("DISKCORR_EGRESS_SUBJECT", c.Subjects.Egress)
	c.Subjects.Logging = getEnv("DISKCORR_LOGGING_SUBJECT", c.Subjects.Logging)
}

func (c *Config) validate() error {
	switch {
	case c.NATSURL == "":
		return fmt.Errorf("nats_url must not be empty")
	case c.ReportFile == "":
		return fmt.Errorf("report_file must not be empty")
	case c.Subjects.Sensors == "":
		return fmt.Errorf("subjects.sensors must not be empty")
	case c.Subjects.Egress == "":
		return fmt.Errorf("subjects.egress must not be empty")
	case c.Subjects.Logging == "":
		return fmt.Errorf("subjects.logging must not be empty")
	case c.IncidentHistory <= 0 || c.IncidentDedupe <= 0:
		return fmt.Errorf("incident_history and incident_dedupe must be positive")
	}
	return nil
}

// ResolveHostID returns the configured host id, else a best-effort
// fully-qualified hostname.
func (c *Config) ResolveHostID() string {
	if c.HostID != "" {
		return c.HostID
	}
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return strings.TrimSuffix(name, ".")
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
