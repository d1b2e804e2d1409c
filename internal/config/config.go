package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Platform  string          `yaml:"platform"`
	GNSS      GNSSConfig      `yaml:"gnss"`
	Cellular  CellularConfig  `yaml:"cellular"`
	Location  LocationConfig  `yaml:"location"`
	Power     PowerConfig     `yaml:"power"`
	Env       EnvConfig       `yaml:"env"`
	PPS       PPSConfig       `yaml:"pps"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Web       WebConfig       `yaml:"web"`
}

type GNSSConfig struct {
	Enable   bool   `yaml:"enable"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	Simulate bool   `yaml:"simulate"`
}

type CellularConfig struct {
	Enable          bool          `yaml:"enable"`
	Device          string        `yaml:"device"`
	Baud            int           `yaml:"baud"`
	APN             string        `yaml:"apn"`
	Simulate        bool          `yaml:"simulate"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
}

type LocationConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type PowerConfig struct {
	Enable   bool   `yaml:"enable"`
	I2CBus   string `yaml:"i2c_bus"`
	Simulate bool   `yaml:"simulate"`
}

type EnvConfig struct {
	Enable   bool   `yaml:"enable"`
	I2CBus   string `yaml:"i2c_bus"`
	Simulate bool   `yaml:"simulate"`
}

type PPSConfig struct {
	Enable   bool   `yaml:"enable"`
	Chip     string `yaml:"chip"`
	Line     int    `yaml:"line"`
	Simulate bool   `yaml:"simulate"`
}

type TelemetryConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Platform == "" {
		cfg.Platform = "simulation"
	}
	if cfg.Platform != "simulation" && cfg.Platform != "qcs6490" {
		return Config{}, fmt.Errorf("platform must be simulation or qcs6490, got %q", cfg.Platform)
	}

	if cfg.GNSS.Baud <= 0 {
		cfg.GNSS.Baud = 9600
	}
	if cfg.Cellular.Baud <= 0 {
		cfg.Cellular.Baud = 115200
	}
	if cfg.Cellular.APN == "" {
		cfg.Cellular.APN = "internet"
	}
	if cfg.Cellular.MonitorInterval <= 0 {
		cfg.Cellular.MonitorInterval = 30 * time.Second
	}
	if cfg.Location.Interval <= 0 {
		cfg.Location.Interval = 1 * time.Second
	}
	if cfg.PPS.Line < 0 {
		return Config{}, fmt.Errorf("pps.line must be >= 0")
	}

	if cfg.Telemetry.Enable && cfg.Telemetry.Broker == "" {
		return Config{}, fmt.Errorf("telemetry.broker is required when telemetry.enable is true")
	}
	if cfg.Telemetry.ClientID == "" {
		cfg.Telemetry.ClientID = "orbd"
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	return cfg, nil
}
