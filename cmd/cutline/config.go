package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cutline-project/cutline-go/pkg/driver"
)

// Config holds the console configuration.
type Config struct {
	ConfigFile    string
	LogLevel      string
	CaptureFile   string
	MaterialsFile string
	Units         string
	Interactive   bool

	// One-shot mode
	JobFile  string
	Device   string
	DriverID string

	// Drivers holds per-driver tuning from the config file.
	Drivers map[string]driver.Config
}

// fileConfig is the YAML layout of a -config file:
//
//	log_level: debug
//	capture: /var/log/cutline/session.clog
//	materials_file: materials.yaml
//	units: mm
//	drivers:
//	  hpgl:
//	    units: in
//	    baud_rate: 9600
//	    pace_delay: 25ms
//	    progress_interval: 20
type fileConfig struct {
	LogLevel      string                      `yaml:"log_level"`
	Capture       string                      `yaml:"capture"`
	MaterialsFile string                      `yaml:"materials_file"`
	Units         string                      `yaml:"units"`
	Drivers       map[string]fileDriverConfig `yaml:"drivers"`
}

type fileDriverConfig struct {
	Units            string `yaml:"units"`
	BaudRate         int    `yaml:"baud_rate"`
	PaceDelay        string `yaml:"pace_delay"`
	ProgressInterval int    `yaml:"progress_interval"`
}

// loadConfigFile reads path into cfg. Fields already set on cfg by
// explicit flags are kept.
func loadConfigFile(path string, cfg *Config, explicit map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseConfig(data, cfg, explicit)
}

func parseConfig(data []byte, cfg *Config, explicit map[string]bool) error {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config YAML parse error: %w", err)
	}

	set := func(flagName string, dst *string, v string) {
		if v != "" && !explicit[flagName] {
			*dst = v
		}
	}
	set("log-level", &cfg.LogLevel, f.LogLevel)
	set("capture", &cfg.CaptureFile, f.Capture)
	set("materials", &cfg.MaterialsFile, f.MaterialsFile)
	set("units", &cfg.Units, f.Units)

	if len(f.Drivers) > 0 {
		cfg.Drivers = make(map[string]driver.Config, len(f.Drivers))
	}
	for id, d := range f.Drivers {
		dc := driver.Config{BaudRate: d.BaudRate, ProgressInterval: d.ProgressInterval}
		if d.PaceDelay != "" {
			pace, err := time.ParseDuration(d.PaceDelay)
			if err != nil {
				return fmt.Errorf("driver %s: pace_delay: %w", id, err)
			}
			dc.PaceDelay = pace
		}
		if d.Units != "" {
			units, err := driver.ParseUnits(d.Units)
			if err != nil {
				return fmt.Errorf("driver %s: %w", id, err)
			}
			dc.Units = units
		}
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("driver %s: %w", id, err)
		}
		cfg.Drivers[id] = dc
	}
	return nil
}
