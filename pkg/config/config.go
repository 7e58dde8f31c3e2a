package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // keeps the reader loop cancellable
}

// CalibrationConfig contains hardware calibration constants.
// Loaded before a run and never mutated mid-run.
type CalibrationConfig struct {
	OffsetCurrent float64 `yaml:"offset_current"`  // zero-current offset (µA)
	OffsetVoltage float64 `yaml:"offset_voltage"`  // open-circuit offset (V)
	TIAResistance float64 `yaml:"tia_resistance"`  // transimpedance feedback resistor (Ω)
	RefVoltage    float64 `yaml:"ref_voltage"`     // cell reference voltage (V)
	ADCFullScale  float64 `yaml:"adc_full_scale"`  // maximum ADC code
	ADCRefVoltage float64 `yaml:"adc_ref_voltage"` // ADC reference voltage (V)
}

// AcquisitionConfig contains acquisition pipeline parameters.
type AcquisitionConfig struct {
	SmoothingWindow int           `yaml:"smoothing_window"` // sliding window size for current smoothing
	BufferSize      int           `yaml:"buffer_size"`      // event channel buffer size
	PollInterval    time.Duration `yaml:"poll_interval"`    // display drain cadence
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			BaudRate:    115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		Calibration: CalibrationConfig{
			OffsetCurrent: 0.0,
			OffsetVoltage: 0.0,
			TIAResistance: 10000, // 10kΩ TIA
			RefVoltage:    1.0,
			ADCFullScale:  32767, // ADS1115 single-ended
			ADCRefVoltage: 4.096,
		},
		Acquisition: AcquisitionConfig{
			SmoothingWindow: 10,
			BufferSize:      100,
			PollInterval:    50 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Calibration.TIAResistance == 0 {
		c.Calibration.TIAResistance = def.Calibration.TIAResistance
	}
	if c.Calibration.RefVoltage == 0 {
		c.Calibration.RefVoltage = def.Calibration.RefVoltage
	}
	if c.Calibration.ADCFullScale == 0 {
		c.Calibration.ADCFullScale = def.Calibration.ADCFullScale
	}
	if c.Calibration.ADCRefVoltage == 0 {
		c.Calibration.ADCRefVoltage = def.Calibration.ADCRefVoltage
	}

	if c.Acquisition.SmoothingWindow == 0 {
		c.Acquisition.SmoothingWindow = def.Acquisition.SmoothingWindow
	}
	if c.Acquisition.BufferSize == 0 {
		c.Acquisition.BufferSize = def.Acquisition.BufferSize
	}
	if c.Acquisition.PollInterval == 0 {
		c.Acquisition.PollInterval = def.Acquisition.PollInterval
	}
}
