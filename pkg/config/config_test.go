package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, float64(0), cfg.Calibration.OffsetCurrent)
	assert.Equal(t, float64(0), cfg.Calibration.OffsetVoltage)
	assert.Equal(t, float64(10000), cfg.Calibration.TIAResistance)
	assert.Equal(t, float64(1.0), cfg.Calibration.RefVoltage)
	assert.Equal(t, float64(32767), cfg.Calibration.ADCFullScale)
	assert.Equal(t, float64(4.096), cfg.Calibration.ADCRefVoltage)
	assert.Equal(t, 10, cfg.Acquisition.SmoothingWindow)
	assert.Equal(t, 100, cfg.Acquisition.BufferSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Acquisition.PollInterval)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  baud_rate: 9600
  read_timeout: 250ms

calibration:
  offset_current: 0.35
  offset_voltage: -0.01
  tia_resistance: 20000
  ref_voltage: 1.65
  adc_full_scale: 4095
  adc_ref_voltage: 3.3

acquisition:
  smoothing_window: 5
  buffer_size: 200
  poll_interval: 100ms
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 0.35, cfg.Calibration.OffsetCurrent)
	assert.Equal(t, -0.01, cfg.Calibration.OffsetVoltage)
	assert.Equal(t, float64(20000), cfg.Calibration.TIAResistance)
	assert.Equal(t, 1.65, cfg.Calibration.RefVoltage)
	assert.Equal(t, float64(4095), cfg.Calibration.ADCFullScale)
	assert.Equal(t, 3.3, cfg.Calibration.ADCRefVoltage)
	assert.Equal(t, 5, cfg.Acquisition.SmoothingWindow)
	assert.Equal(t, 200, cfg.Acquisition.BufferSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Acquisition.PollInterval)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)                 // default
	assert.Equal(t, float64(10000), cfg.Calibration.TIAResistance) // default
	assert.Equal(t, 10, cfg.Acquisition.SmoothingWindow)         // default
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Calibration.OffsetCurrent = 1.25

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", loaded.Serial.Port)
	assert.Equal(t, 1.25, loaded.Calibration.OffsetCurrent)
	assert.Equal(t, cfg.Calibration.TIAResistance, loaded.Calibration.TIAResistance)
}

func TestEnsureDefaults_ZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.ensureDefaults()

	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, float64(10000), cfg.Calibration.TIAResistance)
	assert.Equal(t, float64(32767), cfg.Calibration.ADCFullScale)
	assert.Equal(t, 10, cfg.Acquisition.SmoothingWindow)
	assert.Equal(t, 100, cfg.Acquisition.BufferSize)
}
