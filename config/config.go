// Package config holds the harness configuration: the MMIO register
// addresses, the run limits, the trace switch, the reporting clock and the
// co-simulation models to load.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rv32tb/cosim"
	"github.com/sarchlab/rv32tb/emu"
)

// Config holds the settings of one harness run.
type Config struct {
	// ExitAddr is the MMIO register a program stores its exit status to.
	// Default: 0x80000000.
	ExitAddr uint32 `json:"exit_addr"`

	// PrintAddr is the MMIO register whose stored low byte is written to
	// the console. Default: 0x80000004.
	PrintAddr uint32 `json:"print_addr"`

	// MaxCycles bounds a run. Zero means unbounded. Default: 10,000,000.
	MaxCycles uint64 `json:"max_cycles"`

	// Trace enables the per-cycle pipeline trace. Default: off.
	Trace bool `json:"trace"`

	// ClockFreq is only used to report simulated time. Default: 100 MHz.
	ClockFreq sim.Freq `json:"clock_freq"`

	// Simulate lists the co-simulation models in priority order.
	// Default: fxmadd, muldiv.
	Simulate []string `json:"simulate"`
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		ExitAddr:  emu.DefaultExitAddr,
		PrintAddr: emu.DefaultPrintAddr,
		MaxCycles: 10_000_000,
		Trace:     false,
		ClockFreq: 100 * sim.MHz,
		Simulate:  slices.Clone(cosim.DefaultModels),
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal returns the indented JSON form of the Config.
func (c *Config) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return append(data, '\n'), nil
}

// Validate checks that the MMIO registers are distinct aligned words, that
// the clock is positive and that every model name is known.
func (c *Config) Validate() error {
	if c.ExitAddr&0x3 != 0 {
		return fmt.Errorf("exit_addr 0x%x must be word aligned", c.ExitAddr)
	}
	if c.PrintAddr&0x3 != 0 {
		return fmt.Errorf("print_addr 0x%x must be word aligned", c.PrintAddr)
	}
	if c.ExitAddr == c.PrintAddr {
		return fmt.Errorf("exit_addr and print_addr must differ")
	}
	if c.ClockFreq <= 0 {
		return fmt.Errorf("clock_freq must be > 0")
	}
	if _, err := cosim.ByName(c.Simulate); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	return nil
}

// Registry builds the co-simulation registry named by Simulate.
func (c *Config) Registry() (*cosim.Registry, error) {
	return cosim.ByName(c.Simulate)
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Simulate = slices.Clone(c.Simulate)
	return &clone
}
