// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/GermanBionicSystems/thermocouple/max6675"
	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config holds the program configuration, read from an optional YAML file
// and overridden by command line flags.
type Config struct {
	Device   string        `yaml:"device"`
	Unit     string        `yaml:"unit"`
	Interval time.Duration `yaml:"interval"`
	Settle   time.Duration `yaml:"settle"`
	Count    int           `yaml:"count"`
	Bar      bool          `yaml:"bar"`
	PNG      string        `yaml:"png"`
	Log      LogConfig     `yaml:"log"`
}

// LogConfig defines where and how much is logged.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Device:   "/dev/spidev0.0",
		Unit:     "c",
		Interval: 500 * time.Millisecond,
		Settle:   3 * time.Second,
		Log: LogConfig{
			Level: "standard",
			File:  "stderr",
		},
	}
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading config file %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := yaml.NewDecoder(f).Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("error parsing config file %q: %w", path, err)
	}
	return nil
}

// Validate checks the values that can't be checked by the parser.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("no device")
	}
	if _, err := parseUnit(c.Unit); err != nil {
		return err
	}
	if c.Interval < max6675.ConversionTime {
		return fmt.Errorf("interval %s is shorter than the conversion time %s", c.Interval, max6675.ConversionTime)
	}
	if c.Settle < 0 {
		return fmt.Errorf("invalid settle time %s", c.Settle)
	}
	if c.Count < 0 {
		return fmt.Errorf("invalid count %d", c.Count)
	}
	if _, err := logFlag(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// TempUnit returns the configured unit.
func (c *Config) TempUnit() max6675.Unit {
	u, _ := parseUnit(c.Unit)
	return u
}

func parseUnit(s string) (max6675.Unit, error) {
	switch strings.ToLower(s) {
	case "c", "celsius":
		return max6675.UnitCelsius, nil
	case "f", "fahrenheit":
		return max6675.UnitFahrenheit, nil
	case "k", "kelvin":
		return max6675.UnitKelvin, nil
	default:
		return max6675.UnitCelsius, fmt.Errorf("unknown unit %q, use c, f or k", s)
	}
}

func logFlag(level string) (int, error) {
	switch level {
	case "trace", "full":
		return debug.Full, nil
	case "debug":
		return debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug, nil
	case "standard", "":
		return debug.Standard, nil
	case "error":
		return debug.Error | debug.Fatal, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// openLog sets up the debug loggers and returns the log output, which the
// caller closes.
func (c *Config) openLog() (io.WriteCloser, error) {
	flag, err := logFlag(c.Log.Level)
	if err != nil {
		return nil, err
	}
	var w io.WriteCloser
	switch c.Log.File {
	case "stderr", "":
		w = nopCloser{os.Stderr}
	case "stdout":
		w = nopCloser{os.Stdout}
	default:
		if w, err = os.OpenFile(c.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return nil, fmt.Errorf("unable to open log file %q: %w", c.Log.File, err)
		}
	}
	debug.SetDebug(w, flag)
	return w, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
