// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// max6675 reads a MAX6675 thermocouple converter and prints the temperature.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/thermocouple/max6675"
	"github.com/GermanBionicSystems/thermocouple/thermobar"
	"github.com/GermanBionicSystems/thermocouple/trend"
	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
	"periph.io/x/host/v3"
)

const (
	pngWidth  = 640
	pngHeight = 320
)

// reader is the part of *max6675.Dev the sampling loop uses.
type reader interface {
	Read(u max6675.Unit) (max6675.Temperature, error)
}

func main() {
	cfg := NewConfig()
	var configFile string

	app := &cli.App{
		Name:  "max6675",
		Usage: "read a MAX6675 thermocouple converter over SPI",
		UsageText: "max6675 [--device /dev/spidev0.0] [--unit c|f|k] [--count N] [--bar] [--png FILE]" +
			"\n\nEXAMPLE:" +
			"\n\tprint 20 readings in Fahrenheit and chart them" +
			"\n\t\tmax6675 -u f -n 20 --png trend.png",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &configFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "device", Aliases: []string{"d"}, Destination: &cfg.Device, Value: cfg.Device, Usage: "SPI `PORT`, a spidev path or alias"},
			&cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Destination: &cfg.Unit, Value: cfg.Unit, Usage: "temperature `UNIT` (c|f|k)"},
			&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Destination: &cfg.Interval, Value: cfg.Interval, Usage: "time between readings"},
			&cli.DurationFlag{Name: "settle", Destination: &cfg.Settle, Value: cfg.Settle, Usage: "wait after opening the device"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Destination: &cfg.Count, Value: cfg.Count, Usage: "number of readings, 0 for no limit"},
			&cli.BoolFlag{Name: "bar", Aliases: []string{"b"}, Destination: &cfg.Bar, Usage: "draw a gauge instead of printing lines"},
			&cli.StringFlag{Name: "png", Destination: &cfg.PNG, Usage: "write a trend chart to `FILE` on exit"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Log.Level, Value: cfg.Log.Level, Usage: "`LEVEL` defines the log level (error|standard|debug|trace)"},
		},
		Action: func(ctx *cli.Context) error {
			if configFile != "" {
				flags := *cfg
				if err := cfg.LoadFile(configFile); err != nil {
					return err
				}
				overrideSet(ctx, cfg, &flags)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			w, err := cfg.openLog()
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()
			return run(ctx.Context, cfg)
		},
	}
	sort.Sort(cli.FlagsByName(app.Flags))

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "max6675: %s.\n", err)
		os.Exit(1)
	}
}

// overrideSet copies the flags explicitly set on the command line from
// flags into cfg, so they win over the config file.
func overrideSet(ctx *cli.Context, cfg, flags *Config) {
	if ctx.IsSet("device") {
		cfg.Device = flags.Device
	}
	if ctx.IsSet("unit") {
		cfg.Unit = flags.Unit
	}
	if ctx.IsSet("interval") {
		cfg.Interval = flags.Interval
	}
	if ctx.IsSet("settle") {
		cfg.Settle = flags.Settle
	}
	if ctx.IsSet("count") {
		cfg.Count = flags.Count
	}
	if ctx.IsSet("bar") {
		cfg.Bar = flags.Bar
	}
	if ctx.IsSet("png") {
		cfg.PNG = flags.PNG
	}
	if ctx.IsSet("log") {
		cfg.Log.Level = flags.Log.Level
	}
}

func run(ctx context.Context, cfg *Config) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	dev, err := max6675.Open(cfg.Device)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			debug.ErrorLog.Print(err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug.InfoLog.Printf("opened %s, waiting %s for the converter to settle", dev, cfg.Settle)
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(cfg.Settle):
	}

	out := func(t max6675.Temperature) error {
		_, err := fmt.Println(t)
		return err
	}
	if cfg.Bar {
		bar, err := thermobar.New(&thermobar.DefaultOpts)
		if err != nil {
			return err
		}
		defer func() { _ = bar.Halt() }()
		out = bar.Draw
	}

	series := &trend.Series{Unit: cfg.TempUnit()}
	err = sample(ctx, dev, cfg, series, out)
	if cfg.PNG != "" && len(series.Samples) != 0 {
		if perr := series.SavePNG(cfg.PNG, pngWidth, pngHeight); perr != nil {
			debug.ErrorLog.Print(perr)
		} else {
			debug.InfoLog.Printf("wrote %d readings to %s", len(series.Samples), cfg.PNG)
		}
	}
	return err
}

// sample reads r every cfg.Interval until cfg.Count readings were attempted
// or ctx is done. An open thermocouple is logged and sampling continues, a
// bus failure stops it.
func sample(ctx context.Context, r reader, cfg *Config, series *trend.Series, out func(max6675.Temperature) error) error {
	u := cfg.TempUnit()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for n := 0; cfg.Count == 0 || n < cfg.Count; n++ {
		if n != 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		t, err := r.Read(u)
		switch {
		case errors.Is(err, max6675.ErrOpenCircuit):
			debug.ErrorLog.Printf("%s, check the thermocouple wiring", err)
			continue
		case err != nil:
			return err
		}
		debug.TraceLog.Printf("reading #%d: %s", n, t)
		series.Add(time.Now(), t)
		if err := out(t); err != nil {
			return err
		}
	}
	return nil
}
