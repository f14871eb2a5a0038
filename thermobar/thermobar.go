// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermobar draws a temperature as a 1D colored bar on the terminal
// using ANSI color codes.
//
// The bar is redrawn in place on each call to Draw, so a polling loop shows a
// live gauge. When the output is not a terminal the bar is drawn with plain
// characters instead.
package thermobar

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/GermanBionicSystems/thermocouple/max6675"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Opts represents the options available for the bar.
type Opts struct {
	// X is the number of cells of the bar.
	X int

	// Min and Max are the temperatures at the empty and full ends of the bar.
	// Both default to the MAX6675 range.
	Min, Max max6675.Temperature

	Palette *ansi256.Palette

	// W defaults to stdout, colored when stdout is a terminal. Output to
	// another W is colored only if Color is set.
	W     io.Writer
	Color bool

	_ struct{}
}

// DefaultOpts is a 40 cells bar spanning the device range.
var DefaultOpts = Opts{
	X:   40,
	Min: max6675.Celsius(0),
	Max: max6675.Celsius(1023.75),
}

// Dev is a temperature gauge that outputs to the console.
type Dev struct {
	w        io.Writer
	l        int
	min, max float64
	color    bool
	palette  ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev that draws at the console.
func New(opts *Opts) (*Dev, error) {
	if opts.X <= 0 {
		return nil, fmt.Errorf("thermobar: invalid width %d", opts.X)
	}
	lo, hi := opts.Min.ToCelsius().Value(), opts.Max.ToCelsius().Value()
	if lo == 0 && hi == 0 {
		lo, hi = DefaultOpts.Min.Value(), DefaultOpts.Max.Value()
	}
	if lo >= hi {
		return nil, fmt.Errorf("thermobar: invalid range %s..%s", opts.Min, opts.Max)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		w:       opts.W,
		l:       opts.X,
		min:     lo,
		max:     hi,
		color:   opts.Color,
		palette: *p,
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
		d.color = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
	return d, nil
}

func (d *Dev) String() string {
	return "ThermoBar"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and ends the line.
func (d *Dev) Halt() error {
	if !d.color {
		_, err := d.w.Write([]byte("\n"))
		return err
	}
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Draw redraws the bar for t followed by its value.
func (d *Dev) Draw(t max6675.Temperature) error {
	n := d.cells(t)
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r")
	if d.color {
		_, _ = d.buf.WriteString("\033[0m")
	}
	for i := 0; i < d.l; i++ {
		switch {
		case i >= n:
			_ = d.buf.WriteByte(' ')
		case d.color:
			_, _ = io.WriteString(&d.buf, d.palette.Block(gradient(i, d.l)))
		default:
			_ = d.buf.WriteByte('#')
		}
	}
	if d.color {
		_, _ = d.buf.WriteString("\033[0m")
	}
	_, _ = fmt.Fprintf(&d.buf, " %s ", t)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// cells returns how many cells are lit for t.
func (d *Dev) cells(t max6675.Temperature) int {
	c := t.ToCelsius().Value()
	switch {
	case c <= d.min:
		return 0
	case c >= d.max:
		return d.l
	}
	return int(float64(d.l) * (c - d.min) / (d.max - d.min))
}

// gradient returns the color of cell i out of l, going from blue on the
// first cell to red on the last.
func gradient(i, l int) color.NRGBA {
	r := uint8(255)
	if l > 1 {
		r = uint8(255 * i / (l - 1))
	}
	return color.NRGBA{R: r, G: 0, B: 255 - r, A: 255}
}
