// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package trend renders a series of thermocouple readings as a line chart.
package trend

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/thermocouple/max6675"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const margin = 40

var (
	// ErrEmpty is returned when rendering a Series without samples.
	ErrEmpty = errors.New("trend: no samples")

	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

// Sample is one reading taken at a point in time.
type Sample struct {
	At   time.Time
	Temp max6675.Temperature
}

// Series is an ordered list of samples, all plotted in the same unit.
type Series struct {
	Unit    max6675.Unit
	Samples []Sample
}

// Add appends a reading taken at at.
func (s *Series) Add(at time.Time, t max6675.Temperature) {
	s.Samples = append(s.Samples, Sample{At: at, Temp: t})
}

// bounds returns the time span and the value range of the series.
func (s *Series) bounds() (t0, t1 time.Time, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	t0, t1 = s.Samples[0].At, s.Samples[0].At
	for _, p := range s.Samples {
		v := p.Temp.To(s.Unit).Value()
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if p.At.Before(t0) {
			t0 = p.At
		}
		if p.At.After(t1) {
			t1 = p.At
		}
	}
	if hi-lo < 1 {
		lo, hi = lo-0.5, hi+0.5
	}
	return t0, t1, lo, hi
}

// Render draws the series on a white width x height image.
func (s *Series) Render(width, height int) (image.Image, error) {
	if len(s.Samples) == 0 {
		return nil, ErrEmpty
	}
	if width <= 2*margin || height <= 2*margin {
		return nil, fmt.Errorf("trend: image %dx%d too small", width, height)
	}
	f, err := labelFace()
	if err != nil {
		return nil, err
	}
	t0, t1, lo, hi := s.bounds()
	span := t1.Sub(t0).Seconds()
	pw, ph := float64(width-2*margin), float64(height-2*margin)
	x := func(at time.Time) float64 {
		if span == 0 {
			return margin + pw/2
		}
		return margin + pw*at.Sub(t0).Seconds()/span
	}
	y := func(v float64) float64 {
		return margin + ph*(hi-v)/(hi-lo)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	// Axes.
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, margin, margin, margin+ph)
	dc.DrawLine(margin, margin+ph, margin+pw, margin+ph)
	dc.Stroke()

	// Readings.
	dc.SetRGB(0.8, 0.1, 0.1)
	dc.SetLineWidth(2)
	if len(s.Samples) == 1 {
		p := s.Samples[0]
		dc.DrawCircle(x(p.At), y(p.Temp.To(s.Unit).Value()), 3)
		dc.Fill()
	} else {
		for _, p := range s.Samples {
			dc.LineTo(x(p.At), y(p.Temp.To(s.Unit).Value()))
		}
		dc.Stroke()
	}

	// Labels.
	dc.SetFontFace(f)
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(label(hi, s.Unit), margin-4, margin, 1, 0.5)
	dc.DrawStringAnchored(label(lo, s.Unit), margin-4, margin+ph, 1, 0.5)
	dc.DrawStringAnchored(t0.Format(time.TimeOnly), margin, margin+ph+4, 0, 1)
	dc.DrawStringAnchored(t1.Format(time.TimeOnly), margin+pw, margin+ph+4, 1, 1)
	return dc.Image(), nil
}

// SavePNG renders the series and writes it to path.
func (s *Series) SavePNG(path string, width, height int) error {
	img, err := s.Render(width, height)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	return nil
}

func label(v float64, u max6675.Unit) string {
	return fmt.Sprintf("%.1f%s", v, u)
}

// labelFace returns a new Go Regular face for labels. The font is parsed
// once; faces are not safe for concurrent use so each render gets its own.
func labelFace() (font.Face, error) {
	fontOnce.Do(func() {
		if goFont, fontErr = truetype.Parse(goregular.TTF); fontErr != nil {
			fontErr = fmt.Errorf("trend: %w", fontErr)
		}
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(goFont, &truetype.Options{Size: 11}), nil
}
