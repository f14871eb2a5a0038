// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max6675

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Unit is the scale a Temperature is expressed in.
type Unit byte

const (
	UnitCelsius Unit = iota
	UnitFahrenheit
	UnitKelvin
)

func (u Unit) String() string {
	switch u {
	case UnitCelsius:
		return "°C"
	case UnitFahrenheit:
		return "°F"
	case UnitKelvin:
		return "K"
	default:
		return fmt.Sprintf("Unit(%d)", byte(u))
	}
}

// Temperature is a single reading tagged with its unit. It is immutable,
// conversions return a new value.
type Temperature struct {
	value float64
	unit  Unit
}

// Celsius returns a Temperature of v degrees Celsius.
func Celsius(v float64) Temperature {
	return Temperature{value: v, unit: UnitCelsius}
}

// Fahrenheit returns a Temperature of v degrees Fahrenheit.
func Fahrenheit(v float64) Temperature {
	return Temperature{value: v, unit: UnitFahrenheit}
}

// Kelvin returns a Temperature of v Kelvin.
func Kelvin(v float64) Temperature {
	return Temperature{value: v, unit: UnitKelvin}
}

// Value returns the magnitude in the Temperature's own unit.
func (t Temperature) Value() float64 {
	return t.value
}

// Unit returns the unit the magnitude is expressed in.
func (t Temperature) Unit() Unit {
	return t.unit
}

// celsius returns the magnitude in degrees Celsius.
func (t Temperature) celsius() float64 {
	switch t.unit {
	case UnitFahrenheit:
		return (t.value - 32) * 5 / 9
	case UnitKelvin:
		return t.value - 273.15
	default:
		return t.value
	}
}

// ToCelsius converts t to degrees Celsius.
func (t Temperature) ToCelsius() Temperature {
	if t.unit == UnitCelsius {
		return t
	}
	return Celsius(t.celsius())
}

// ToFahrenheit converts t to degrees Fahrenheit: F = C*9/5 + 32.
func (t Temperature) ToFahrenheit() Temperature {
	if t.unit == UnitFahrenheit {
		return t
	}
	return Fahrenheit(t.celsius()*9/5 + 32)
}

// ToKelvin converts t to Kelvin: K = C + 273.15.
func (t Temperature) ToKelvin() Temperature {
	if t.unit == UnitKelvin {
		return t
	}
	return Kelvin(t.celsius() + 273.15)
}

// To converts t to the unit u.
//
// Use it on a single ReadCelsius result when several units must describe
// the same sample.
func (t Temperature) To(u Unit) Temperature {
	switch u {
	case UnitFahrenheit:
		return t.ToFahrenheit()
	case UnitKelvin:
		return t.ToKelvin()
	default:
		return t.ToCelsius()
	}
}

// Physic returns t as a periph physic.Temperature, rounded to the nearest
// nano Kelvin.
func (t Temperature) Physic() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(math.Round(t.celsius()*float64(physic.Kelvin)))
}

func (t Temperature) String() string {
	if t.unit == UnitKelvin {
		return fmt.Sprintf("%g %s", t.value, t.unit)
	}
	return fmt.Sprintf("%g%s", t.value, t.unit)
}
