// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max6675

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// ConversionTime is the maximum time the MAX6675 needs to complete a
// conversion. Reads spaced closer than this return the previous sample.
const ConversionTime = 220 * time.Millisecond

var (
	// ErrTransport is returned when the SPI bus can't be opened, configured
	// or read. The underlying cause is wrapped and available to errors.Is
	// and errors.As.
	ErrTransport = errors.New("max6675: spi transport failure")

	// ErrOpenCircuit is returned when the device reports that the
	// thermocouple input is open. The bus is fine, check the wiring.
	ErrOpenCircuit = errors.New("max6675: thermocouple input open")

	errClosed = errors.New("device closed")
)

// Dev is a handle to a MAX6675.
type Dev struct {
	mu       sync.Mutex
	c        *connection
	closer   io.Closer
	name     string
	closed   bool
	shutdown chan struct{}
}

// Open opens the SPI port registered under name, usually a spidev path like
// "/dev/spidev0.0" or its alias "SPI0.0", and returns a Dev that owns it.
//
// host.Init() must have been called beforehand. Close releases the port.
func Open(name string) (*Dev, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrTransport, name, err)
	}
	d, err := NewSPI(p)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	d.closer = p
	return d, nil
}

// NewSPI returns a Dev that communicates over p. The port is configured for
// the MAX6675 and stays owned by the caller.
func NewSPI(p spi.Port) (*Dev, error) {
	c, err := connect(p)
	if err != nil {
		return nil, err
	}
	return &Dev{c: c, name: p.String()}, nil
}

// ReadCelsius performs a fresh conversion read and returns it in degrees
// Celsius.
func (d *Dev) ReadCelsius() (Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Temperature{}, fmt.Errorf("%w: %w", ErrTransport, errClosed)
	}
	v, err := d.c.readCelsius()
	if err != nil {
		return Temperature{}, err
	}
	return Celsius(v), nil
}

// ReadFahrenheit performs a fresh conversion read and returns it in degrees
// Fahrenheit.
func (d *Dev) ReadFahrenheit() (Temperature, error) {
	t, err := d.ReadCelsius()
	if err != nil {
		return Temperature{}, err
	}
	return t.ToFahrenheit(), nil
}

// ReadKelvin performs a fresh conversion read and returns it in Kelvin.
func (d *Dev) ReadKelvin() (Temperature, error) {
	t, err := d.ReadCelsius()
	if err != nil {
		return Temperature{}, err
	}
	return t.ToKelvin(), nil
}

// Read performs a fresh conversion read and returns it in unit u.
func (d *Dev) Read(u Unit) (Temperature, error) {
	t, err := d.ReadCelsius()
	if err != nil {
		return Temperature{}, err
	}
	return t.To(u), nil
}

// ReadRaw returns the unprocessed 16 bit frame, most significant byte first.
// Refer to page 5 of the datasheet for its layout, or pass it to Decode.
func (d *Dev) ReadRaw() ([2]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return [2]byte{}, fmt.Errorf("%w: %w", ErrTransport, errClosed)
	}
	return d.c.readRaw()
}

// Sense reads the thermocouple temperature into env. Other fields are left
// untouched.
//
// Sense implements physic.SenseEnv.
func (d *Dev) Sense(env *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: %w", ErrTransport, errClosed)
	}
	count, err := d.c.readCount()
	if err != nil {
		return err
	}
	env.Temperature = Celsius(float64(count) * degreesPerCount).Physic()
	return nil
}

// SenseContinuous reads the device every interval and sends the result on
// the returned channel. Failed reads are skipped. Call Halt to stop, the
// channel is closed afterwards.
//
// SenseContinuous implements physic.SenseEnv.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < ConversionTime {
		return nil, fmt.Errorf("max6675: interval %s is shorter than the conversion time %s", interval, ConversionTime)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("%w: %w", ErrTransport, errClosed)
	}
	if d.shutdown != nil {
		return nil, errors.New("max6675: SenseContinuous already running")
	}
	shutdown := make(chan struct{})
	d.shutdown = shutdown
	ch := make(chan physic.Env, 16)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				env := physic.Env{}
				if err := d.Sense(&env); err != nil {
					continue
				}
				select {
				case ch <- env:
				case <-shutdown:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision reports the 0.25°C resolution of the device.
//
// Precision implements physic.SenseEnv.
func (d *Dev) Precision(env *physic.Env) {
	env.Temperature = Resolution
	env.Pressure = 0
	env.Humidity = 0
}

// Halt stops a running SenseContinuous. The device itself has no shutdown
// mode.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halt()
	return nil
}

func (d *Dev) halt() {
	if d.shutdown != nil {
		close(d.shutdown)
		d.shutdown = nil
	}
}

// Close halts the device and releases the port if it was opened by Open.
// The Dev can't be used afterwards.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.halt()
	d.closed = true
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			return fmt.Errorf("%w: close %s: %w", ErrTransport, d.name, err)
		}
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("max6675{%s}", d.name)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
