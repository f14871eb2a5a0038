// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max6675

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Bus parameters. The MAX6675 shifts SO out for the falling clock edge and
// tolerates up to 4.3MHz. They are not configurable.
const (
	SpiFrequency = 1 * physic.MegaHertz
	SpiMode      = spi.Mode1
	SpiBits      = 8
)

const (
	// faultOpenInput is bit D2, set when the thermocouple input is open.
	faultOpenInput = 0x04

	// countShift and countMask extract the reading in D15..D3.
	countShift = 3
	countMask  = 0x1fff

	degreesPerCount = 0.25
)

// Resolution is the temperature step of one count.
const Resolution = 250 * physic.MilliKelvin

// connection is the configured link to a single MAX6675.
type connection struct {
	c    spi.Conn
	w    [2]byte // clocked out on MOSI, ignored by the device
	data [2]byte
}

// connect configures p for the MAX6675.
func connect(p spi.Port) (*connection, error) {
	c, err := p.Connect(SpiFrequency, SpiMode, SpiBits)
	if err != nil {
		return nil, fmt.Errorf("%w: configure %s: %w", ErrTransport, p, err)
	}
	return &connection{c: c}, nil
}

// readRaw performs one SPI transaction and returns the 2 byte frame.
func (c *connection) readRaw() ([2]byte, error) {
	if err := c.c.Tx(c.w[:], c.data[:]); err != nil {
		return [2]byte{}, fmt.Errorf("%w: read: %w", ErrTransport, err)
	}
	return c.data, nil
}

// readCount returns the decoded quarter degree count of a fresh frame.
func (c *connection) readCount() (uint16, error) {
	frame, err := c.readRaw()
	if err != nil {
		return 0, err
	}
	return decodeCount(frame)
}

// readCelsius returns a fresh reading in degrees Celsius.
func (c *connection) readCelsius() (float64, error) {
	frame, err := c.readRaw()
	if err != nil {
		return 0, err
	}
	return Decode(frame)
}

func decodeCount(frame [2]byte) (uint16, error) {
	raw := binary.BigEndian.Uint16(frame[:])
	if raw&faultOpenInput != 0 {
		return 0, ErrOpenCircuit
	}
	return (raw >> countShift) & countMask, nil
}

// Decode converts a raw frame as returned by Dev.ReadRaw into degrees
// Celsius. It returns ErrOpenCircuit when the fault bit is set.
func Decode(frame [2]byte) (float64, error) {
	count, err := decodeCount(frame)
	if err != nil {
		return 0, err
	}
	return float64(count) * degreesPerCount, nil
}
