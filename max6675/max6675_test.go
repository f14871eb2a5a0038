// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max6675

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/conn/v3/spi/spitest"
)

// frames returns one playback IO per frame, each a 2 byte read.
func frames(f ...[2]byte) []conntest.IO {
	ops := make([]conntest.IO, 0, len(f))
	for _, b := range f {
		ops = append(ops, conntest.IO{W: []byte{0, 0}, R: []byte{b[0], b[1]}})
	}
	return ops
}

func newPlayback(ops []conntest.IO) *spitest.Playback {
	return &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
}

// connectSpy records the parameters the driver connects with.
type connectSpy struct {
	spi.Port
	f    physic.Frequency
	mode spi.Mode
	bits int
}

func (s *connectSpy) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	s.f, s.mode, s.bits = f, mode, bits
	return s.Port.Connect(f, mode, bits)
}

// fakePort is an spi.Port and spi.Conn with scripted failures.
type fakePort struct {
	connectErr error
	short      bool
	closed     int
}

func (f *fakePort) String() string                    { return "fake" }
func (f *fakePort) LimitSpeed(physic.Frequency) error { return nil }
func (f *fakePort) Duplex() conn.Duplex               { return conn.Full }
func (f *fakePort) TxPackets([]spi.Packet) error      { return errors.New("not implemented") }

func (f *fakePort) Close() error {
	f.closed++
	return nil
}

func (f *fakePort) Connect(physic.Frequency, spi.Mode, int) (spi.Conn, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f, nil
}

func (f *fakePort) Tx(w, r []byte) error {
	if f.short {
		copy(r, []byte{0x01})
		return io.ErrUnexpectedEOF
	}
	copy(r, []byte{0x01, 0x90})
	return nil
}

func TestNewSPIConfiguresBus(t *testing.T) {
	pb := newPlayback(nil)
	defer pb.Close()
	spy := &connectSpy{Port: pb}
	if _, err := NewSPI(spy); err != nil {
		t.Fatal(err)
	}
	if spy.f != physic.MegaHertz {
		t.Errorf("frequency = %s, expected %s", spy.f, physic.MegaHertz)
	}
	if spy.mode != spi.Mode1 {
		t.Errorf("mode = %v, expected %v", spy.mode, spi.Mode1)
	}
	if spy.bits != 8 {
		t.Errorf("bits = %d, expected 8", spy.bits)
	}
}

func TestNewSPIConnectError(t *testing.T) {
	cause := errors.New("invalid argument")
	d, err := NewSPI(&fakePort{connectErr: cause})
	if d != nil {
		t.Errorf("expected nil Dev, got %v", d)
	}
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Errorf("expected transport error wrapping %v, got %v", cause, err)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	d, err := Open("/dev/spidev-does-not-exist")
	if d != nil {
		t.Errorf("expected nil Dev, got %v", d)
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
	if errors.Is(err, ErrOpenCircuit) {
		t.Error("open failure reported as open circuit")
	}
}

// registerFake registers f in spireg under name for the duration of the test.
func registerFake(t *testing.T, name string, f *fakePort) {
	t.Helper()
	if err := spireg.Register(name, nil, -1, func() (spi.PortCloser, error) { return f, nil }); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := spireg.Unregister(name); err != nil {
			t.Error(err)
		}
	})
}

func TestOpenConfigureErrorClosesPort(t *testing.T) {
	cause := errors.New("invalid argument")
	f := &fakePort{connectErr: cause}
	registerFake(t, "max6675-connect-error", f)
	d, err := Open("max6675-connect-error")
	if d != nil {
		t.Errorf("expected nil Dev, got %v", d)
	}
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Errorf("expected transport error wrapping %v, got %v", cause, err)
	}
	if f.closed != 1 {
		t.Errorf("port closed %d times, expected 1", f.closed)
	}
}

func TestOpenOwnsPort(t *testing.T) {
	f := &fakePort{}
	registerFake(t, "max6675-owned", f)
	d, err := Open("max6675-owned")
	if err != nil {
		t.Fatal(err)
	}
	temp, err := d.ReadCelsius()
	if err != nil {
		t.Fatal(err)
	}
	if temp.Value() != 12.5 {
		t.Errorf("ReadCelsius() = %s, expected 12.5°C", temp)
	}
	if f.closed != 0 {
		t.Errorf("port closed before Close")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if f.closed != 1 {
		t.Errorf("port closed %d times, expected 1", f.closed)
	}
}

func TestReadUnits(t *testing.T) {
	// 0x0190 is 50 counts, 12.5°C.
	pb := newPlayback(frames([2]byte{0x01, 0x90}, [2]byte{0x01, 0x90}, [2]byte{0x01, 0x90}, [2]byte{0x01, 0x90}))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}

	var got []float64
	var units []Unit
	for _, read := range []func() (Temperature, error){d.ReadCelsius, d.ReadFahrenheit, d.ReadKelvin} {
		temp, err := read()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, temp.Value())
		units = append(units, temp.Unit())
	}
	temp, err := d.Read(UnitFahrenheit)
	if err != nil {
		t.Fatal(err)
	}
	got = append(got, temp.Value())
	units = append(units, temp.Unit())

	expected := []float64{12.5, 54.5, 285.65, 54.5}
	if diff := cmp.Diff(expected, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Unit{UnitCelsius, UnitFahrenheit, UnitKelvin, UnitFahrenheit}, units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestReadEachUnitIsAFreshSample(t *testing.T) {
	pb := newPlayback(frames([2]byte{0x00, 0x00}, [2]byte{0x01, 0x90}))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	c, err := d.ReadCelsius()
	if err != nil {
		t.Fatal(err)
	}
	k, err := d.ReadKelvin()
	if err != nil {
		t.Fatal(err)
	}
	if c.Value() != 0 || math.Abs(k.Value()-285.65) > 1e-9 {
		t.Errorf("got %s and %s, expected two distinct samples", c, k)
	}
	if pb.Count != 2 {
		t.Errorf("expected 2 transactions, got %d", pb.Count)
	}
}

func TestReadRawMatchesDecode(t *testing.T) {
	frame := [2]byte{0x3e, 0x80}
	pb := newPlayback(frames(frame, frame))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := d.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if raw != frame {
		t.Fatalf("ReadRaw() = %#v, expected %#v", raw, frame)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	temp, err := d.ReadCelsius()
	if err != nil {
		t.Fatal(err)
	}
	if decoded != temp.Value() || decoded != 500 {
		t.Errorf("Decode(ReadRaw())=%g ReadCelsius()=%s, expected 500", decoded, temp)
	}
}

func TestReadOpenCircuit(t *testing.T) {
	pb := newPlayback(frames([2]byte{0x01, 0x94}, [2]byte{0x01, 0x94}))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	temp, err := d.ReadFahrenheit()
	if !errors.Is(err, ErrOpenCircuit) {
		t.Errorf("expected ErrOpenCircuit, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("open circuit reported as transport error")
	}
	if temp != (Temperature{}) {
		t.Errorf("expected zero Temperature on fault, got %s", temp)
	}
	// The raw frame is still available for diagnostics.
	raw, err := d.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if raw[1]&0x04 == 0 {
		t.Errorf("fault bit missing from %#v", raw)
	}
}

func TestReadShort(t *testing.T) {
	d, err := NewSPI(&fakePort{short: true})
	if err != nil {
		t.Fatal(err)
	}
	temp, err := d.ReadCelsius()
	if !errors.Is(err, ErrTransport) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected transport error wrapping %v, got %v", io.ErrUnexpectedEOF, err)
	}
	if temp != (Temperature{}) {
		t.Errorf("expected zero Temperature, got %s", temp)
	}
	if _, err := d.ReadRaw(); !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport from ReadRaw, got %v", err)
	}
}

func TestReadPlaybackExhausted(t *testing.T) {
	pb := newPlayback(nil)
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadKelvin(); !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestSense(t *testing.T) {
	pb := newPlayback(frames([2]byte{0x01, 0x90}, [2]byte{0x00, 0x04}))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	env := physic.Env{}
	if err := d.Sense(&env); err != nil {
		t.Fatal(err)
	}
	expected := physic.ZeroCelsius + 12*physic.Kelvin + 500*physic.MilliKelvin
	if env.Temperature != expected {
		t.Errorf("Sense() = %s, expected %s", env.Temperature, expected)
	}
	if err := d.Sense(&env); !errors.Is(err, ErrOpenCircuit) {
		t.Errorf("expected ErrOpenCircuit, got %v", err)
	}
	if env.Temperature != expected {
		t.Errorf("env modified on fault: %s", env.Temperature)
	}
}

func TestSenseMatchesDecode(t *testing.T) {
	in := [][2]byte{{0x00, 0x00}, {0x00, 0x08}, {0x01, 0x90}, {0x7f, 0xf8}, {0xff, 0xf8}}
	pb := newPlayback(frames(in...))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	for _, frame := range in {
		c, err := Decode(frame)
		if err != nil {
			t.Fatal(err)
		}
		env := physic.Env{}
		if err := d.Sense(&env); err != nil {
			t.Fatal(err)
		}
		count := physic.Temperature(binary.BigEndian.Uint16(frame[:]) >> 3)
		if expected := physic.ZeroCelsius + count*Resolution; env.Temperature != expected {
			t.Errorf("Sense(%#v) = %s, expected %s", frame, env.Temperature, expected)
		}
		if expected := Celsius(c).Physic(); env.Temperature != expected {
			t.Errorf("Sense(%#v) = %s, Decode gives %s", frame, env.Temperature, expected)
		}
	}
}

func TestSenseContinuous(t *testing.T) {
	pb := newPlayback(frames([2]byte{0x00, 0x00}, [2]byte{0x00, 0x08}, [2]byte{0x00, 0x10}))
	defer pb.Close()
	d, err := NewSPI(pb)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SenseContinuous(10 * time.Millisecond); err == nil {
		t.Error("expected error for interval shorter than the conversion time")
	}
	ch, err := d.SenseContinuous(ConversionTime)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SenseContinuous(ConversionTime); err == nil {
		t.Error("expected error when already running")
	}
	for i := range 3 {
		env := <-ch
		expected := physic.ZeroCelsius + physic.Temperature(i)*Resolution
		if env.Temperature != expected {
			t.Errorf("reading %d = %s, expected %s", i, env.Temperature, expected)
		}
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("channel not closed after Halt")
		}
	}
}

func TestPrecision(t *testing.T) {
	d := &Dev{}
	env := physic.Env{Humidity: 1}
	d.Precision(&env)
	if env.Temperature != 250*physic.MilliKelvin || env.Humidity != 0 {
		t.Errorf("unexpected precision %#v", env)
	}
}

func TestClose(t *testing.T) {
	p := &fakePort{}
	d, err := NewSPI(p)
	if err != nil {
		t.Fatal(err)
	}
	d.closer = p
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if p.closed != 1 {
		t.Errorf("port closed %d times, expected 1", p.closed)
	}
	if _, err := d.ReadCelsius(); !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport after Close, got %v", err)
	}
	if _, err := d.SenseContinuous(time.Second); !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport after Close, got %v", err)
	}
}

func TestString(t *testing.T) {
	d, err := NewSPI(&fakePort{})
	if err != nil {
		t.Fatal(err)
	}
	if s := d.String(); !strings.HasPrefix(s, "max6675") || !strings.Contains(s, "fake") {
		t.Errorf("unexpected String() %q", s)
	}
}
