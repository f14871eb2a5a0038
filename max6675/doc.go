// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package max6675 reads a Maxim MAX6675 cold-junction-compensated K-type
// thermocouple-to-digital converter over SPI.
//
// The MAX6675 is read only. Each SPI transaction clocks out a 16 bit frame:
// bits 15..3 hold the thermocouple temperature in 0.25°C steps and bit 2 is
// set when the thermocouple input is open. The chip starts a new conversion
// when chip select is released, a conversion takes up to 220ms, so callers
// should space their reads accordingly.
//
// Range: 0°C - 1023.75°C
//
// Decode applies the vendor formula to bits D15..D3 as is and doesn't clamp
// to the device range. D15 reads as 0 on a healthy device.
//
// Resolution: 0.25°C
//
// For detailed information, refer to the [datasheet].
//
// [datasheet]: https://www.analog.com/media/en/technical-documentation/data-sheets/MAX6675.pdf
package max6675
