// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermocouple is a container for the MAX6675 thermocouple driver
// and the tools built on it.
//
// The driver lives in package max6675. Package thermobar draws readings as a
// terminal gauge, package trend charts them, and cmd/max6675 ties them into
// a command line reader.
package thermocouple
