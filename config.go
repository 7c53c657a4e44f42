// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import "fmt"

// Capture option limits.
const (
	MinSampleRate  = 1000000
	MaxGain        = 127
	MaxAttenuation = 63
	MinQueueDepth  = 1
	MaxQueueDepth  = 64
	MinRequestSize = 1
	MaxRequestSize = 64
)

type GainMode byte

const (
	GainModeLow  GainMode = 0x00
	GainModeHigh GainMode = 0x80
)

// GainModes maps the string keys usable on the command line or in a config
// file to the GainMode values.
var GainModes = map[string]GainMode{
	"low":  GainModeLow,
	"high": GainModeHigh,
}

func (m GainMode) String() string {
	if m == GainModeHigh {
		return "high"
	}
	return "low"
}

// Config holds the validated capture options. Validation happens before any
// device I/O.
type Config struct {
	Verbosity      int
	FirmwareFile   string
	Dither         bool
	Randomizer     bool
	BiasHF         bool
	BiasVHF        bool
	SampleRate     int // Hz
	GainMode       GainMode
	Gain           int // 0..127
	Attenuation    int // 0..63
	QueueDepth     int // transfer requests in flight
	RequestSize    int // packets per transfer request
	ReferenceClock uint32
}

// DefaultConfig returns the capture defaults: 32 MS/s, high gain mode, no
// attenuation, 16 requests of 8 packets, 27 MHz reference.
func DefaultConfig() Config {
	return Config{
		SampleRate:     32000000,
		GainMode:       GainModeHigh,
		Gain:           0,
		Attenuation:    0,
		QueueDepth:     16,
		RequestSize:    8,
		ReferenceClock: RefClock27M,
	}
}

// Validate checks every option range. A failure here must be reported
// before the device is touched.
func (cfg *Config) Validate() error {
	if cfg.SampleRate < MinSampleRate {
		return fmt.Errorf("invalid samplerate %d: must be at least %d Hz",
			cfg.SampleRate, MinSampleRate)
	}
	if cfg.GainMode != GainModeLow && cfg.GainMode != GainModeHigh {
		return fmt.Errorf("invalid gain mode 0x%02x", byte(cfg.GainMode))
	}
	if cfg.Gain < 0 || cfg.Gain > MaxGain {
		return fmt.Errorf("invalid gain value %d: must be 0..%d", cfg.Gain, MaxGain)
	}
	if cfg.Attenuation < 0 || cfg.Attenuation > MaxAttenuation {
		return fmt.Errorf("invalid attenuation value %d: must be 0..%d",
			cfg.Attenuation, MaxAttenuation)
	}
	if cfg.QueueDepth < MinQueueDepth || cfg.QueueDepth > MaxQueueDepth {
		return fmt.Errorf("invalid queue depth %d: must be %d..%d",
			cfg.QueueDepth, MinQueueDepth, MaxQueueDepth)
	}
	if cfg.RequestSize < MinRequestSize || cfg.RequestSize > MaxRequestSize {
		return fmt.Errorf("invalid request size %d: must be %d..%d",
			cfg.RequestSize, MinRequestSize, MaxRequestSize)
	}
	if cfg.ReferenceClock != RefClock27M && cfg.ReferenceClock != RefClock10M {
		return fmt.Errorf("invalid reference clock %d Hz", cfg.ReferenceClock)
	}
	return nil
}

// GainSetting packs the gain mode bit and gain value into the byte the VGA
// argument register expects.
func (cfg *Config) GainSetting() byte {
	return byte(cfg.GainMode) | byte(cfg.Gain&0x7f)
}

// gpioBits builds the GPIO bank word for the configured front-end switches.
func (cfg *Config) gpioBits() uint32 {
	var gpio uint32
	if cfg.Dither {
		gpio |= gpioDither
	}
	if cfg.Randomizer {
		gpio |= gpioRandomizer
	}
	if cfg.BiasHF {
		gpio |= gpioBiasHF
	}
	if cfg.BiasVHF {
		gpio |= gpioBiasVHF
	}
	return gpio
}
