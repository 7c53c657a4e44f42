// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %s, want nil", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"samplerate below 1 MHz", func(c *Config) { c.SampleRate = 999999 }},
		{"negative samplerate", func(c *Config) { c.SampleRate = -1 }},
		{"gain above 127", func(c *Config) { c.Gain = 128 }},
		{"negative gain", func(c *Config) { c.Gain = -1 }},
		{"attenuation above 63", func(c *Config) { c.Attenuation = 64 }},
		{"negative attenuation", func(c *Config) { c.Attenuation = -1 }},
		{"queue depth zero", func(c *Config) { c.QueueDepth = 0 }},
		{"queue depth above 64", func(c *Config) { c.QueueDepth = 65 }},
		{"request size zero", func(c *Config) { c.RequestSize = 0 }},
		{"request size above 64", func(c *Config) { c.RequestSize = 65 }},
		{"unsupported reference clock", func(c *Config) { c.ReferenceClock = 25000000 }},
		{"bad gain mode", func(c *Config) { c.GainMode = GainMode(0x40) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestGainSetting(t *testing.T) {
	testCases := []struct {
		mode     GainMode
		gain     int
		expected byte
	}{
		{GainModeHigh, 0, 0x80},
		{GainModeHigh, 5, 0x85},
		{GainModeHigh, 127, 0xff},
		{GainModeLow, 0, 0x00},
		{GainModeLow, 127, 0x7f},
	}
	for _, tc := range testCases {
		cfg := Config{GainMode: tc.mode, Gain: tc.gain}
		if got := cfg.GainSetting(); got != tc.expected {
			t.Errorf("GainSetting() with mode %s gain %d = 0x%02x, want 0x%02x",
				tc.mode, tc.gain, got, tc.expected)
		}
	}
}

func TestGpioBits(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      Config
		expected uint32
	}{
		{"all off", Config{}, 0},
		{"dither", Config{Dither: true}, gpioDither},
		{"randomizer", Config{Randomizer: true}, gpioRandomizer},
		{"dither and randomizer", Config{Dither: true, Randomizer: true}, gpioDither | gpioRandomizer},
		{"bias tees", Config{BiasHF: true, BiasVHF: true}, gpioBiasHF | gpioBiasVHF},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.gpioBits(); got != tc.expected {
				t.Errorf("gpioBits() = %#x, want %#x", got, tc.expected)
			}
		})
	}
}
