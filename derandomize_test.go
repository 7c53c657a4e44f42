// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestDerandomizeKnownValues(t *testing.T) {
	testCases := []struct {
		given    []byte
		expected []byte
	}{
		// Low bit clear: sample passes through.
		{[]byte{0x34, 0x12}, []byte{0x34, 0x12}},
		{[]byte{0x00, 0x00}, []byte{0x00, 0x00}},
		// Low bit set: upper 15 bits invert (0x1235 ^ 0xfffe = 0xedcb).
		{[]byte{0x35, 0x12}, []byte{0xcb, 0xed}},
		{[]byte{0x01, 0x00}, []byte{0xff, 0xff}},
		// Trailing odd byte is untouched.
		{[]byte{0x35, 0x12, 0x99}, []byte{0xcb, 0xed, 0x99}},
		{[]byte{0x7f}, []byte{0x7f}},
	}
	for _, tc := range testCases {
		got := append([]byte(nil), tc.given...)
		Derandomize(got)
		if !bytes.Equal(got, tc.expected) {
			t.Errorf("Derandomize(%#v) = %#v, want %#v", tc.given, got, tc.expected)
		}
	}
}

func TestDerandomizeIsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(888))
	for _, n := range []int{2, 64, 4096} {
		buf := make([]byte, n)
		rng.Read(buf)
		orig := append([]byte(nil), buf...)
		Derandomize(buf)
		Derandomize(buf)
		if !bytes.Equal(buf, orig) {
			t.Errorf("applying Derandomize twice to %d bytes did not restore them", n)
		}
	}
}
