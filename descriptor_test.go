// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import "testing"

// buildConfigDescriptor assembles a raw configuration descriptor from the
// given descriptor blocks, fixing up wTotalLength.
func buildConfigDescriptor(blocks ...[]byte) []byte {
	raw := []byte{9, descriptorTypeConfig, 0, 0, 1, 1, 0, 0x80, 250}
	for _, b := range blocks {
		raw = append(raw, b...)
	}
	raw[2] = byte(len(raw))
	raw[3] = byte(len(raw) >> 8)
	return raw
}

var testInterface = []byte{9, 0x04, 0, 0, 1, 0xff, 0, 0, 0}

func TestBulkInPacketSize(t *testing.T) {
	bulkIn := []byte{7, descriptorTypeEndpoint, 0x81, 0x02, 0x00, 0x04, 0} // 1024 bytes
	bulkOut := []byte{7, descriptorTypeEndpoint, 0x01, 0x02, 0x00, 0x02, 0}
	companion15 := []byte{6, descriptorTypeSSCompanion, 15, 0, 0, 0}

	testCases := []struct {
		name     string
		raw      []byte
		expected int
	}{
		{
			"SuperSpeed endpoint with burst 15",
			buildConfigDescriptor(testInterface, bulkIn, companion15),
			16384,
		},
		{
			"no companion descriptor (USB 2.0 link)",
			buildConfigDescriptor(testInterface, bulkIn),
			1024,
		},
		{
			"companion belongs to the first bulk IN endpoint only",
			buildConfigDescriptor(testInterface, bulkOut, bulkIn, companion15),
			16384,
		},
		{
			"next endpoint terminates the companion search",
			buildConfigDescriptor(testInterface, bulkIn, bulkOut, companion15),
			1024,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bulkInPacketSize(tc.raw)
			if err != nil {
				t.Fatalf("bulkInPacketSize returned error: %s", err)
			}
			if got != tc.expected {
				t.Errorf("bulkInPacketSize = %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestBulkInPacketSizeErrors(t *testing.T) {
	bulkOut := []byte{7, descriptorTypeEndpoint, 0x01, 0x02, 0x00, 0x02, 0}
	testCases := []struct {
		name string
		raw  []byte
	}{
		{"no bulk IN endpoint", buildConfigDescriptor(testInterface, bulkOut)},
		{"zero-length descriptor", buildConfigDescriptor([]byte{0, 0})},
		{"descriptor runs past the buffer", buildConfigDescriptor([]byte{42, descriptorTypeEndpoint})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := bulkInPacketSize(tc.raw); err == nil {
				t.Error("bulkInPacketSize should have failed")
			}
		})
	}
}
