// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import "encoding/binary"

// Derandomize reverses the output randomization the ADC applies to reduce
// spurs on the digital bus. Each 16-bit little-endian sample whose low bit
// is set had its upper 15 bits inverted, so XOR with 0xfffe restores it.
// The transform is an involution. A trailing odd byte is left untouched.
func Derandomize(p []byte) {
	for i := 0; i+1 < len(p); i += 2 {
		sample := binary.LittleEndian.Uint16(p[i : i+2])
		if sample&0x1 == 0x1 {
			binary.LittleEndian.PutUint16(p[i:i+2], sample^0xfffe)
		}
	}
}
