// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"github.com/gotmc/libusb"
)

const (
	// requestFirmwareLoad is the Cypress vendor request for reading and
	// writing FX3 internal RAM.
	requestFirmwareLoad = 0xa0
	// firmwareChunkSize is the largest RAM write one control transfer may
	// carry.
	firmwareChunkSize = 4096
	firmwareMagic     = "CY"
)

type firmwareSection struct {
	address uint32
	data    []byte
}

type firmwareImage struct {
	sections []firmwareSection
	entry    uint32
}

// parseFirmwareImage decodes a Cypress FX3 boot image: a "CY" header
// followed by (word count, load address, data) sections. A zero-length
// section carries the program entry address and is followed by a checksum
// over every data word.
func parseFirmwareImage(raw []byte) (*firmwareImage, error) {
	if len(raw) < 4 || string(raw[0:2]) != firmwareMagic {
		return nil, fmt.Errorf("not an FX3 firmware image: bad magic")
	}
	var img firmwareImage
	var checksum uint32
	i := 4
	for {
		if i+8 > len(raw) {
			return nil, fmt.Errorf("truncated firmware image at offset %d", i)
		}
		words := binary.LittleEndian.Uint32(raw[i : i+4])
		address := binary.LittleEndian.Uint32(raw[i+4 : i+8])
		i += 8
		if words == 0 {
			img.entry = address
			break
		}
		size := int(words) * 4
		if i+size > len(raw) {
			return nil, fmt.Errorf("truncated firmware section at offset %d", i)
		}
		for j := 0; j < size; j += 4 {
			checksum += binary.LittleEndian.Uint32(raw[i+j : i+j+4])
		}
		img.sections = append(img.sections, firmwareSection{
			address: address,
			data:    raw[i : i+size],
		})
		i += size
	}
	if i+4 > len(raw) {
		return nil, fmt.Errorf("firmware image missing checksum")
	}
	want := binary.LittleEndian.Uint32(raw[i : i+4])
	if checksum != want {
		return nil, fmt.Errorf("firmware checksum mismatch: computed 0x%08x, image has 0x%08x",
			checksum, want)
	}
	return &img, nil
}

// LoadFirmware transfers the FX3 firmware image into device RAM and hands
// control to its entry point. On success the device drops off the bus and
// renumerates with the streaming firmware.
func LoadFirmware(dh *libusb.DeviceHandle, filename string) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading firmware file: %w", err)
	}
	img, err := parseFirmwareImage(raw)
	if err != nil {
		return fmt.Errorf("error parsing firmware file %s: %w", filename, err)
	}
	for _, section := range img.sections {
		log.Printf("[DEBUG] Writing %d firmware bytes at 0x%08x",
			len(section.data), section.address)
		if err := writeRAM(dh, section.address, section.data); err != nil {
			return err
		}
	}
	// A zero-length write to the entry address starts the program.
	if err := writeRAM(dh, img.entry, nil); err != nil {
		return fmt.Errorf("error starting firmware at 0x%08x: %w", img.entry, err)
	}
	return nil
}

// writeRAM writes p into device RAM at the given address, chunked to the
// control-transfer limit. The 32-bit address is split across wValue and
// wIndex.
func writeRAM(dh *libusb.DeviceHandle, address uint32, p []byte) error {
	requestType := libusb.BitmapRequestType(
		libusb.HostToDevice, libusb.Vendor, libusb.DeviceRecipient)
	for {
		chunk := p
		if len(chunk) > firmwareChunkSize {
			chunk = p[:firmwareChunkSize]
		}
		length := len(chunk)
		if length == 0 {
			// A zero-length stage still needs a backing byte for the wrapper.
			chunk = []byte{0}
		}
		_, err := dh.ControlTransfer(
			requestType, requestFirmwareLoad,
			uint16(address&0xffff), uint16(address>>16),
			chunk, length, defaultTimeout)
		if err != nil {
			return fmt.Errorf("error writing firmware at 0x%08x: %w", address, err)
		}
		if len(p) <= firmwareChunkSize {
			return nil
		}
		p = p[firmwareChunkSize:]
		address += firmwareChunkSize
	}
}
