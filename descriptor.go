// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gotmc/libusb"
)

const (
	requestGetDescriptor      = 0x06
	descriptorTypeConfig      = 0x02
	descriptorTypeEndpoint    = 0x05
	descriptorTypeSSCompanion = 0x30
	endpointDirectionIn       = 0x80
	transferTypeMask          = 0x03
	transferTypeBulk          = 0x02
	configHeaderLength        = 9
)

// rawConfigDescriptor fetches the full configuration descriptor, including
// the class and SuperSpeed companion descriptors the structured API leaves
// out. A short header read first supplies wTotalLength.
func (dev *RX888) rawConfigDescriptor() ([]byte, error) {
	requestType := libusb.BitmapRequestType(
		libusb.DeviceToHost, libusb.Standard, libusb.DeviceRecipient)
	header := make([]byte, configHeaderLength)
	n, err := dev.DeviceHandle.ControlTransfer(
		requestType, requestGetDescriptor, uint16(descriptorTypeConfig)<<8, 0x0,
		header, len(header), dev.Timeout)
	if err != nil {
		return nil, fmt.Errorf("error reading config descriptor header: %w", err)
	}
	if n < 4 {
		return nil, fmt.Errorf("config descriptor header too short: %d bytes", n)
	}
	total := int(binary.LittleEndian.Uint16(header[2:4]))
	if total < configHeaderLength {
		return nil, fmt.Errorf("bad config descriptor total length %d", total)
	}
	raw := make([]byte, total)
	n, err = dev.DeviceHandle.ControlTransfer(
		requestType, requestGetDescriptor, uint16(descriptorTypeConfig)<<8, 0x0,
		raw, len(raw), dev.Timeout)
	if err != nil {
		return nil, fmt.Errorf("error reading config descriptor: %w", err)
	}
	return raw[:n], nil
}

// bulkInPacketSize walks a raw configuration descriptor and returns the
// effective packet size of the first bulk IN endpoint: wMaxPacketSize times
// the burst length (bMaxBurst + 1) from the SuperSpeed endpoint companion
// descriptor. Without a companion the burst length is 1, which is what a
// USB 2.0 link provides.
func bulkInPacketSize(raw []byte) (int, error) {
	var maxPacketSize int
	found := false
	for i := 0; i+1 < len(raw); {
		length := int(raw[i])
		if length < 2 || i+length > len(raw) {
			return 0, fmt.Errorf("malformed descriptor at offset %d", i)
		}
		switch raw[i+1] {
		case descriptorTypeEndpoint:
			if found {
				// Next endpoint reached without a companion.
				return maxPacketSize, nil
			}
			if length >= 7 &&
				raw[i+2]&endpointDirectionIn != 0 &&
				raw[i+3]&transferTypeMask == transferTypeBulk {
				maxPacketSize = int(binary.LittleEndian.Uint16(raw[i+4 : i+6]))
				found = true
			}
		case descriptorTypeSSCompanion:
			if found && length >= 3 {
				burstFactor := int(raw[i+2])
				return maxPacketSize * (burstFactor + 1), nil
			}
		}
		i += length
	}
	if !found {
		return 0, errors.New("no bulk IN endpoint in configuration descriptor")
	}
	return maxPacketSize, nil
}
