// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"encoding/binary"
	"fmt"

	"github.com/gotmc/libusb"
)

type command byte

// Vendor commands understood by the FX3 streaming firmware. Every command
// carries a 32-bit little-endian argument in the data stage.
const (
	commandStartFX3     command = 0xaa
	commandStopFX3      command = 0xab
	commandTestFX3      command = 0xac
	commandGPIO         command = 0xad
	commandI2CWrite     command = 0xae
	commandI2CRead      command = 0xaf
	commandResetFX3     command = 0xb1
	commandStartADC     command = 0xb2
	commandTunerInit    command = 0xb4
	commandTunerTune    command = 0xb5
	commandTunerStandby command = 0xb6
	commandSetArgument  command = 0xb7
)

var commands = map[command]string{
	commandStartFX3:     "Start the streaming engine",
	commandStopFX3:      "Stop the streaming engine",
	commandTestFX3:      "Read the firmware self-test word",
	commandGPIO:         "Set the FX3 GPIO bank",
	commandI2CWrite:     "Write to an I2C peripheral",
	commandI2CRead:      "Read from an I2C peripheral",
	commandResetFX3:     "Reset the FX3 controller",
	commandStartADC:     "Start the ADC at the given sample rate",
	commandTunerInit:    "Initialize the VHF tuner",
	commandTunerTune:    "Tune the VHF tuner",
	commandTunerStandby: "Place the VHF tuner in standby",
	commandSetArgument:  "Set an analog front-end argument register",
}

func (c command) String() string {
	return commands[c]
}

type argument uint16

// Argument registers reached through commandSetArgument; the register number
// rides in wValue.
const (
	argAttenuator argument = 10 // DAT-31 step attenuator
	argVGAGain    argument = 11 // AD8340 variable gain amplifier
)

// GPIO bits on the FX3 bank that control the analog front end.
const (
	gpioBiasHF     uint32 = 1 << 27
	gpioBiasVHF    uint32 = 1 << 28
	gpioDither     uint32 = 1 << 29
	gpioRandomizer uint32 = 1 << 30
)

// SendCommand issues a vendor control request identified by the command
// opcode, carrying a 32-bit argument.
func (dev *RX888) SendCommand(cmd command, arg uint32) error {
	requestType := libusb.BitmapRequestType(
		libusb.HostToDevice, libusb.Vendor, libusb.DeviceRecipient)
	data := encodeArgument(arg)
	_, err := dev.DeviceHandle.ControlTransfer(
		requestType, byte(cmd), 0x0, 0x0, data, len(data), dev.Timeout)
	if err != nil {
		return fmt.Errorf("error sending command '%s' to device: %w", cmd, err)
	}
	return nil
}

// SendArgument writes one of the analog front-end argument registers.
func (dev *RX888) SendArgument(arg argument, value uint32) error {
	requestType := libusb.BitmapRequestType(
		libusb.HostToDevice, libusb.Vendor, libusb.DeviceRecipient)
	data := encodeArgument(value)
	_, err := dev.DeviceHandle.ControlTransfer(
		requestType, byte(commandSetArgument), uint16(arg), 0x0, data, len(data), dev.Timeout)
	if err != nil {
		return fmt.Errorf("error setting argument register %d: %w", arg, err)
	}
	return nil
}

func encodeArgument(arg uint32) []byte {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, arg)
	return data
}
