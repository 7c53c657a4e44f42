// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gotmc/libusb"
)

const (
	vendorID        = 0x04b4
	bootProductID   = 0x00f3 // FX3 bootloader, firmware not loaded yet
	streamProductID = 0x00f1 // operational streaming firmware
	defaultTimeout  = 2000   // milliseconds
	interfaceNumber = 0
)

const (
	// settleDelay separates the configuration commands; the firmware needs
	// the pause between register writes.
	settleDelay = 5 * time.Millisecond
	// renumerateDelay is how long the device takes to drop off the bus and
	// come back after a firmware download.
	renumerateDelay = 3 * time.Second
	// maxDiscoveryPasses bounds the firmware-load/re-discover cycle.
	maxDiscoveryPasses = 5
)

var (
	// ErrDeviceNotFound means no RX888 in either product state was seen on
	// the bus.
	ErrDeviceNotFound = errors.New("no RX888 found on the bus")
	// ErrDriverConflict means a kernel driver owns the interface and could
	// not be detached.
	ErrDriverConflict = errors.New("could not detach kernel driver")
	// ErrClaimInterface means the bulk interface could not be claimed.
	ErrClaimInterface = errors.New("could not claim bulk interface")
)

// RX888 models an opened RX888 mk II session: claimed interface, resolved
// bulk endpoint, and the effective packet size for one burst.
type RX888 struct {
	Timeout          int
	Device           *libusb.Device
	DeviceDescriptor *libusb.DeviceDescriptor
	DeviceHandle     *libusb.DeviceHandle
	ConfigDescriptor *libusb.ConfigDescriptor
	BulkEndpoint     *libusb.EndpointDescriptor
	PacketSize       int
}

// Init intializes a new libusb session/context by creating a new Context and
// returning a pointer to that Context.
func Init() (*libusb.Context, error) {
	return libusb.NewContext()
}

// GetFirstDevice finds the first RX888 on the bus and opens it. A device
// that enumerates in the FX3 bootloader gets the firmware image downloaded
// first and is discovered again once it has renumerated; without a firmware
// file a bootloader-state device is an error.
func GetFirstDevice(ctx *libusb.Context, firmwareFile string) (*RX888, error) {
	for pass := 0; pass < maxDiscoveryPasses; pass++ {
		usbDevices, err := ctx.GetDeviceList()
		if err != nil {
			return nil, fmt.Errorf("error getting USB device list: %w", err)
		}
		var bootDevice, streamDevice *libusb.Device
		for _, usbDevice := range usbDevices {
			usbDeviceDescriptor, err := usbDevice.GetDeviceDescriptor()
			if err != nil {
				log.Printf("[DEBUG] Error getting device descriptor: %s", err)
				continue
			}
			if usbDeviceDescriptor.VendorID != vendorID {
				continue
			}
			switch usbDeviceDescriptor.ProductID {
			case bootProductID:
				bootDevice = usbDevice
			case streamProductID:
				streamDevice = usbDevice
			}
		}
		if streamDevice != nil {
			return create(streamDevice)
		}
		if bootDevice != nil && firmwareFile != "" {
			if err := program(bootDevice, firmwareFile); err != nil {
				return nil, err
			}
			log.Printf("[INFO] Firmware updated; waiting for the device to renumerate")
			time.Sleep(renumerateDelay)
			continue
		}
		return nil, ErrDeviceNotFound
	}
	return nil, fmt.Errorf("%w after %d discovery passes", ErrDeviceNotFound, maxDiscoveryPasses)
}

// program downloads the firmware image into a bootloader-state device. The
// handle is closed afterwards so the device can renumerate.
func program(usbDevice *libusb.Device, firmwareFile string) error {
	dh, err := usbDevice.Open()
	if err != nil {
		return fmt.Errorf("error opening bootloader device: %w", err)
	}
	defer dh.Close()
	return LoadFirmware(dh, firmwareFile)
}

func create(usbDevice *libusb.Device) (*RX888, error) {
	dh, err := usbDevice.Open()
	if err != nil {
		return nil, fmt.Errorf("error getting device handle: %w", err)
	}
	active, err := dh.KernelDriverActive(interfaceNumber)
	if err == nil && active {
		log.Printf("[INFO] Kernel driver active; trying to detach")
		if err := dh.DetachKernelDriver(interfaceNumber); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDriverConflict, err)
		}
	}
	if err := dh.ClaimInterface(interfaceNumber); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrClaimInterface, err)
	}
	dev := RX888{
		Timeout:      defaultTimeout,
		Device:       usbDevice,
		DeviceHandle: dh,
	}
	deviceDescriptor, err := usbDevice.GetDeviceDescriptor()
	if err != nil {
		return nil, fmt.Errorf("error getting device descriptor: %w", err)
	}
	dev.DeviceDescriptor = deviceDescriptor
	configDescriptor, err := usbDevice.GetActiveConfigDescriptor()
	if err != nil {
		return nil, fmt.Errorf("error getting active config descriptor: %w", err)
	}
	dev.ConfigDescriptor = configDescriptor
	firstDescriptor := configDescriptor.SupportedInterfaces[0].InterfaceDescriptors[0]
	dev.BulkEndpoint = firstDescriptor.EndpointDescriptors[0]

	// The effective request granularity on a SuperSpeed link is the max
	// packet size times the endpoint's burst length, which is only known
	// from the endpoint companion descriptor.
	dev.PacketSize = int(dev.BulkEndpoint.MaxPacketSize)
	if raw, err := dev.rawConfigDescriptor(); err != nil {
		log.Printf("[DEBUG] Error reading raw config descriptor: %s", err)
	} else if size, err := bulkInPacketSize(raw); err != nil {
		log.Printf("[DEBUG] Error resolving burst packet size: %s", err)
	} else {
		dev.PacketSize = size
	}
	log.Printf("[DEBUG] Bulk endpoint 0x%02x, effective packet size %d bytes",
		dev.BulkEndpoint.EndpointAddress, dev.PacketSize)
	return &dev, nil
}

// Close releases the bulk interface and closes the device handle.
func (dev *RX888) Close() error {
	err := dev.DeviceHandle.ReleaseInterface(interfaceNumber)
	if err != nil {
		return fmt.Errorf("error releasing interface: %w", err)
	}
	dev.DeviceHandle.Close()
	return nil
}

// SerialNumber reads the device serial number string descriptor.
func (dev *RX888) SerialNumber() (string, error) {
	return dev.DeviceHandle.GetStringDescriptorASCII(
		dev.DeviceDescriptor.SerialNumberIndex)
}

// Configure issues the fixed bring-up command sequence. The order is a
// contract with the firmware and must not change: GPIO mode bits, then
// attenuation, then gain, then ADC start, then the streaming engine, then
// tuner standby. Each command needs a settle delay before it.
func (dev *RX888) Configure(cfg *Config) error {
	time.Sleep(settleDelay)
	if err := dev.SendCommand(commandGPIO, cfg.gpioBits()); err != nil {
		return err
	}
	time.Sleep(settleDelay)
	if err := dev.SendArgument(argAttenuator, uint32(cfg.Attenuation)); err != nil {
		return err
	}
	time.Sleep(settleDelay)
	if err := dev.SendArgument(argVGAGain, uint32(cfg.GainSetting())); err != nil {
		return err
	}
	time.Sleep(settleDelay)
	if err := dev.SendCommand(commandStartADC, uint32(cfg.SampleRate)); err != nil {
		return err
	}
	time.Sleep(settleDelay)
	if err := dev.SendCommand(commandStartFX3, 0); err != nil {
		return err
	}
	time.Sleep(settleDelay)
	if err := dev.SendCommand(commandTunerStandby, 0); err != nil {
		return err
	}
	return nil
}

// Stop halts the streaming engine.
func (dev *RX888) Stop() error {
	return dev.SendCommand(commandStopFX3, 0)
}

// ReadBulk reads sample data from the bulk endpoint into p.
func (dev *RX888) ReadBulk(p []byte) (int, error) {
	return dev.DeviceHandle.BulkTransfer(
		dev.BulkEndpoint.EndpointAddress,
		p,
		len(p),
		dev.Timeout,
	)
}
