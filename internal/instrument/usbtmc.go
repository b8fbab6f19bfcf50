package instrument

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gousb"
)

const (
	usbtmcClass    gousb.Class = 0xfe
	usbtmcSubClass gousb.Class = 0x03

	msgDevDepMsgOut       = 1
	msgRequestDevDepMsgIn = 2
	usbtmcHeaderSize      = 12
	usbtmcMaxTransferSize = 1024 * 1024
	usbtmcAttributeEOM    = 0x01
)

// USBTMC talks to an instrument with the USB Test & Measurement Class bulk protocol
type USBTMC struct {
	usb   *gousb.Context
	dev   *gousb.Device
	cfg   *gousb.Config
	intf  *gousb.Interface
	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	maxPacket int
	tag       byte
}

// OpenUSBTMC finds the device by vendor/product ID (and serial number when
// given) and claims its USBTMC interface
func OpenUSBTMC(_ context.Context, r Resource) (t Transport, err error) {
	u := &USBTMC{usb: gousb.NewContext()}
	defer func() {
		if err != nil {
			_ = u.Close()
		}
	}()

	if u.dev, err = openUSBDevice(u.usb, r); err != nil {
		return nil, err
	}
	_ = u.dev.SetAutoDetach(true)

	if u.cfg, err = u.dev.Config(1); err != nil {
		return nil, fmt.Errorf("setting configuration: %w", err)
	}

	intfNum := -1
	for _, desc := range u.cfg.Desc.Interfaces {
		if len(desc.AltSettings) == 0 {
			continue
		}
		alt := desc.AltSettings[0]
		if alt.Class == usbtmcClass && alt.SubClass == usbtmcSubClass {
			intfNum = desc.Number
			break
		}
	}
	if intfNum < 0 {
		return nil, errors.New("no USBTMC interface found")
	}

	if u.intf, err = u.cfg.Interface(intfNum, 0); err != nil {
		return nil, fmt.Errorf("claiming interface %d: %w", intfNum, err)
	}

	var epOutNum, epInNum int
	for _, ep := range u.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			epOutNum = ep.Number
		case gousb.EndpointDirectionIn:
			epInNum = ep.Number
			u.maxPacket = ep.MaxPacketSize
		}
	}
	if epOutNum == 0 || epInNum == 0 {
		return nil, errors.New("bulk endpoints not found")
	}

	if u.epOut, err = u.intf.OutEndpoint(epOutNum); err != nil {
		return nil, fmt.Errorf("opening OUT endpoint: %w", err)
	}
	if u.epIn, err = u.intf.InEndpoint(epInNum); err != nil {
		return nil, fmt.Errorf("opening IN endpoint: %w", err)
	}

	return u, nil
}

func openUSBDevice(usb *gousb.Context, r Resource) (*gousb.Device, error) {
	if r.Serial == "" {
		dev, err := usb.OpenDeviceWithVIDPID(gousb.ID(r.VendorID), gousb.ID(r.ProductID))
		if err != nil {
			return nil, fmt.Errorf("opening device: %w", err)
		}
		if dev == nil {
			return nil, fmt.Errorf("device %04x:%04x not found", r.VendorID, r.ProductID)
		}
		return dev, nil
	}

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(r.VendorID) && desc.Product == gousb.ID(r.ProductID)
	})

	var found *gousb.Device
	for _, dev := range devs {
		if sn, snErr := dev.SerialNumber(); found == nil && snErr == nil && sn == r.Serial {
			found = dev
			continue
		}
		_ = dev.Close()
	}
	if found == nil {
		if err != nil {
			return nil, fmt.Errorf("opening devices: %w", err)
		}
		return nil, fmt.Errorf("device %04x:%04x with serial %s not found", r.VendorID, r.ProductID, r.Serial)
	}
	return found, nil
}

func (u *USBTMC) nextTag() byte {
	u.tag++
	if u.tag == 0 {
		u.tag = 1
	}
	return u.tag
}

func usbtmcHeader(msgID, tag byte, size uint32, attributes byte) []byte {
	h := make([]byte, usbtmcHeaderSize)
	h[0] = msgID
	h[1] = tag
	h[2] = ^tag
	binary.LittleEndian.PutUint32(h[4:8], size)
	h[8] = attributes
	return h
}

func (u *USBTMC) Write(ctx context.Context, cmd string) error {
	payload := []byte(cmd + terminator)

	msg := usbtmcHeader(msgDevDepMsgOut, u.nextTag(), uint32(len(payload)), usbtmcAttributeEOM)
	msg = append(msg, payload...)
	for len(msg)%4 != 0 {
		msg = append(msg, 0)
	}

	if _, err := u.epOut.WriteContext(ctx, msg); err != nil {
		return fmt.Errorf("bulk out: %w", err)
	}
	return nil
}

func (u *USBTMC) Query(ctx context.Context, cmd string) (string, error) {
	if err := u.Write(ctx, cmd); err != nil {
		return "", err
	}

	var reply []byte
	for {
		tag := u.nextTag()
		req := usbtmcHeader(msgRequestDevDepMsgIn, tag, usbtmcMaxTransferSize, 0)
		if _, err := u.epOut.WriteContext(ctx, req); err != nil {
			return "", fmt.Errorf("requesting reply: %w", err)
		}

		buf := make([]byte, usbtmcHeaderSize+usbtmcMaxTransferSize)
		n, err := u.epIn.ReadContext(ctx, buf)
		if err != nil {
			return "", fmt.Errorf("bulk in: %w", err)
		}
		if n < usbtmcHeaderSize || buf[0] != msgRequestDevDepMsgIn || buf[1] != tag {
			return "", fmt.Errorf("%w: bad USBTMC header", ErrMalformedReply)
		}

		size := int(binary.LittleEndian.Uint32(buf[4:8]))
		if size > n-usbtmcHeaderSize {
			size = n - usbtmcHeaderSize
		}
		reply = append(reply, buf[usbtmcHeaderSize:usbtmcHeaderSize+size]...)

		if buf[8]&usbtmcAttributeEOM != 0 {
			return string(reply), nil
		}
	}
}

func (u *USBTMC) Close() error {
	if u.intf != nil {
		u.intf.Close()
	}

	var errs []error
	if u.cfg != nil {
		errs = append(errs, u.cfg.Close())
	}
	if u.dev != nil {
		errs = append(errs, u.dev.Close())
	}
	if u.usb != nil {
		errs = append(errs, u.usb.Close())
	}
	return errors.Join(errs...)
}

// USBDevice describes an instrument exposing a USBTMC interface
type USBDevice struct {
	Resource     string
	Manufacturer string
	Product      string
	Serial       string
}

// ListUSB enumerates the USBTMC instruments attached to the host
func ListUSB() (devices []USBDevice, err error) {
	usb := gousb.NewContext()
	defer closeWithError(usb, &err)

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, cfg := range desc.Configs {
			for _, intf := range cfg.Interfaces {
				for _, alt := range intf.AltSettings {
					if alt.Class == usbtmcClass && alt.SubClass == usbtmcSubClass {
						return true
					}
				}
			}
		}
		return false
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("enumerating USB devices: %w", err)
	}
	err = nil

	for _, dev := range devs {
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		serialNumber, _ := dev.SerialNumber()

		d := USBDevice{
			Manufacturer: manufacturer,
			Product:      product,
			Serial:       serialNumber,
		}
		d.Resource = fmt.Sprintf("USB::0x%04x::0x%04x::%s::INSTR", uint16(dev.Desc.Vendor), uint16(dev.Desc.Product), serialNumber)
		devices = append(devices, d)

		_ = dev.Close()
	}

	return devices, nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
