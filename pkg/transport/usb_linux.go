//go:build linux

package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// AOA accessory-mode control requests (Android Open Accessory protocol).
// Values match the AOSP accessory.h constants.
const (
	aoaGetProtocol       = 51
	aoaSendString        = 52
	aoaStartAccessory    = 53
	aoaStringManufacturer = 0
	aoaStringModel        = 1
	aoaStringDescription  = 2
	aoaStringVersion      = 3
	aoaStringURI          = 4
	aoaStringSerial       = 5
)

// usbdevfsControlTransfer mirrors struct usbdevfs_ctrltransfer from
// <linux/usbdevice_fs.h>, laid out for a 64-bit ioctl(USBDEVFS_CONTROL, ...).
type usbdevfsControlTransfer struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
	Timeout     uint32
	_           [4]byte // compiler padding before the 8-byte-aligned pointer
	Data        uint64  // pointer to the payload buffer, or 0
}

// usbdevfsControl is the ioctl request number for USBDEVFS_CONTROL, computed
// the same way <linux/usbdevice_fs.h> defines it: _IOWR('U', 0, struct
// usbdevfs_ctrltransfer).
const usbdevfsControl = 0xc0185500 // _IOWR(0x55, 0, 24 bytes) rounded per ABI

// AccessoryStrings identifies this head unit core to the phone during the
// AOA handshake (spec §6: "performs the platform-specific accessory
// handshake").
type AccessoryStrings struct {
	Manufacturer string
	Model        string
	Description  string
	Version      string
	URI          string
	Serial       string
}

// USBTransport drives a USB device node through the Android Open Accessory
// handshake and then treats its bulk endpoints as a byte stream. It is
// Linux-only because AOA's control transfers are issued here directly via
// USBDEVFS_CONTROL rather than through a portable USB library.
type USBTransport struct {
	devicePath string
	strings    AccessoryStrings
	pollDelay  time.Duration

	mu   sync.RWMutex
	file *os.File

	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
	}

	errCh  chan error
	errOne sync.Once
	closed atomic.Bool
}

// NewUSBTransport builds a transport bound to a specific /dev/bus/usb/BBB/DDD
// device node. devicePath is expected to already point at the accessory
// after enumeration; callers scanning for a device should retry Start until
// waitForDevice succeeds.
func NewUSBTransport(devicePath string, strings AccessoryStrings) *USBTransport {
	return &USBTransport{
		devicePath: devicePath,
		strings:    strings,
		pollDelay:  500 * time.Millisecond,
		errCh:      make(chan error, 1),
	}
}

func (u *USBTransport) Start(ctx context.Context, waitForDevice bool) error {
	var f *os.File
	var err error

	for {
		f, err = os.OpenFile(u.devicePath, os.O_RDWR, 0)
		if err == nil {
			break
		}
		if !waitForDevice {
			return fmt.Errorf("transport: open %s: %w", u.devicePath, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.pollDelay):
		}
	}

	if err := u.negotiateAccessoryMode(f); err != nil {
		f.Close()
		return fmt.Errorf("transport: aoa handshake: %w", err)
	}

	u.mu.Lock()
	u.file = f
	u.mu.Unlock()
	return nil
}

// negotiateAccessoryMode runs the AOA control-transfer sequence: check
// protocol support, send the identification strings, then switch the device
// into accessory mode (spec §6).
func (u *USBTransport) negotiateAccessoryMode(f *os.File) error {
	if _, err := u.controlTransfer(f, 0xc0, aoaGetProtocol, 0, 0, 2); err != nil {
		return fmt.Errorf("get protocol: %w", err)
	}

	strs := []struct {
		index uint16
		value string
	}{
		{aoaStringManufacturer, u.strings.Manufacturer},
		{aoaStringModel, u.strings.Model},
		{aoaStringDescription, u.strings.Description},
		{aoaStringVersion, u.strings.Version},
		{aoaStringURI, u.strings.URI},
		{aoaStringSerial, u.strings.Serial},
	}
	for _, s := range strs {
		if s.value == "" {
			continue
		}
		payload := append([]byte(s.value), 0)
		if _, err := u.controlTransferOut(f, 0x40, aoaSendString, 0, s.index, payload); err != nil {
			return fmt.Errorf("send string %d: %w", s.index, err)
		}
	}

	if _, err := u.controlTransfer(f, 0x40, aoaStartAccessory, 0, 0, 0); err != nil {
		return fmt.Errorf("start accessory: %w", err)
	}
	return nil
}

func (u *USBTransport) controlTransfer(f *os.File, requestType, request uint8, value, index uint16, length uint16) ([]byte, error) {
	buf := make([]byte, length)
	xfer := usbdevfsControlTransfer{
		RequestType: requestType,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      length,
		Timeout:     1000,
	}
	if length > 0 {
		xfer.Data = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	if err := ioctl(f.Fd(), usbdevfsControl, unsafe.Pointer(&xfer)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (u *USBTransport) controlTransferOut(f *os.File, requestType, request uint8, value, index uint16, data []byte) (int, error) {
	xfer := usbdevfsControlTransfer{
		RequestType: requestType,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      uint16(len(data)),
		Timeout:     1000,
	}
	if len(data) > 0 {
		xfer.Data = uint64(uintptr(unsafe.Pointer(&data[0])))
	}
	if err := ioctl(f.Fd(), usbdevfsControl, unsafe.Pointer(&xfer)); err != nil {
		return 0, err
	}
	return len(data), nil
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (u *USBTransport) Stop() error {
	if !u.closed.CompareAndSwap(false, true) {
		return nil
	}
	u.mu.Lock()
	f := u.file
	u.file = nil
	u.mu.Unlock()

	if f != nil {
		return f.Close()
	}
	return nil
}

func (u *USBTransport) Write(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	u.mu.RLock()
	f := u.file
	u.mu.RUnlock()
	if f == nil {
		return 0, ErrClosed
	}

	n, err := f.Write(buf)
	if err != nil {
		u.reportFatal(fmt.Errorf("transport: usb write: %w", err))
		return n, err
	}
	u.stats.bytesSent.Add(uint64(n))
	return n, nil
}

func (u *USBTransport) Read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	u.mu.RLock()
	f := u.file
	u.mu.RUnlock()
	if f == nil {
		return nil, ErrClosed
	}

	buf := make([]byte, 16384)
	n, err := f.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrReadTimeout
		}
		u.reportFatal(fmt.Errorf("transport: usb read: %w", err))
		return nil, err
	}
	u.stats.bytesReceived.Add(uint64(n))
	return buf[:n], nil
}

func (u *USBTransport) Errors() <-chan error {
	return u.errCh
}

func (u *USBTransport) reportFatal(err error) {
	u.errOne.Do(func() {
		select {
		case u.errCh <- err:
		default:
		}
	})
}
