//go:build linux

// Package uinput creates virtual input devices through /dev/uinput and
// implements the force-feedback upload handshake, mirroring the structures
// of the kernel's uinput.h and input.h.
package uinput

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/leosat/MMVJ/internal/linux/ioctl"
)

// Event type codes from input-event-codes.h.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03
	EvFF  = 0x15

	SynReport = 0
)

// evUinput marks kernel-to-userspace requests on the uinput fd.
const (
	evUinput   = 0x0101
	reqUpload  = 1
	reqErase   = 2
	maxNameLen = 80
)

// Force-feedback effect types from input.h.
const (
	FFConstant = 0x52
	ffMaxCode  = 0x7f
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

const busVirtual = 0x06

type setupReq struct {
	ID           inputID
	Name         [maxNameLen]byte
	FFEffectsMax uint32
}

type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

type absSetupReq struct {
	Code uint16
	// implicit 2 bytes of padding before Info, as in struct uinput_abs_setup
	Info absInfo
}

type ffTrigger struct {
	Button   uint16
	Interval uint16
}

type ffReplay struct {
	Length uint16
	Delay  uint16
}

// Effect mirrors struct ff_effect. The payload union is kept raw; for
// constant-force effects the first two bytes are the signed level.
type Effect struct {
	Type      uint16
	ID        int16
	Direction uint16
	Trigger   ffTrigger
	Replay    ffReplay
	_         [2]byte  // align the union to 8 as the pointer member does in C
	U         [32]byte // union payload, sized for ff_periodic_effect on 64-bit
}

// ConstantLevel returns the signed constant-force level of the effect.
func (e *Effect) ConstantLevel() int16 {
	return *(*int16)(unsafe.Pointer(&e.U[0]))
}

type ffUploadReq struct {
	RequestID uint32
	Retval    int32
	Effect    Effect
	Old       Effect
}

type ffEraseReq struct {
	RequestID uint32
	Retval    int32
	EffectID  uint32
}

// inputEvent mirrors struct input_event on 64-bit platforms.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const inputEventSize = int(unsafe.Sizeof(inputEvent{}))

var (
	reqDevCreate  = ioctl.IO('U', 1)
	reqDevDestroy = ioctl.IO('U', 2)
	reqDevSetup   = ioctl.IOW('U', 3, setupReq{})
	reqAbsSetup   = ioctl.IOW('U', 4, absSetupReq{})

	reqSetEvBit  = ioctl.IOW('U', 100, int32(0))
	reqSetKeyBit = ioctl.IOW('U', 101, int32(0))
	reqSetAbsBit = ioctl.IOW('U', 103, int32(0))
	reqSetFFBit  = ioctl.IOW('U', 107, int32(0))

	reqBeginFFUpload = ioctl.IOWR('U', 200, ffUploadReq{})
	reqEndFFUpload   = ioctl.IOW('U', 201, ffUploadReq{})
	reqBeginFFErase  = ioctl.IOWR('U', 202, ffEraseReq{})
	reqEndFFErase    = ioctl.IOW('U', 203, ffEraseReq{})
)

// Identity is the host-visible identity of a virtual device.
type Identity struct {
	Name    string
	Vendor  uint16
	Product uint16
	Version uint16
}

// AbsAxis declares one absolute axis of a virtual device.
type AbsAxis struct {
	Code uint16
	Min  int32
	Max  int32
}

// Device is a live virtual input device backed by /dev/uinput.
type Device struct {
	file    *os.File
	fd      uintptr
	effects map[int16]Effect
}

// Create opens /dev/uinput and registers a virtual device with the given
// identity, absolute axes and key codes. ffEffectsMax > 0 additionally
// advertises constant-force feedback.
func Create(id Identity, axes []AbsAxis, keys []uint16, ffEffectsMax uint32) (*Device, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}
	file := os.NewFile(uintptr(fd), "/dev/uinput")
	dev := &Device{file: file, fd: uintptr(fd), effects: map[int16]Effect{}}

	fail := func(err error) (*Device, error) {
		file.Close()
		return nil, err
	}

	if len(axes) > 0 {
		if err := setBit(dev.fd, reqSetEvBit, EvAbs); err != nil {
			return fail(err)
		}
		for _, a := range axes {
			if err := setBit(dev.fd, reqSetAbsBit, int32(a.Code)); err != nil {
				return fail(err)
			}
		}
	}
	if len(keys) > 0 {
		if err := setBit(dev.fd, reqSetEvBit, EvKey); err != nil {
			return fail(err)
		}
		for _, k := range keys {
			if err := setBit(dev.fd, reqSetKeyBit, int32(k)); err != nil {
				return fail(err)
			}
		}
	}
	if ffEffectsMax > 0 {
		if err := setBit(dev.fd, reqSetEvBit, EvFF); err != nil {
			return fail(err)
		}
		if err := setBit(dev.fd, reqSetFFBit, FFConstant); err != nil {
			return fail(err)
		}
	}

	setup := setupReq{
		ID: inputID{
			Bustype: busVirtual,
			Vendor:  id.Vendor,
			Product: id.Product,
			Version: id.Version,
		},
		FFEffectsMax: ffEffectsMax,
	}
	copy(setup.Name[:maxNameLen-1], id.Name)
	if err := ioctl.Do(dev.fd, reqDevSetup, &setup); err != nil {
		return fail(fmt.Errorf("UI_DEV_SETUP: %w", err))
	}
	for _, a := range axes {
		req := absSetupReq{Code: a.Code, Info: absInfo{Minimum: a.Min, Maximum: a.Max}}
		if err := ioctl.Do(dev.fd, reqAbsSetup, &req); err != nil {
			return fail(fmt.Errorf("UI_ABS_SETUP 0x%x: %w", a.Code, err))
		}
	}
	if err := ioctl.Do[byte](dev.fd, reqDevCreate, nil); err != nil {
		return fail(fmt.Errorf("UI_DEV_CREATE: %w", err))
	}
	return dev, nil
}

func setBit(fd uintptr, req uint, bit int32) error {
	if err := ioctl.Do(fd, req, &bit); err != nil {
		return fmt.Errorf("uinput set bit 0x%x: %w", bit, err)
	}
	return nil
}

// SendAbs queues one absolute axis report. Call Sync to flush the packet.
func (d *Device) SendAbs(code uint16, v int32) error {
	return d.write(EvAbs, code, v)
}

// SendKey queues one key press or release. Call Sync to flush the packet.
func (d *Device) SendKey(code uint16, pressed bool) error {
	v := int32(0)
	if pressed {
		v = 1
	}
	return d.write(EvKey, code, v)
}

// Sync terminates the current event packet.
func (d *Device) Sync() error {
	return d.write(EvSyn, SynReport, 0)
}

func (d *Device) write(typ, code uint16, v int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: v}
	buf := (*[inputEventSize]byte)(unsafe.Pointer(&ev))[:]
	if _, err := d.file.Write(buf); err != nil {
		return fmt.Errorf("uinput write: %w", err)
	}
	return nil
}

// Force is one decoded force-feedback command from the host: a constant
// force level to apply, or a cancellation.
type Force struct {
	Cancel bool
	// Level is the signed magnitude in [-32767, 32767].
	Level int16
	// Direction is the effect direction in the kernel's 16-bit angle
	// encoding (0x4000 = left, 0xC000 = right).
	Direction uint16
}

// ReadForces blocks on the uinput fd and decodes force-feedback traffic:
// effect uploads are acknowledged and stored, EV_FF play/stop events are
// translated into Force values. It returns when the device is closed.
func (d *Device) ReadForces(deliver func(Force)) {
	buf := make([]byte, inputEventSize*16)
	for {
		n, err := d.file.Read(buf)
		if err != nil {
			return
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			ev := (*inputEvent)(unsafe.Pointer(&buf[off]))
			switch ev.Type {
			case evUinput:
				d.serviceRequest(ev)
			case EvFF:
				d.playEffect(ev, deliver)
			}
		}
	}
}

// serviceRequest completes the upload/erase handshake for one kernel
// request signalled on the uinput fd.
func (d *Device) serviceRequest(ev *inputEvent) {
	switch ev.Code {
	case reqUpload:
		up := ffUploadReq{RequestID: uint32(ev.Value)}
		if err := ioctl.Do(d.fd, reqBeginFFUpload, &up); err != nil {
			return
		}
		d.effects[up.Effect.ID] = up.Effect
		up.Retval = 0
		_ = ioctl.Do(d.fd, reqEndFFUpload, &up)
	case reqErase:
		er := ffEraseReq{RequestID: uint32(ev.Value)}
		if err := ioctl.Do(d.fd, reqBeginFFErase, &er); err != nil {
			return
		}
		delete(d.effects, int16(er.EffectID))
		er.Retval = 0
		_ = ioctl.Do(d.fd, reqEndFFErase, &er)
	}
}

func (d *Device) playEffect(ev *inputEvent, deliver func(Force)) {
	eff, ok := d.effects[int16(ev.Code)]
	if !ok || eff.Type != FFConstant {
		return
	}
	if ev.Value == 0 {
		deliver(Force{Cancel: true})
		return
	}
	deliver(Force{Level: eff.ConstantLevel(), Direction: eff.Direction})
}

// Close destroys the virtual device and releases the uinput handle.
func (d *Device) Close() error {
	_ = ioctl.Do[byte](d.fd, reqDevDestroy, nil)
	return d.file.Close()
}
