//go:build linux

package uinput

import (
	"testing"
	"unsafe"
)

// The wire structures must match the kernel ABI byte for byte.
func TestStructSizesMatchKernelABI(t *testing.T) {
	if s := unsafe.Sizeof(Effect{}); s != 48 {
		t.Errorf("sizeof(ff_effect) = %d, want 48", s)
	}
	if s := unsafe.Sizeof(ffUploadReq{}); s != 104 {
		t.Errorf("sizeof(uinput_ff_upload) = %d, want 104", s)
	}
	if s := unsafe.Sizeof(ffEraseReq{}); s != 12 {
		t.Errorf("sizeof(uinput_ff_erase) = %d, want 12", s)
	}
	if s := unsafe.Sizeof(inputEvent{}); s != 24 {
		t.Errorf("sizeof(input_event) = %d, want 24", s)
	}
	if s := unsafe.Sizeof(setupReq{}); s != 92 {
		t.Errorf("sizeof(uinput_setup) = %d, want 92", s)
	}
	if s := unsafe.Sizeof(absSetupReq{}); s != 28 {
		t.Errorf("sizeof(uinput_abs_setup) = %d, want 28", s)
	}
}

func TestConstantLevelReadsUnionHead(t *testing.T) {
	var e Effect
	e.Type = FFConstant
	*(*int16)(unsafe.Pointer(&e.U[0])) = -12345
	if got := e.ConstantLevel(); got != -12345 {
		t.Errorf("ConstantLevel = %d, want -12345", got)
	}
}
