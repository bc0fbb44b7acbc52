package imsic

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapFile backs a File with a real anonymous mapping so register reads
// and writes exercise actual page-backed memory instead of a plain Go
// slice, closer to how a device driver would map an IMSIC's MMIO region.
func mmapFile(t *testing.T, numIDs uint32) (*File, func()) {
	t.Helper()
	b, err := unix.Mmap(-1, 0, int(MMIOStride), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	cleanup := func() {
		if err := unix.Munmap(b); err != nil {
			t.Fatalf("munmap: %v", err)
		}
	}
	base := unsafe.Pointer(&b[0])
	return NewFile(base, 0, numIDs), cleanup
}

func TestSetClearPending(t *testing.T) {
	f, done := mmapFile(t, 64)
	defer done()

	f.SetPending(5)
	if word := f.PendingWord(0); word&(1<<5) == 0 {
		t.Fatalf("PendingWord(0) = %#x, want bit 5 set", word)
	}
	f.ClearPending(5)
	if word := f.PendingWord(0); word&(1<<5) != 0 {
		t.Fatalf("PendingWord(0) = %#x, want bit 5 clear", word)
	}
}

func TestSetEnabledReadModifyWrite(t *testing.T) {
	f, done := mmapFile(t, 64)
	defer done()

	f.SetEnabled(3, true)
	f.SetEnabled(40, true) // word 1, bit 8
	if w := f.EnabledWord(0); w != 1<<3 {
		t.Fatalf("EnabledWord(0) = %#x, want %#x", w, uint32(1<<3))
	}
	if w := f.EnabledWord(1); w != 1<<8 {
		t.Fatalf("EnabledWord(1) = %#x, want %#x", w, uint32(1<<8))
	}

	f.SetEnabled(3, false)
	if w := f.EnabledWord(0); w != 0 {
		t.Fatalf("EnabledWord(0) after disable = %#x, want 0", w)
	}
	// word 1's unrelated bit must be untouched by word 0's read-modify-write.
	if w := f.EnabledWord(1); w != 1<<8 {
		t.Fatalf("EnabledWord(1) = %#x, want %#x (unaffected by word 0 write)", w, uint32(1<<8))
	}
}

func TestDeliveryAndThreshold(t *testing.T) {
	f, done := mmapFile(t, 64)
	defer done()

	// These registers are write-only triggers on real hardware; here they
	// just exercise that writeReg doesn't panic or corrupt neighboring
	// registers.
	f.EnableDelivery()
	f.DisableDelivery()
	f.SetThreshold(7)
	if got := f.readReg(RegEIThreshold); got != 7 {
		t.Fatalf("EITHRESHOLD = %d, want 7", got)
	}
}
