package imsic

import (
	"sync/atomic"
	"unsafe"

	"github.com/Michael-Lloyd/ProtoKernel/internal/kernelutil"
)

// File is one hart's IMSIC interrupt file: a volatile MMIO register
// window plus the hart id and interrupt-id count it was configured with,
// matching original_source's struct imsic_file. The pending/enabled
// bitmap caches that struct carries are TODO placeholders in the source
// (per-hart bitmap caching is SMP-discovery work, out of scope here) and
// are not reproduced.
type File struct {
	base   unsafe.Pointer
	HartID uint32
	NumIDs uint32
}

// NewFile wraps an MMIO base address as a per-hart interrupt file. base
// must point at a mapped region at least MMIOStride bytes long.
func NewFile(base unsafe.Pointer, hartID, numIDs uint32) *File {
	return &File{base: base, HartID: hartID, NumIDs: numIDs}
}

func (f *File) regPtr(offset uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(f.base) + offset))
}

// readReg and writeReg are the 32-bit volatile MMIO primitives: atomic
// load/store give the non-elision and ordering guarantees a plain load or
// store would not, standing in for the source's `volatile` access plus
// the architectural fence it requires around MMIO observation.
func (f *File) readReg(offset uintptr) uint32 {
	return atomic.LoadUint32(f.regPtr(offset))
}

func (f *File) writeReg(offset uintptr, val uint32) {
	atomic.StoreUint32(f.regPtr(offset), val)
}

// SetPending sets id's pending bit by writing SETEIPNUM.
func (f *File) SetPending(id uint32) {
	f.writeReg(RegSetEIPNum, id)
}

// ClearPending clears id's pending bit by writing CLREIPNUM.
func (f *File) ClearPending(id uint32) {
	f.writeReg(RegClrEIPNum, id)
}

// EnableDelivery enables interrupt delivery to this hart.
func (f *File) EnableDelivery() {
	f.writeReg(RegSetEIDelivery, 1)
}

// DisableDelivery disables interrupt delivery to this hart.
func (f *File) DisableDelivery() {
	f.writeReg(RegClrEIDelivery, 1)
}

// SetThreshold programs the priority threshold register.
func (f *File) SetThreshold(v uint32) {
	f.writeReg(RegEIThreshold, v)
}

func (f *File) numWords() uint32 {
	return kernelutil.Roundup(f.NumIDs, 32) / 32
}

// PendingWord reads EIP[k], the k'th 32-id pending bitmap word.
func (f *File) PendingWord(k uint32) uint32 {
	return f.readReg(eipOffset(k))
}

// EnabledWord reads EIE[k], the k'th 32-id enable bitmap word.
func (f *File) EnabledWord(k uint32) uint32 {
	return f.readReg(eieOffset(k))
}

// SetEnabled toggles bit id within EIE[id/32] via read-modify-write. This
// is not internally serialized against concurrent callers — the governing
// IRQ-descriptor lock is assumed held, per the standard IRQ-chip contract.
func (f *File) SetEnabled(id uint32, enabled bool) {
	word := id / 32
	bit := uint32(1) << (id % 32)
	off := eieOffset(word)
	cur := f.readReg(off)
	if enabled {
		cur |= bit
	} else {
		cur &^= bit
	}
	f.writeReg(off, cur)
}
