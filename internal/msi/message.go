package msi

// Message is the wire payload a device writes to trigger an MSI: a
// 64-bit address split into hi/lo halves plus a 32-bit data word, matching
// original_source/kernel/include/irq/msi.h's struct msi_msg. The vector
// offset within an allocated block lives in the low bits of Data; how many
// bits, and what the remaining bits encode, is architecture-specific and
// is the job of the component composing the message (internal/imsic), not
// this package.
type Message struct {
	AddressLo uint32
	AddressHi uint32
	Data      uint32
}

// Flag bits carried in a Descriptor's MsiAttrib, matching msi.h's
// MSI_FLAG_* family. Only the subset meaningful to a single-MSI (not
// MSI-X) allocator is kept.
const (
	FlagMultiVector uint16 = 0x0002
	Flag64Bit       uint16 = 0x0004
	FlagMaskable    uint16 = 0x0008
)

// MaxVectors bounds how many vectors a single AllocVectors call may
// request, matching msi.h's MSI_MAX_VECTORS.
const MaxVectors = 32
