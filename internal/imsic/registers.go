package imsic

// Register offsets within one hart's interrupt file, all 32-bit MMIO,
// matching original_source/kernel/include/irqchip/riscv-imsic.h.
const (
	RegSetEIPNum     = 0x000
	RegClrEIPNum     = 0x004
	RegSetEIDelivery = 0x040
	RegClrEIDelivery = 0x044
	RegEIThreshold   = 0x070

	eipBase = 0x080
	eieBase = 0x0C0
)

// MaxIDs is the default interrupt-id count QEMU's virt IMSIC exposes,
// matching IMSIC_MAX_IDS.
const MaxIDs = 256

// MMIOStride is the byte distance between consecutive harts' interrupt
// files, matching IMSIC_MMIO_STRIDE.
const MMIOStride = 0x1000

func eipOffset(word uint32) uintptr { return uintptr(eipBase + 4*word) }
func eieOffset(word uint32) uintptr { return uintptr(eieBase + 4*word) }
