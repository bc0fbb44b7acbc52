// Package irq provides the minimal IRQ-domain and IRQ-descriptor surface
// that the MSI allocator (internal/msi) and the IMSIC controller
// (internal/imsic) consume against. The full generic IRQ framework is a
// separate, external subsystem; this package is a from-scratch but
// faithful implementation of the slice of it those callers actually need —
// hwirq/virq mapping, descriptor lookup and dispatch, mask/unmask — grounded
// in original_source/kernel/irq/irq_domain.c, irq_desc.c and irq_chip.c.
package irq

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnsupported reports an operation that is not implemented;
// msi.CreateDomain returns it for hierarchical MSI domain composition.
var ErrUnsupported = errors.New("irq: unsupported operation")

// Chip is the IRQ-chip vtable a domain attaches to every descriptor it
// maps. A chip's operations act on a Desc's Hwirq against whatever device
// state ChipData points at.
type Chip interface {
	Name() string
	Mask(d *Desc)
	Unmask(d *Desc)
	Ack(d *Desc)
}

// Desc is an IRQ descriptor: the kernel-visible record behind a virq.
// It is intentionally small — an MSI descriptor (internal/msi.Descriptor)
// is a distinct, higher-level type that references a virq obtained from
// this package, not this type itself.
type Desc struct {
	mu       sync.Mutex
	Virq     uint32
	Hwirq    uint32
	Domain   *LinearDomain
	Chip     Chip
	ChipData any
	handler  func()
	masked   bool
}

// SetHandler installs the function generic_handle_irq invokes for this
// descriptor. A nil handler makes GenericHandleIRQ a no-op.
func (d *Desc) SetHandler(h func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

var (
	descTableMu sync.RWMutex
	descTable   = map[uint32]*Desc{}
	nextVirq    uint32 = 1
)

// allocVirq returns a fresh, process-wide unique, non-zero virq.
func allocVirq() uint32 {
	descTableMu.Lock()
	defer descTableMu.Unlock()
	v := nextVirq
	nextVirq++
	return v
}

// ToDesc returns the descriptor behind virq, or nil if none exists.
func ToDesc(virq uint32) *Desc {
	if virq == 0 {
		return nil
	}
	descTableMu.RLock()
	defer descTableMu.RUnlock()
	return descTable[virq]
}

// GenericHandleIRQ invokes the handler installed on virq's descriptor, if
// any. It is a no-op for virq == 0 or an unmapped/unhandled virq.
func GenericHandleIRQ(virq uint32) {
	d := ToDesc(virq)
	if d == nil {
		return
	}
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	if h != nil {
		h()
	}
}

// EnableIRQ unmasks the descriptor behind virq via its chip. It is a no-op
// for virq == 0.
func EnableIRQ(virq uint32) error {
	d := ToDesc(virq)
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Chip == nil {
		return fmt.Errorf("irq: virq %d has no chip", virq)
	}
	d.Chip.Unmask(d)
	d.masked = false
	return nil
}

// DisableIRQNosync masks the descriptor behind virq via its chip. It is a
// no-op for virq == 0.
func DisableIRQNosync(virq uint32) error {
	d := ToDesc(virq)
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Chip == nil {
		return fmt.Errorf("irq: virq %d has no chip", virq)
	}
	d.Chip.Mask(d)
	d.masked = true
	return nil
}
