package msi

import (
	"sync/atomic"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
)

// Descriptor is the per-vector MSI record, matching
// original_source/kernel/include/irq/msi.h's struct msi_desc. Device is a
// weak back-reference: holding a Descriptor does not keep its owning
// device's registry alive, matching the original's plain (non-owning)
// struct device * field.
type Descriptor struct {
	Device    *device.Device
	Hwirq     uint32
	Virq      uint32
	Msg       Message
	MsiAttrib uint16
	Multiple  uint8 // ceil(log2(nvec)) at allocation time
	ChipData  any

	refcount int32
	hasHwirq bool
	reg      *Registry
	elem     *listElem
}

// listElem is the intrusive doubly-linked list node a Descriptor occupies
// once added to a Registry, matching msi.h's struct msi_list_head. A
// standalone container/list.List is not used because Free must be able to
// unlink a descriptor given only the descriptor itself, exactly as
// msi_desc_free does by inspecting desc->list — an intrusive node gives
// the same O(1) unlink without a reverse lookup into the list.
type listElem struct {
	next, prev *listElem
	desc       *Descriptor
}

// AllocDescriptor allocates a standalone MSI descriptor for dev sized to
// hold nvec vectors, matching msi_desc_alloc. It is not used by
// AllocVectors (which builds its descriptors directly, one per hwirq); it
// exists for callers that manage their own vector-to-descriptor mapping
// outside the registry, e.g. MSI-X-style per-vector capability tables.
// The returned descriptor starts with a refcount of 1 and is not linked
// into any registry until AddToRegistry is called.
func AllocDescriptor(dev *device.Device, nvec uint32) (*Descriptor, error) {
	if dev == nil || nvec == 0 || nvec > MaxVectors {
		return nil, ErrInvalidArgument
	}
	d := &Descriptor{Device: dev, refcount: 1}
	for uint32(1)<<d.Multiple < nvec {
		d.Multiple++
	}
	return d, nil
}

// AddToRegistry links d into dev's MSI registry, matching
// msi_desc_list_add. It is the public counterpart to AllocDescriptor; the
// registry must already exist (via Init).
func AddToRegistry(dev *device.Device, d *Descriptor) error {
	if dev == nil || d == nil {
		return ErrInvalidArgument
	}
	reg, ok := dev.MSIData.(*Registry)
	if !ok || reg == nil {
		return ErrInvalidArgument
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.addLocked(d)
	return nil
}

// Free decrements d's refcount and, once it reaches zero, unlinks d from
// whatever registry it belongs to, matching msi_desc_free. Safe to call on
// nil or on a descriptor that was never linked into a registry.
func (d *Descriptor) Free() {
	if d == nil {
		return
	}
	if atomic.AddInt32(&d.refcount, -1) > 0 {
		return
	}
	if d.reg == nil {
		return
	}
	reg := d.reg
	reg.mu.Lock()
	reg.unlinkLocked(d)
	reg.mu.Unlock()
}

// Refcount reports d's current reference count.
func (d *Descriptor) Refcount() int32 {
	return atomic.LoadInt32(&d.refcount)
}
