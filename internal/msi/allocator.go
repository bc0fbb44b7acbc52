package msi

import (
	"fmt"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
	"github.com/Michael-Lloyd/ProtoKernel/internal/irq"
	"github.com/Michael-Lloyd/ProtoKernel/internal/kernelutil"
)

// AllocVectors reserves a power-of-two-sized block of MSI vectors for dev,
// between minVecs and maxVecs inclusive, and links one Descriptor per
// vector into dev's registry. It returns the number of vectors actually
// allocated (the chosen power of two, which may exceed minVecs) or an
// error, matching msi_alloc_vectors. dev must already have a registry
// (Init) and an MSI domain (dev.MSIDomain) installed.
//
// Allocation proceeds in two steps that must both succeed or the whole
// call rolls back to a no-op: reserving nvec consecutive hwirqs from the
// domain, then creating a virq mapping and descriptor for each one. If
// mapping creation fails partway through, every descriptor and mapping
// created so far in this call is torn down and the hwirq range is
// released before returning the error — dev's registry and domain are
// left exactly as they were before the call.
func AllocVectors(dev *device.Device, minVecs, maxVecs uint32, flags uint16) (int, error) {
	if dev == nil {
		return 0, ErrInvalidArgument
	}
	reg, ok := dev.MSIData.(*Registry)
	if !ok || reg == nil {
		return 0, fmt.Errorf("%w: device %q has no MSI registry", ErrInvalidArgument, dev.Name)
	}
	domain := dev.MSIDomain
	if domain == nil {
		return 0, fmt.Errorf("%w: device %q has no MSI domain", ErrInvalidArgument, dev.Name)
	}
	if minVecs == 0 || minVecs > maxVecs || maxVecs > MaxVectors {
		return 0, ErrInvalidArgument
	}

	nvec := kernelutil.LargestPowerOfTwoAtMost(maxVecs)
	if nvec < minVecs {
		return 0, ErrInvalidArgument
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	var hwirqBase uint32
	if err := domain.AllocHWIRQRange(nvec, &hwirqBase); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}

	var created uint32
	for created = 0; created < nvec; created++ {
		hwirq := hwirqBase + created
		virq := domain.CreateMapping(hwirq)
		if virq == 0 {
			break
		}
		d := &Descriptor{
			Device:    dev,
			Hwirq:     hwirq,
			Virq:      virq,
			MsiAttrib: flags,
			hasHwirq:  true,
		}
		reg.addLocked(d)
	}

	if created < nvec {
		failedHwirq := hwirqBase + created
		for i := uint32(0); i < created; i++ {
			hwirq := hwirqBase + i
			d := reg.byHwirq[hwirq]
			if d == nil {
				continue
			}
			domain.DisposeMapping(d.Virq)
			reg.unlinkLocked(d)
		}
		domain.FreeHWIRQRange(hwirqBase, nvec)
		return 0, fmt.Errorf("%w: mapping creation failed for hwirq %d", ErrResourceExhausted, failedHwirq)
	}

	return int(nvec), nil
}

// FreeVectors releases every MSI vector allocated to dev by AllocVectors:
// disposing each descriptor's virq mapping, releasing its hwirq, and
// unlinking it from the registry, matching msi_free_vectors. It is a no-op
// if dev has no registry or no domain.
//
// Like the original, hwirqs are released one at a time rather than as a
// single contiguous range; AllocVectors always reserves and frees as one
// block, so this only matters if a caller interleaves partial frees with
// AllocDescriptor/AddToRegistry-managed descriptors that never go through
// AllocVectors — FreeVectors does not touch those, since they carry no
// hwirq and are not in the domain's care.
func FreeVectors(dev *device.Device) {
	if dev == nil {
		return
	}
	reg, ok := dev.MSIData.(*Registry)
	if !ok || reg == nil {
		return
	}
	domain := dev.MSIDomain
	if domain == nil {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	for e := reg.sentinel.next; e != &reg.sentinel; {
		next := e.next
		d := e.desc
		if !d.hasHwirq {
			e = next
			continue
		}
		if d.Virq != 0 {
			domain.DisposeMapping(d.Virq)
		}
		domain.FreeHWIRQRange(d.Hwirq, 1)
		reg.unlinkLocked(d)
		e = next
	}
}

// ComposeMessage returns d's currently programmed MSI message, matching
// msi_compose_msg.
func ComposeMessage(d *Descriptor) Message {
	if d == nil {
		return Message{}
	}
	return d.Msg
}

// WriteMessage stores msg as d's programmed MSI message, matching
// msi_write_msg. It does not itself write anything to hardware; a
// controller's Chip implementation is responsible for propagating the
// message to the device's config space or equivalent.
func WriteMessage(d *Descriptor, msg Message) {
	if d == nil {
		return
	}
	d.Msg = msg
}

// MaskIRQ disables d's virq via the generic IRQ framework, matching
// msi_mask_irq. A no-op if d is nil or has no virq.
func MaskIRQ(d *Descriptor) error {
	if d == nil || d.Virq == 0 {
		return nil
	}
	return irq.DisableIRQNosync(d.Virq)
}

// UnmaskIRQ enables d's virq via the generic IRQ framework, matching
// msi_unmask_irq. A no-op if d is nil or has no virq.
func UnmaskIRQ(d *Descriptor) error {
	if d == nil || d.Virq == 0 {
		return nil
	}
	return irq.EnableIRQ(d.Virq)
}

// SetAffinity is a stub matching msi_set_affinity: IRQ affinity has no
// effect without multi-hart steering, which this allocator does not yet
// implement.
func SetAffinity(d *Descriptor, cpuMask uint32) error {
	_ = d
	_ = cpuMask
	return nil
}

// CreateDomain is a stub matching msi_create_domain: hierarchical MSI
// domain composition (a domain that allocates from a parent domain rather
// than owning a flat hwirq space) is not implemented.
func CreateDomain() (irq.Domain, error) {
	return nil, irq.ErrUnsupported
}
