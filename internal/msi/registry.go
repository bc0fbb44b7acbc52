package msi

import (
	"fmt"
	"sync"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
)

// Registry is a device's MSI descriptor list, matching
// original_source/kernel/include/irq/msi.h's struct msi_device_data: a
// sentinel-headed intrusive list, a vector count, and a single lock
// guarding both. The original also indexes descriptors only by linear
// list walk; msi_alloc_vectors's cleanup path and msi_free_vectors both
// carry a comment noting this is inefficient and that a hwirq-keyed
// lookup would be better. That lookup is added here as byHwirq — a plain
// map is sufficient (rather than a lock-free bucketed hashtable) because
// every access already happens under mu, so there is no concurrent-reader
// case to optimize for.
type Registry struct {
	mu         sync.Mutex
	sentinel   listElem
	numVectors uint32
	byHwirq    map[uint32]*Descriptor
}

// Init creates dev's MSI registry and installs it as dev.MSIData, matching
// msi_device_init. It fails if dev is nil or already has a registry.
func Init(dev *device.Device) (*Registry, error) {
	if dev == nil {
		return nil, ErrInvalidArgument
	}
	if dev.MSIData != nil {
		return nil, fmt.Errorf("msi: device %q already has an MSI registry", dev.Name)
	}
	reg := &Registry{byHwirq: make(map[uint32]*Descriptor)}
	reg.sentinel.next = &reg.sentinel
	reg.sentinel.prev = &reg.sentinel
	dev.MSIData = reg
	return reg, nil
}

// Cleanup tears down dev's MSI registry, releasing every linked
// descriptor's mapping and emptying the list, matching msi_device_cleanup.
// It is a no-op if dev has no registry.
func Cleanup(dev *device.Device) {
	if dev == nil {
		return
	}
	reg, ok := dev.MSIData.(*Registry)
	if !ok || reg == nil {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()

	domain := dev.MSIDomain
	for e := reg.sentinel.next; e != &reg.sentinel; {
		next := e.next
		d := e.desc
		if domain != nil && d.Virq != 0 {
			domain.DisposeMapping(d.Virq)
		}
		reg.unlinkLocked(d)
		e = next
	}
	dev.MSIData = nil
}

// NumVectors returns the number of descriptors currently linked.
func (r *Registry) NumVectors() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numVectors
}

// ByHwirq returns the descriptor for hwirq, or nil if none is linked. Only
// descriptors created by AllocVectors carry a meaningful hwirq and are
// indexed; descriptors linked via AddToRegistry are not.
func (r *Registry) ByHwirq(hwirq uint32) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byHwirq[hwirq]
}

// addLocked appends d to the tail of the list and increments both
// numVectors and d's refcount, matching msi_desc_list_add_locked. Callers
// hold r.mu.
func (r *Registry) addLocked(d *Descriptor) {
	e := &listElem{desc: d}
	e.prev = r.sentinel.prev
	e.next = &r.sentinel
	r.sentinel.prev.next = e
	r.sentinel.prev = e

	r.numVectors++
	d.refcount++
	d.reg = r
	d.elem = e
	if d.hasHwirq {
		r.byHwirq[d.Hwirq] = d
	}
}

// unlinkLocked removes d from the list if linked and clears its index
// entry. It does not touch d.refcount; callers that want msi_desc_free's
// decrement-then-maybe-unlink behavior should use Descriptor.Free instead.
// Callers hold r.mu.
func (r *Registry) unlinkLocked(d *Descriptor) {
	if d.elem == nil {
		return
	}
	e := d.elem
	e.prev.next = e.next
	e.next.prev = e.prev
	d.elem = nil
	d.reg = nil
	if d.hasHwirq && r.byHwirq[d.Hwirq] == d {
		delete(r.byHwirq, d.Hwirq)
	}
	if r.numVectors > 0 {
		r.numVectors--
	}
}
