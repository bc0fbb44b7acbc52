package irq

import (
	"fmt"
	"sync"

	"github.com/Michael-Lloyd/ProtoKernel/internal/kernelutil"
)

// Domain is the hwirq-range / mapping surface an MSI allocator needs from
// an IRQ domain. *LinearDomain satisfies it.
type Domain interface {
	AllocHWIRQRange(n uint32, hwirqBase *uint32) error
	FreeHWIRQRange(base, n uint32)
	CreateMapping(hwirq uint32) uint32
	DisposeMapping(virq uint32)
	FindMapping(hwirq uint32) uint32
}

// DomainOps is invoked by a LinearDomain when a hwirq is mapped to a virq
// and when that mapping is torn down. An IMSIC controller implements this
// to attach its chip vtable and per-hart file pointer to the descriptor.
type DomainOps interface {
	Map(domain *LinearDomain, virq, hwirq uint32) error
	Unmap(domain *LinearDomain, virq uint32)
}

// LinearDomain is an IRQ domain whose hwirq space is the fixed range
// [0, size). Allocation of contiguous hwirq ranges for MSI blocks honors
// natural alignment: a range of n ids is reserved only at an offset that is
// itself a multiple of n, so the low bits of an MSI message's data field
// (the vector offset within the block) are stable regardless of which
// block a device received — the reason MSI block sizes are restricted to
// powers of two in the first place.
type LinearDomain struct {
	mu       sync.Mutex
	name     string
	size     uint32
	used     []bool
	linear   []uint32 // hwirq -> virq, 0 means unmapped
	ops      DomainOps
	HostData any
}

// NewLinearDomain creates a linear domain of the given size. size must be
// nonzero.
func NewLinearDomain(name string, size uint32, ops DomainOps, hostData any) (*LinearDomain, error) {
	if size == 0 {
		return nil, fmt.Errorf("irq: linear domain %q: size must be nonzero", name)
	}
	return &LinearDomain{
		name:     name,
		size:     size,
		used:     make([]bool, size),
		linear:   make([]uint32, size),
		ops:      ops,
		HostData: hostData,
	}, nil
}

// Size returns the domain's fixed hwirq space size.
func (dom *LinearDomain) Size() uint32 {
	return dom.size
}

// AllocHWIRQRange reserves n consecutive hwirq ids at an offset aligned to
// n and writes the base into *hwirqBase. n must be a power of two: callers
// rely on that alignment to keep an MSI block's vector offset stable in the
// low bits of the block, a guarantee that only holds for power-of-two block
// sizes. Returns a non-nil error if no such range is free.
func (dom *LinearDomain) AllocHWIRQRange(n uint32, hwirqBase *uint32) error {
	if n == 0 {
		return fmt.Errorf("irq: alloc hwirq range: n must be nonzero")
	}
	if !kernelutil.IsPowerOfTwo(n) {
		return fmt.Errorf("irq: alloc hwirq range: n=%d must be a power of two", n)
	}
	dom.mu.Lock()
	defer dom.mu.Unlock()

	for base := uint32(0); base+n <= dom.size; base = kernelutil.Roundup(base+1, n) {
		if dom.rangeFreeLocked(base, n) {
			for i := base; i < base+n; i++ {
				dom.used[i] = true
			}
			*hwirqBase = base
			return nil
		}
	}
	return fmt.Errorf("irq: domain %q: no free aligned range of %d ids", dom.name, n)
}

func (dom *LinearDomain) rangeFreeLocked(base, n uint32) bool {
	for i := base; i < base+n; i++ {
		if dom.used[i] {
			return false
		}
	}
	return true
}

// FreeHWIRQRange releases the range [base, base+n). Behavior is undefined
// if any id in the range was not currently reserved.
func (dom *LinearDomain) FreeHWIRQRange(base, n uint32) {
	dom.mu.Lock()
	defer dom.mu.Unlock()
	end := kernelutil.Min(base+n, dom.size)
	for i := base; i < end; i++ {
		dom.used[i] = false
	}
}

// CreateMapping returns the virq for hwirq, allocating and installing one
// via DomainOps.Map if none exists yet. Repeated calls with the same hwirq
// return the same virq.
func (dom *LinearDomain) CreateMapping(hwirq uint32) uint32 {
	dom.mu.Lock()
	if hwirq >= dom.size {
		dom.mu.Unlock()
		return 0
	}
	if v := dom.linear[hwirq]; v != 0 {
		dom.mu.Unlock()
		return v
	}
	dom.mu.Unlock()

	virq := allocVirq()
	desc := &Desc{Virq: virq, Hwirq: hwirq, Domain: dom}
	descTableMu.Lock()
	descTable[virq] = desc
	descTableMu.Unlock()

	if dom.ops != nil {
		if err := dom.ops.Map(dom, virq, hwirq); err != nil {
			descTableMu.Lock()
			delete(descTable, virq)
			descTableMu.Unlock()
			return 0
		}
	}

	dom.mu.Lock()
	dom.linear[hwirq] = virq
	dom.mu.Unlock()

	return virq
}

// DisposeMapping tears down the mapping behind virq, if any. Safe to call
// after CreateMapping or on an already-disposed virq.
func (dom *LinearDomain) DisposeMapping(virq uint32) {
	if virq == 0 {
		return
	}
	descTableMu.Lock()
	desc, ok := descTable[virq]
	if ok {
		delete(descTable, virq)
	}
	descTableMu.Unlock()
	if !ok {
		return
	}

	if dom.ops != nil {
		dom.ops.Unmap(dom, virq)
	}

	dom.mu.Lock()
	if desc.Hwirq < dom.size && dom.linear[desc.Hwirq] == virq {
		dom.linear[desc.Hwirq] = 0
	}
	dom.mu.Unlock()
}

// FindMapping returns the virq mapped to hwirq, or 0 if none exists.
func (dom *LinearDomain) FindMapping(hwirq uint32) uint32 {
	dom.mu.Lock()
	defer dom.mu.Unlock()
	if hwirq >= dom.size {
		return 0
	}
	return dom.linear[hwirq]
}
