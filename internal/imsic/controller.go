package imsic

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
	"github.com/Michael-Lloyd/ProtoKernel/internal/irq"
	"github.com/Michael-Lloyd/ProtoKernel/internal/kernelutil"
)

// recentDispatchLogSize bounds the diagnostic ring every Controller
// carries; it has no effect on dispatch correctness.
const recentDispatchLogSize = 32

// Controller aggregates a system's IMSIC interrupt files, owns the linear
// IRQ domain backing them, and dispatches pending interrupts, matching
// original_source's struct imsic_data. Only a single hart's file is
// populated today — multi-hart discovery via interrupts-extended is a
// TODO in the source this is grounded on and is not implemented here.
type Controller struct {
	mu       sync.Mutex
	files    []*File
	numHarts uint32
	numIDs   uint32
	basePPN  uint64
	domain   *irq.LinearDomain

	stats *dispatchStats
	log   *dispatchLog
}

var (
	primaryMu   sync.Mutex
	primary     *Controller
	initialized bool
)

// Attach runs the IMSIC attach sequence against dev: reject if a primary
// controller already exists, retrieve its MMIO resource, read
// "riscv,num-ids" (defaulting to MaxIDs), build a single-hart File,
// create a linear IRQ domain sized to the id count, and publish the
// controller as dev's driver data. On any failure, imsic_initialized is
// left untouched. logger is traced through at the same points
// imsic_attach logs to UART (attach start, already-initialized,
// missing-resource, and the num_harts/num_ids summary); a nil logger is
// replaced with device.NopLogger.
func Attach(dev *device.Device, logger device.Logger) (*Controller, error) {
	if logger == nil {
		logger = device.NopLogger{}
	}
	if dev == nil {
		return nil, fmt.Errorf("imsic: attach: nil device")
	}
	logger.Printf("imsic: attaching device %s", dev.Name)

	primaryMu.Lock()
	defer primaryMu.Unlock()
	if initialized {
		logger.Printf("imsic: already initialized, skipping duplicate attach")
		return nil, ErrAlreadyInitialized
	}

	res, ok := dev.Resource(device.ResourceMem, 0)
	if !ok {
		logger.Printf("imsic: missing MMIO resource")
		return nil, ErrMissingResource
	}

	var base unsafe.Pointer
	if res.MappedAddr != 0 {
		base = unsafe.Pointer(res.MappedAddr)
	} else {
		base = unsafe.Pointer(uintptr(res.Start))
	}

	numIDs := dev.PropertyU32("riscv,num-ids", MaxIDs)
	file := NewFile(base, 0, numIDs)

	ctrl := &Controller{
		files:    []*File{file},
		numHarts: 1,
		numIDs:   numIDs,
		basePPN:  res.Start >> 12,
		stats:    newDispatchStats(numIDs),
		log:      newDispatchLog(recentDispatchLogSize),
	}

	dom, err := irq.NewLinearDomain("imsic", numIDs, ctrl, ctrl)
	if err != nil {
		return nil, fmt.Errorf("imsic: creating irq domain: %w", err)
	}
	ctrl.domain = dom

	dev.MSIDomain = dom
	dev.SetDriverData(ctrl)

	primary = ctrl
	initialized = true
	logger.Printf("imsic: num_harts=%d, num_ids=%d", ctrl.numHarts, ctrl.numIDs)
	return ctrl, nil
}

// Primary returns the process-wide controller instance, or nil if no
// Attach has succeeded yet.
func Primary() *Controller {
	primaryMu.Lock()
	defer primaryMu.Unlock()
	return primary
}

// Domain returns the controller's linear IRQ domain.
func (c *Controller) Domain() *irq.LinearDomain { return c.domain }

// NumIDs returns the number of interrupt ids the primary file supports.
func (c *Controller) NumIDs() uint32 { return c.numIDs }

// BasePPN returns the MSI base physical page number, base_physical >> 12.
func (c *Controller) BasePPN() uint64 { return c.basePPN }

// Dispatches returns the dispatch count for hwirq, and Spurious returns
// the controller's spurious scan count.
func (c *Controller) Dispatches(hwirq uint32) int64 { return c.stats.Dispatches(hwirq) }
func (c *Controller) Spurious() int64               { return c.stats.Spurious() }

// RecentDispatches returns the most recently dispatched hwirqs, oldest
// first.
func (c *Controller) RecentDispatches() []uint32 { return c.log.Recent() }

// SetPending raises hwirq's pending bit on the primary file directly. In
// production this bit is set by the device writing its composed MSI
// message to SETEIPNUM; this accessor exists for software-triggered
// self-interrupts and for driving HandleIRQ without real hardware.
func (c *Controller) SetPending(hwirq uint32) {
	c.files[0].SetPending(hwirq)
}

func (c *Controller) file(d *irq.Desc) *File {
	if f, ok := d.ChipData.(*File); ok && f != nil {
		return f
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[0]
}

// Map implements irq.DomainOps: it attaches the controller's chip vtable
// and the primary file to the descriptor behind virq, matching
// domain_map. Fails if virq has no descriptor.
func (c *Controller) Map(dom *irq.LinearDomain, virq, hwirq uint32) error {
	d := irq.ToDesc(virq)
	if d == nil {
		return fmt.Errorf("imsic: domain_map: no descriptor for virq %d", virq)
	}
	d.Chip = c
	d.ChipData = c.files[0]
	return nil
}

// Unmap implements irq.DomainOps. The chip vtable and file pointer are
// descriptor-local state that is discarded along with the descriptor
// itself; nothing further to release here.
func (c *Controller) Unmap(dom *irq.LinearDomain, virq uint32) {}

// Name implements irq.Chip.
func (c *Controller) Name() string { return "imsic" }

// Mask implements irq.Chip: disables delivery of d.Hwirq on its file.
func (c *Controller) Mask(d *irq.Desc) {
	c.file(d).SetEnabled(d.Hwirq, false)
}

// Unmask implements irq.Chip: enables delivery of d.Hwirq on its file.
func (c *Controller) Unmask(d *irq.Desc) {
	c.file(d).SetEnabled(d.Hwirq, true)
}

// Ack implements irq.Chip: clears d.Hwirq's pending bit.
func (c *Controller) Ack(d *irq.Desc) {
	c.file(d).ClearPending(d.Hwirq)
}

// HandleIRQ is the top-level dispatch entry point, called from the
// machine/supervisor external-interrupt handler: scan EIP for the first
// pending id, resolve it to a virq and invoke the generic handler, then
// clear the pending bit. hwirq == 0 is indistinguishable from "nothing
// pending" (both the unscanned and the id-0-pending cases compute to 0),
// so this returns without dispatching or clearing in either case — id 0
// is reserved and never legitimately delivered.
func (c *Controller) HandleIRQ() {
	f := c.files[0]
	words := f.numWords()

	var hwirq uint32
	var found bool
	for k := uint32(0); k < words; k++ {
		word := f.PendingWord(k)
		if word == 0 {
			continue
		}
		bit := kernelutil.Ffs(word)
		hwirq = 32*k + uint32(bit-1)
		found = true
		break
	}

	if !found || hwirq == 0 {
		c.stats.recordSpurious()
		return
	}

	if virq := c.domain.FindMapping(hwirq); virq != 0 {
		irq.GenericHandleIRQ(virq)
	}
	f.ClearPending(hwirq)

	c.stats.record(hwirq)
	c.log.push(hwirq)
}

// resetForTest clears the process-wide singleton state so independent
// test cases can each Attach a fresh controller. Only called from this
// package's own tests.
func resetForTest() {
	primaryMu.Lock()
	defer primaryMu.Unlock()
	primary = nil
	initialized = false
}
