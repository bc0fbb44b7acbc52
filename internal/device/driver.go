package device

import (
	"fmt"
	"strings"
	"sync"
)

// ProbeScore ranks how well a driver's Probe thinks it matches a device,
// mirroring original_source/kernel/drivers/driver_core.c's PROBE_SCORE_*
// ladder. The IMSIC driver only ever returns None or Exact (a plain
// substring match against two fixed compatible strings), but the full
// ladder is kept so other drivers registered in the same Registry compete
// on a common scale.
type ProbeScore int

const (
	ProbeScoreNone    ProbeScore = 0
	ProbeScoreGeneric ProbeScore = 1
	ProbeScoreVendor  ProbeScore = 2
	ProbeScoreExact   ProbeScore = 3
)

// Class identifies the category a driver belongs to, matching
// original_source's driver_class_t. Only ClassIntc is used here.
type Class string

const ClassIntc Class = "intc"

// Priority controls ordering among competing drivers during probe, matching
// original_source's DRIVER_PRIO_* / DRIVER_FLAG_EARLY hints.
type Priority int

const (
	PriorityNormal Priority = 0
	PriorityEarly  Priority = -100
)

// Driver is the contract a binding adapter implements to be registered
// with a Registry: probe a device for fitness, attach to take ownership,
// detach to release it. The IMSIC driver's Detach is unconditionally
// unsupported, since the controller is a process-wide singleton.
type Driver interface {
	Name() string
	Class() Class
	Priority() Priority
	Probe(dev *Device) ProbeScore
	Attach(dev *Device) error
	Detach(dev *Device) error
}

// CompatibleMatch reports whether dev's compatible string contains needle.
// The IMSIC driver's Probe uses this against "riscv,imsics" and
// "qemu,imsics".
func CompatibleMatch(dev *Device, needle string) bool {
	return strings.Contains(dev.Compatible, needle)
}

// Registry tracks registered drivers and binds them to devices, grounded
// in original_source/kernel/drivers/driver_core.c's driver_register and
// probe/attach dispatch loop.
type Registry struct {
	mu      sync.Mutex
	drivers []Driver
	logger  Logger
}

// NewRegistry creates an empty registry. A nil logger is replaced with
// NopLogger.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Registry{logger: logger}
}

// Register adds drv to the registry, ordered by Priority (lower runs
// first during ProbeAndAttach), matching DRIVER_FLAG_EARLY's intent.
func (r *Registry) Register(drv Driver) error {
	if drv == nil {
		return fmt.Errorf("device: cannot register nil driver")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.drivers {
		if existing.Name() == drv.Name() {
			return fmt.Errorf("device: driver %q already registered", drv.Name())
		}
	}
	r.drivers = append(r.drivers, drv)
	sortByPriority(r.drivers)
	r.logger.Printf("device: registered driver %q (class=%s)", drv.Name(), drv.Class())
	return nil
}

func sortByPriority(drivers []Driver) {
	for i := 1; i < len(drivers); i++ {
		for j := i; j > 0 && drivers[j].Priority() < drivers[j-1].Priority(); j-- {
			drivers[j], drivers[j-1] = drivers[j-1], drivers[j]
		}
	}
}

// ProbeAndAttach probes every registered driver against dev in priority
// order and attaches the one with the highest score above ProbeScoreNone;
// among equal scores the earliest in priority order wins, matching
// original_source's best-match dispatch.
func (r *Registry) ProbeAndAttach(dev *Device) (Driver, error) {
	r.mu.Lock()
	drivers := make([]Driver, len(r.drivers))
	copy(drivers, r.drivers)
	r.mu.Unlock()

	var best Driver
	bestScore := ProbeScoreNone
	for _, drv := range drivers {
		score := drv.Probe(dev)
		if score > bestScore {
			best = drv
			bestScore = score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("device: no driver matched %q (compatible=%q)", dev.Name, dev.Compatible)
	}
	if err := best.Attach(dev); err != nil {
		r.logger.Printf("device: driver %q failed to attach to %q: %v", best.Name(), dev.Name, err)
		return nil, err
	}
	r.logger.Printf("device: driver %q attached to %q", best.Name(), dev.Name)
	return best, nil
}
