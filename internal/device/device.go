// Package device provides a minimal device/resource/driver-registry
// surface: resource lookup, device-tree-style u32 properties, driver
// private-data storage, and the compatible-string probe/attach/detach
// contract a binding adapter implements. It is grounded in
// original_source/kernel/device/device_core.c, resource.c and
// device_tree.c, and in a Mkdev/Unmkdev-style monotonic device-identifier
// scheme.
package device

import (
	"sync"
	"sync/atomic"

	"github.com/Michael-Lloyd/ProtoKernel/internal/irq"
)

// ResourceType identifies the kind of a Resource, matching the original's
// RES_TYPE_* family. Only the memory-region type is exercised by the MSI
// core; the others are carried for a faithful, extensible resource model.
type ResourceType int

const (
	ResourceMem ResourceType = iota
	ResourceIO
	ResourceIRQ
	ResourceDMA
)

// Resource describes one entry in a device's resource list, matching the
// original's struct resource (start/end/mapped_addr).
type Resource struct {
	Type       ResourceType
	Name       string
	Start      uint64
	End        uint64
	MappedAddr uintptr // nonzero if the kernel has already mapped this region
}

var nextDeviceID atomic.Uint64

// mkDeviceID encodes a stable identifier for logging, in the spirit of a
// Mkdev/Unmkdev major/minor encoding — here the "major" is a monotonically
// increasing registration sequence number, since this repository has no
// bus/class taxonomy to encode as a major number.
func mkDeviceID() uint64 {
	return nextDeviceID.Add(1)
}

// Device is a minimal device-tree node: a name, a single compatible
// string (matched by substring, as original_source's device_core.c does
// with strstr), a resource list, device-tree-style u32 properties, and two
// opaque per-subsystem pointers: the MSI registry (MSIData) and the
// device's MSI domain (MSIDomain).
type Device struct {
	mu sync.Mutex

	id         uint64
	Name       string
	Compatible string

	resources  []Resource
	properties map[string]uint32

	// MSIData holds the device's *msi.Registry once msi.Init has
	// run. It is untyped here so this package need not import internal/msi.
	MSIData any
	// MSIDomain is the IRQ domain internal/msi.AllocVectors reserves hwirq
	// ranges from, normally installed by the controller that owns the
	// device (e.g. the IMSIC controller) before MSI allocation is
	// attempted.
	MSIDomain irq.Domain

	driverData any
}

// NewDevice constructs a device with the given name and compatible string.
func NewDevice(name, compatible string) *Device {
	return &Device{
		id:         mkDeviceID(),
		Name:       name,
		Compatible: compatible,
		properties: make(map[string]uint32),
	}
}

// ID returns the device's stable registration-order identifier.
func (d *Device) ID() uint64 {
	return d.id
}

// AddResource appends a resource to the device's resource list.
func (d *Device) AddResource(r Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resources = append(d.resources, r)
}

// Resource returns the index'th resource of the given type.
func (d *Device) Resource(t ResourceType, index int) (Resource, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.resources {
		if r.Type != t {
			continue
		}
		if n == index {
			return r, true
		}
		n++
	}
	return Resource{}, false
}

// SetProperty sets a device-tree-style u32 property, as a stand-in for a
// parsed FDT node (DTB parsing is out of scope here).
func (d *Device) SetProperty(key string, val uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.properties[key] = val
}

// PropertyU32 returns the named property, or def if it is unset.
func (d *Device) PropertyU32(key string, def uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.properties[key]; ok {
		return v
	}
	return def
}

// SetDriverData stores the driver-private pointer a successful Attach
// publishes.
func (d *Device) SetDriverData(v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.driverData = v
}

// DriverData returns whatever SetDriverData last stored, or nil.
func (d *Device) DriverData() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.driverData
}
