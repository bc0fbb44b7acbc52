package imsic

import (
	"fmt"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
)

// compatible strings this driver binds to, matching imsic_matches.
const (
	compatRISCV = "riscv,imsics"
	compatQEMU  = "qemu,imsics"
)

// Driver is the binding adapter registered with a device.Registry,
// matching original_source's struct driver imsic_driver: an early,
// built-in, singleton-enforcing probe/attach/detach triple.
type Driver struct {
	logger device.Logger
}

// NewDriver constructs the IMSIC binding adapter. A nil logger is replaced
// with device.NopLogger; Attach traces through it at the same points
// imsic_attach logs to UART.
func NewDriver(logger device.Logger) *Driver {
	if logger == nil {
		logger = device.NopLogger{}
	}
	return &Driver{logger: logger}
}

func (*Driver) Name() string             { return "riscv-imsic" }
func (*Driver) Class() device.Class      { return device.ClassIntc }
func (*Driver) Priority() device.Priority { return device.PriorityEarly }

// Probe matches dev.Compatible against the two accepted IMSIC strings.
func (d *Driver) Probe(dev *device.Device) device.ProbeScore {
	if device.CompatibleMatch(dev, compatRISCV) || device.CompatibleMatch(dev, compatQEMU) {
		d.logger.Printf("imsic: probe accepted %s (compatible=%q)", dev.Name, dev.Compatible)
		return device.ProbeScoreExact
	}
	return device.ProbeScoreNone
}

// Attach runs the IMSIC attach sequence via Attach, logging through the
// driver's own Logger.
func (d *Driver) Attach(dev *device.Device) error {
	ctrl, err := Attach(dev, d.logger)
	if err != nil {
		d.logger.Printf("imsic: attach failed for %s: %v", dev.Name, err)
		return err
	}
	d.logger.Printf("imsic: attach succeeded for %s (num_harts=%d, num_ids=%d)", dev.Name, ctrl.numHarts, ctrl.numIDs)
	return nil
}

// Detach always fails: the controller is a process-wide singleton with no
// defined teardown, matching imsic_detach's unconditional -1.
func (*Driver) Detach(dev *device.Device) error {
	return fmt.Errorf("imsic: detach not supported")
}
