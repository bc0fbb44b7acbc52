// Command imsicdemo wires a simulated device-tree node and a simulated
// MMIO window through driver probe/attach, MSI vector allocation, a
// simulated pending interrupt, and dispatch up to the generic IRQ
// framework, and finally vector release.
package main

import (
	"log"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
	"github.com/Michael-Lloyd/ProtoKernel/internal/imsic"
	"github.com/Michael-Lloyd/ProtoKernel/internal/msi"
)

// stdLogger adapts the standard log package to device.Logger.
type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) { log.Printf(format, args...) }

func main() {
	mmio, err := unix.Mmap(-1, 0, imsic.MMIOStride, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		log.Fatalf("imsicdemo: mmap: %v", err)
	}
	defer unix.Munmap(mmio)

	intc := device.NewDevice("interrupt-controller@28000000", "riscv,imsics")
	intc.AddResource(device.Resource{
		Type:       device.ResourceMem,
		Start:      0x2800_0000,
		End:        0x2800_0fff,
		MappedAddr: uintptr(unsafe.Pointer(&mmio[0])),
	})
	intc.SetProperty("riscv,num-ids", 64)

	registry := device.NewRegistry(stdLogger{})
	if err := registry.Register(imsic.NewDriver(stdLogger{})); err != nil {
		log.Fatalf("imsicdemo: register driver: %v", err)
	}
	if _, err := registry.ProbeAndAttach(intc); err != nil {
		log.Fatalf("imsicdemo: attach IMSIC: %v", err)
	}
	ctrl := imsic.Primary()
	log.Printf("imsicdemo: IMSIC attached: num_ids=%d base_ppn=%#x", ctrl.NumIDs(), ctrl.BasePPN())

	// hwirq 0 is reserved: handle_irq cannot distinguish "id 0 pending"
	// from "nothing pending", so reserve it up front before any device
	// requests vectors — otherwise the first contiguous block handed out
	// would start at 0 and its lowest vector would be undeliverable.
	reserved := device.NewDevice("reserved-hwirq-0", "")
	reserved.MSIDomain = ctrl.Domain()
	if _, err := msi.Init(reserved); err != nil {
		log.Fatalf("imsicdemo: msi.Init(reserved): %v", err)
	}
	if _, err := msi.AllocVectors(reserved, 1, 1, 0); err != nil {
		log.Fatalf("imsicdemo: reserving hwirq 0: %v", err)
	}

	nicDev := device.NewDevice("virtio-net@10008000", "virtio,mmio")
	nicDev.MSIDomain = ctrl.Domain()
	msiReg, err := msi.Init(nicDev)
	if err != nil {
		log.Fatalf("imsicdemo: msi.Init: %v", err)
	}

	n, err := msi.AllocVectors(nicDev, 2, 4, 0)
	if err != nil {
		log.Fatalf("imsicdemo: AllocVectors: %v", err)
	}
	log.Printf("imsicdemo: allocated %d MSI vectors for %s", n, nicDev.Name)

	rxHwirq := uint32(0)
	for hwirq := uint32(0); hwirq < 64; hwirq++ {
		if d := msiReg.ByHwirq(hwirq); d != nil {
			rxHwirq = hwirq
			if err := msi.UnmaskIRQ(d); err != nil {
				log.Fatalf("imsicdemo: UnmaskIRQ: %v", err)
			}
			break
		}
	}

	// Simulate the device writing its composed MSI message: raising the
	// pending bit for the vector's hwirq on the primary interrupt file.
	// A real device does this itself; nothing else in this demo plays
	// that role.
	ctrl.SetPending(rxHwirq)
	ctrl.HandleIRQ()
	log.Printf("imsicdemo: hwirq %d dispatches=%d recent=%v", rxHwirq, ctrl.Dispatches(rxHwirq), ctrl.RecentDispatches())

	msi.FreeVectors(nicDev)
	log.Printf("imsicdemo: freed MSI vectors, remaining=%d", msiReg.NumVectors())
}
