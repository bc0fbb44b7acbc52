package msi

import (
	"testing"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
)

func TestInitRejectsNilAndDoubleInit(t *testing.T) {
	if _, err := Init(nil); err != ErrInvalidArgument {
		t.Fatalf("nil device: got %v", err)
	}
	dev := device.NewDevice("d0", "vendor,thing")
	if _, err := Init(dev); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(dev); err == nil {
		t.Fatal("expected error re-initializing an already-initialized device")
	}
}

func TestCleanupIsNoopWithoutRegistry(t *testing.T) {
	Cleanup(nil)
	dev := device.NewDevice("d0", "vendor,thing")
	Cleanup(dev) // never Init'd
}

func TestCleanupEmptiesRegistryAndClearsMSIData(t *testing.T) {
	dev := device.NewDevice("d0", "vendor,thing")
	reg, err := Init(dev)
	if err != nil {
		t.Fatal(err)
	}
	d1, _ := AllocDescriptor(dev, 1)
	d2, _ := AllocDescriptor(dev, 1)
	if err := AddToRegistry(dev, d1); err != nil {
		t.Fatal(err)
	}
	if err := AddToRegistry(dev, d2); err != nil {
		t.Fatal(err)
	}
	if reg.NumVectors() != 2 {
		t.Fatalf("NumVectors = %d, want 2", reg.NumVectors())
	}

	Cleanup(dev)
	if dev.MSIData != nil {
		t.Fatal("expected MSIData cleared after Cleanup")
	}
	if reg.NumVectors() != 0 {
		t.Fatalf("NumVectors after Cleanup = %d, want 0", reg.NumVectors())
	}
}
