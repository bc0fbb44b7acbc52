package msi

import (
	"testing"

	"github.com/Michael-Lloyd/ProtoKernel/internal/device"
)

func TestAllocDescriptorRejectsBadArgs(t *testing.T) {
	dev := device.NewDevice("d0", "vendor,thing")
	if _, err := AllocDescriptor(nil, 1); err != ErrInvalidArgument {
		t.Fatalf("nil device: got %v", err)
	}
	if _, err := AllocDescriptor(dev, 0); err != ErrInvalidArgument {
		t.Fatalf("zero nvec: got %v", err)
	}
	if _, err := AllocDescriptor(dev, MaxVectors+1); err != ErrInvalidArgument {
		t.Fatalf("over-max nvec: got %v", err)
	}
}

func TestAllocDescriptorMultipleField(t *testing.T) {
	dev := device.NewDevice("d0", "vendor,thing")
	cases := []struct {
		nvec uint32
		want uint8
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
	}
	for _, c := range cases {
		d, err := AllocDescriptor(dev, c.nvec)
		if err != nil {
			t.Fatalf("nvec=%d: %v", c.nvec, err)
		}
		if d.Multiple != c.want {
			t.Fatalf("nvec=%d: Multiple = %d, want %d", c.nvec, d.Multiple, c.want)
		}
		if d.Refcount() != 1 {
			t.Fatalf("nvec=%d: refcount = %d, want 1", c.nvec, d.Refcount())
		}
	}
}

func TestAddToRegistryRequiresRegistry(t *testing.T) {
	dev := device.NewDevice("d0", "vendor,thing")
	d, err := AllocDescriptor(dev, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := AddToRegistry(dev, d); err != ErrInvalidArgument {
		t.Fatalf("expected error linking without a registry, got %v", err)
	}

	reg, err := Init(dev)
	if err != nil {
		t.Fatal(err)
	}
	if err := AddToRegistry(dev, d); err != nil {
		t.Fatal(err)
	}
	if reg.NumVectors() != 1 {
		t.Fatalf("NumVectors = %d, want 1", reg.NumVectors())
	}
	if d.Refcount() != 2 {
		t.Fatalf("refcount after AddToRegistry = %d, want 2 (AllocDescriptor's 1 plus the link)", d.Refcount())
	}
}

func TestDescriptorFreeUnlinksAtZeroRefcount(t *testing.T) {
	dev := device.NewDevice("d0", "vendor,thing")
	if _, err := Init(dev); err != nil {
		t.Fatal(err)
	}
	d, err := AllocDescriptor(dev, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := AddToRegistry(dev, d); err != nil {
		t.Fatal(err)
	}
	reg := dev.MSIData.(*Registry)

	// refcount is 2 (one from AllocDescriptor, one from AddToRegistry); the
	// first Free should merely decrement, not unlink.
	d.Free()
	if reg.NumVectors() != 1 {
		t.Fatalf("NumVectors after first Free = %d, want 1 (still linked)", reg.NumVectors())
	}
	d.Free()
	if reg.NumVectors() != 0 {
		t.Fatalf("NumVectors after second Free = %d, want 0 (unlinked)", reg.NumVectors())
	}
}

func TestDescriptorFreeOnNilIsNoop(t *testing.T) {
	var d *Descriptor
	d.Free()
}
