package irq

import "testing"

type fakeChip struct {
	masked map[uint32]bool
}

func (c *fakeChip) Name() string { return "fake" }
func (c *fakeChip) Mask(d *Desc) {
	if c.masked == nil {
		c.masked = map[uint32]bool{}
	}
	c.masked[d.Hwirq] = true
}
func (c *fakeChip) Unmask(d *Desc) {
	if c.masked == nil {
		c.masked = map[uint32]bool{}
	}
	c.masked[d.Hwirq] = false
}
func (c *fakeChip) Ack(d *Desc) {}

type fakeOps struct {
	chip *fakeChip
}

func (o *fakeOps) Map(domain *LinearDomain, virq, hwirq uint32) error {
	d := ToDesc(virq)
	d.Chip = o.chip
	return nil
}
func (o *fakeOps) Unmap(domain *LinearDomain, virq uint32) {}

func TestLinearDomainAllocAlignment(t *testing.T) {
	dom, err := NewLinearDomain("test", 64, &fakeOps{chip: &fakeChip{}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var base1 uint32
	if err := dom.AllocHWIRQRange(4, &base1); err != nil {
		t.Fatal(err)
	}
	if base1%4 != 0 {
		t.Fatalf("base %d not aligned to block size 4", base1)
	}

	var base2 uint32
	if err := dom.AllocHWIRQRange(8, &base2); err != nil {
		t.Fatal(err)
	}
	if base2%8 != 0 {
		t.Fatalf("base %d not aligned to block size 8", base2)
	}
	if base2 >= base1 && base2 < base1+4 {
		t.Fatalf("ranges overlap: base1=%d base2=%d", base1, base2)
	}
}

func TestLinearDomainMappingRoundTrip(t *testing.T) {
	chip := &fakeChip{}
	dom, err := NewLinearDomain("test", 16, &fakeOps{chip: chip}, nil)
	if err != nil {
		t.Fatal(err)
	}

	virq := dom.CreateMapping(5)
	if virq == 0 {
		t.Fatal("expected non-zero virq")
	}
	if again := dom.CreateMapping(5); again != virq {
		t.Fatalf("repeated CreateMapping returned %d, want %d", again, virq)
	}
	if got := dom.FindMapping(5); got != virq {
		t.Fatalf("FindMapping = %d, want %d", got, virq)
	}

	d := ToDesc(virq)
	if d == nil {
		t.Fatal("ToDesc returned nil")
	}

	fired := false
	d.SetHandler(func() { fired = true })
	GenericHandleIRQ(virq)
	if !fired {
		t.Fatal("handler not invoked")
	}

	if err := EnableIRQ(virq); err != nil {
		t.Fatal(err)
	}
	if chip.masked[5] {
		t.Fatal("expected unmasked after EnableIRQ")
	}
	if err := DisableIRQNosync(virq); err != nil {
		t.Fatal(err)
	}
	if !chip.masked[5] {
		t.Fatal("expected masked after DisableIRQNosync")
	}

	dom.DisposeMapping(virq)
	if got := dom.FindMapping(5); got != 0 {
		t.Fatalf("FindMapping after dispose = %d, want 0", got)
	}
	if ToDesc(virq) != nil {
		t.Fatal("ToDesc after dispose should be nil")
	}
}

func TestLinearDomainOutOfRange(t *testing.T) {
	dom, err := NewLinearDomain("test", 4, &fakeOps{chip: &fakeChip{}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := dom.CreateMapping(100); got != 0 {
		t.Fatalf("CreateMapping out of range = %d, want 0", got)
	}
	if got := dom.FindMapping(100); got != 0 {
		t.Fatalf("FindMapping out of range = %d, want 0", got)
	}
}
