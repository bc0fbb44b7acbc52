package kernelutil

import "testing"

func TestFfsZero(t *testing.T) {
	if got := Ffs(0); got != 0 {
		t.Fatalf("Ffs(0) = %d, want 0", got)
	}
}

func TestFfsPowersOfTwo(t *testing.T) {
	for k := 0; k < 32; k++ {
		x := uint32(1) << uint(k)
		got := Ffs(x)
		want := k + 1
		if got != want {
			t.Fatalf("Ffs(1<<%d) = %d, want %d", k, got, want)
		}
	}
}

func TestFfsProperty(t *testing.T) {
	cases := []uint32{1, 2, 3, 6, 0x80000000, 0xfffe, 0x10000, 0x12340000}
	for _, x := range cases {
		got := Ffs(x)
		if got < 1 || got > 32 {
			t.Fatalf("Ffs(%#x) = %d out of range", x, got)
		}
		bit := got - 1
		if x&(1<<uint(bit)) == 0 {
			t.Fatalf("Ffs(%#x) = %d but bit %d is clear", x, got, bit)
		}
		for b := 0; b < bit; b++ {
			if x&(1<<uint(b)) != 0 {
				t.Fatalf("Ffs(%#x) = %d but lower bit %d is set", x, got, b)
			}
		}
	}
}

func TestLargestPowerOfTwoAtMost(t *testing.T) {
	cases := []struct {
		max  uint32
		want uint32
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 4},
		{5, 4},
		{7, 4},
		{8, 8},
		{32, 32},
		{33, 32},
	}
	for _, c := range cases {
		if got := LargestPowerOfTwoAtMost(c.max); got != c.want {
			t.Fatalf("LargestPowerOfTwoAtMost(%d) = %d, want %d", c.max, got, c.want)
		}
	}
}

func TestRoundupRounddown(t *testing.T) {
	if got := Roundup(5, 4); got != 8 {
		t.Fatalf("Roundup(5,4) = %d, want 8", got)
	}
	if got := Rounddown(5, 4); got != 4 {
		t.Fatalf("Rounddown(5,4) = %d, want 4", got)
	}
	if got := Roundup(8, 4); got != 8 {
		t.Fatalf("Roundup(8,4) = %d, want 8", got)
	}
}
