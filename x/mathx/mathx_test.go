package mathx

import "testing"

func TestClampBetween(t *testing.T) {
	if got := Clamp(1500, 0, 1023); got != 1023 {
		t.Fatalf("Clamp high = %d", got)
	}
	if got := Clamp(-3, 10, 0); got != 0 {
		t.Fatalf("Clamp swapped = %d", got)
	}
	if !Between(int16(181), 150, 210) || Between(int16(211), 150, 210) {
		t.Fatal("Between window")
	}
	if !Between(5, 9, 1) {
		t.Fatal("Between should be order-insensitive")
	}
}

func TestMinAbs(t *testing.T) {
	if Min(16, 5) != 5 || Min("b", "a") != "a" {
		t.Fatal("Min")
	}
	if Abs(int32(-7)) != 7 || Abs(int8(3)) != 3 {
		t.Fatal("Abs")
	}
}

func TestDivRound(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{7, 2, 4},
		{-7, 2, -4},
		{7, -2, -4},
		{6, 4, 2},
		{5, 0, 0},
		{98000, 10000, 10},
	}
	for _, c := range cases {
		if got := DivRound(c.a, c.b); got != c.want {
			t.Fatalf("DivRound(%d,%d) = %d want %d", c.a, c.b, got, c.want)
		}
	}
}
