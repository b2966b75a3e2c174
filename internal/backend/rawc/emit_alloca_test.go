package rawc

import (
	"errors"
	"testing"

	"rawc/internal/diag"
)

func TestStackSlots(t *testing.T) {
	tests := []struct {
		kind  string
		count int64
		want  int
	}{
		{"shape", 0, 0},
		{"shape", 3, 3},
		{"arg_value", 5, 5},
		{"arg_tcode", 1, 1},
		{"arg_tcode", 2, 1},
		{"arg_tcode", 3, 2},
		{"array", 1, 6},
		{"array", 2, 12},
	}
	for _, tt := range tests {
		got, err := StackSlots(tt.kind, tt.count)
		if err != nil {
			t.Fatalf("StackSlots(%s, %d): %v", tt.kind, tt.count, err)
		}
		if got != tt.want {
			t.Errorf("StackSlots(%s, %d) = %d, want %d", tt.kind, tt.count, got, tt.want)
		}
	}
}

func TestStackSlotsShapeIsMonotonic(t *testing.T) {
	prev := -1
	for n := int64(0); n <= 64; n++ {
		got, err := StackSlots("shape", n)
		if err != nil {
			t.Fatal(err)
		}
		want := int((n*IndexSize + SlotSize - 1) / SlotSize)
		if got != want {
			t.Fatalf("StackSlots(shape, %d) = %d, want %d", n, got, want)
		}
		if got < prev {
			t.Fatalf("slot count dropped from %d to %d at n=%d", prev, got, n)
		}
		prev = got
	}
}

func TestStackSlotsRejects(t *testing.T) {
	for _, tt := range []struct {
		kind  string
		count int64
	}{
		{"tensor", 1},
		{"shape", -1},
		{"array", 1 << 62},
	} {
		if _, err := StackSlots(tt.kind, tt.count); !errors.Is(err, diag.MalformedCall) {
			t.Errorf("StackSlots(%s, %d) = %v, want MalformedCall", tt.kind, tt.count, err)
		}
	}
}
