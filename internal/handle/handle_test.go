package handle_test

import (
	"testing"

	"github.com/kepler-io/ioq/internal/handle"
)

func TestInvalidIsNotValid(t *testing.T) {
	h := handle.FromRaw(handle.Invalid)
	if h.Valid() {
		t.Fatal("invalid sentinel reported as valid")
	}
}

func TestFromRawRoundTrip(t *testing.T) {
	h := handle.FromRaw(42)
	if !h.Valid() {
		t.Fatal("42 reported as invalid")
	}
	if h.Raw() != 42 {
		t.Fatalf("Raw() = %d, want 42", h.Raw())
	}
}

func TestLessOrdersByRawValue(t *testing.T) {
	a, b := handle.FromRaw(1), handle.FromRaw(2)
	if !a.Less(b) {
		t.Fatal("1 should be Less than 2")
	}
	if b.Less(a) {
		t.Fatal("2 should not be Less than 1")
	}
	if a.Less(a) {
		t.Fatal("a should not be Less than itself")
	}
}

func TestStringFormatsHex(t *testing.T) {
	h := handle.FromRaw(255)
	if got, want := h.String(), "0xff"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
