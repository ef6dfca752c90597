//go:build linux

package affinity_test

import (
	"runtime"
	"testing"

	"github.com/kepler-io/ioq/internal/affinity"
)

func TestPinToCPUZero(t *testing.T) {
	if err := affinity.Pin(0); err != nil {
		t.Fatalf("Pin(0): %v", err)
	}
	defer runtime.UnlockOSThread()
}
