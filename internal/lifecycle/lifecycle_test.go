package lifecycle

import "testing"

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown_Sequence(t *testing.T) {
	defer SetShuttingDown(false)
	for i, v := range []bool{true, true, false, true, false} {
		SetShuttingDown(v)
		if got := IsShuttingDown(); got != v {
			t.Errorf("step %d: IsShuttingDown() = %v, want %v", i, got, v)
		}
	}
}
