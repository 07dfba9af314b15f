package testutil

import (
	"fmt"
	"testing"
	"time"
)

const (
	pollStart = 5 * time.Millisecond
	pollMax   = 100 * time.Millisecond
)

// PollUntil calls condition until it returns true, failing the test if
// timeout passes first. The interval starts at 5ms and doubles up to 100ms,
// the same cadence the supervisor uses on check processes.
//
// Example:
//
//	testutil.PollUntil(t, 5*time.Second, func() bool {
//	    return spawner.Count("/mnt/a") == 2
//	})
func PollUntil(t testing.TB, timeout time.Duration, condition func() bool) {
	t.Helper()
	if !poll(timeout, condition) {
		t.Fatalf("condition not met within %v timeout", timeout)
	}
}

// PollUntilf is PollUntil with a description of what was awaited in the
// failure message.
func PollUntilf(t testing.TB, timeout time.Duration, condition func() bool, format string, args ...any) {
	t.Helper()
	if !poll(timeout, condition) {
		t.Fatalf("%s: not met within %v timeout", fmt.Sprintf(format, args...), timeout)
	}
}

func poll(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	interval := pollStart

	for {
		if condition() {
			return true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		time.Sleep(min(interval, remaining))

		interval = min(interval*2, pollMax)
	}
}
