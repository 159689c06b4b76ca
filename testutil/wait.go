package testutil

import (
	"testing"
	"time"
)

// WaitForCondition polls condition every 10ms and fails the test if it is
// still false after timeout.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s: condition not met within %v", msg, timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
