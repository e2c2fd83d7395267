package app

import (
	"os"
	"sync/atomic"
)

// TestModeEnv, when "1", makes both binaries return before dialling
// Postgres or Redis.
const TestModeEnv = "HARDWORKER_TEST_MODE"

// testMode caches the flag: 0 not read yet, 1 off, 2 on.
var testMode atomic.Int32

// InTestMode reports whether runtime startup should be skipped.
func InTestMode() bool {
	if testMode.Load() == 0 {
		RefreshTestMode()
	}
	return testMode.Load() == 2
}

// RefreshTestMode re-reads the environment, e.g. after t.Setenv.
func RefreshTestMode() {
	if os.Getenv(TestModeEnv) == "1" {
		testMode.Store(2)
		return
	}
	testMode.Store(1)
}
