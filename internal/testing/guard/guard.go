// Package guard switches the binaries into test mode when imported by tests,
// so running main() under `go test` never dials Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

// TestModeEnv is the variable app.InTestMode reads.
const TestModeEnv = "PARTSDESK_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(TestModeEnv) == "" {
			_ = os.Setenv(TestModeEnv, "1")
		}
	})
}
