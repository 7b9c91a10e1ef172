package logsvc

import (
	"testing"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// NewTestLogger returns a RollbarLogger that never reports and writes to the test log.
func NewTestLogger(t testing.TB) *RollbarLogger {
	rollbar.SetEnabled(false)
	return &RollbarLogger{zl: zaptest.NewLogger(t).Sugar()}
}

// NewNopLogger returns a RollbarLogger that discards everything, for use outside of a test (e.g. TestMain).
func NewNopLogger() *RollbarLogger {
	rollbar.SetEnabled(false)
	return &RollbarLogger{zl: zap.NewNop().Sugar()}
}
