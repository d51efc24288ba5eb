package mlog_test

import (
	"testing"

	"github.com/modforge/modforge/pkg/mlog"
	"github.com/rs/zerolog"
)

func TestSetupVerbosityLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{5, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		mlog.Setup(tt.verbosity)
		if zerolog.GlobalLevel() != tt.want {
			t.Errorf("verbosity %d: level = %v, want %v", tt.verbosity, zerolog.GlobalLevel(), tt.want)
		}
	}
}

func TestGetInheritsGlobalLevel(t *testing.T) {
	mlog.Setup(0)
	logger := mlog.Get("ledger")
	if logger.GetLevel() != zerolog.GlobalLevel() {
		t.Errorf("component logger should inherit global level")
	}
}

func TestOperationTimer(t *testing.T) {
	mlog.Setup(2)
	logger := mlog.Get("test")
	done := mlog.OperationTimer(logger, "unit-test-op")
	done()
}
