package merr_test

import (
	stderrors "errors"
	"testing"

	"github.com/modforge/modforge/pkg/merr"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    merr.Code
		message string
		want    string
	}{
		{"unknown_mod", merr.ErrUnknownMod, "mod not found", "[UNKNOWN_MOD] mod not found"},
		{"invariant", merr.ErrInvariantViolation, "stack empty", "[INVARIANT_VIOLATION] stack empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := merr.New(tt.code, tt.message)
			if err.Code != tt.code {
				t.Errorf("Code = %v, want %v", err.Code, tt.code)
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
			if err.Details == nil {
				t.Error("Details should be initialized")
			}
		})
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if merr.Wrap(nil, merr.ErrInternal, "x") != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}
	if merr.Wrapf(nil, merr.ErrInternal, "x %d", 1) != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
}

func TestUnwrapAndIs(t *testing.T) {
	cause := stderrors.New("disk full")
	err := merr.Wrap(cause, merr.ErrLedgerIO, "failed to save ledger")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !merr.Is(err, merr.ErrLedgerIO) {
		t.Error("merr.Is should match on code")
	}
	if merr.Is(err, merr.ErrCancelled) {
		t.Error("merr.Is should not match a different code")
	}
}

func TestCodeOf(t *testing.T) {
	if got := merr.CodeOf(stderrors.New("plain")); got != merr.ErrUnknown {
		t.Errorf("CodeOf(plain error) = %v, want ErrUnknown", got)
	}
	err := merr.New(merr.ErrDuplicateMod, "already active")
	if got := merr.CodeOf(err); got != merr.ErrDuplicateMod {
		t.Errorf("CodeOf = %v, want ErrDuplicateMod", got)
	}
}

func TestWithDetail(t *testing.T) {
	err := merr.New(merr.ErrStagingCorrupt, "missing source").WithDetail("path", "Data/x.dds")
	if err.Details["path"] != "Data/x.dds" {
		t.Errorf("WithDetail did not attach detail: %#v", err.Details)
	}
}
