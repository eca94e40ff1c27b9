package validation

import (
	"testing"
	"time"

	"github.com/vnykmshr/gopool/pkg/common/errors"
)

// asValidation fails the test unless err is a *errors.ValidationError.
func asValidation(t *testing.T, err error) *errors.ValidationError {
	t.Helper()
	verr, ok := err.(*errors.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	return verr
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		module    string
		field     string
		value     int
		wantError bool
	}{
		{"single worker", "threadpool", "WorkerCount", 1, false},
		{"many workers", "threadpool", "WorkerCount", 64, false},
		{"no workers", "threadpool", "WorkerCount", 0, true},
		{"negative workers", "threadpool", "WorkerCount", -4, true},
		{"config file workers", "config", "pool.workers", 8, false},
		{"config file zero workers", "config", "pool.workers", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive(tt.module, tt.field, tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidatePositive(%d) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err == nil {
				return
			}
			verr := asValidation(t, err)
			if verr.Module != tt.module || verr.Field != tt.field || verr.Value != tt.value {
				t.Errorf("got %s.%s=%v, want %s.%s=%d", verr.Module, verr.Field, verr.Value, tt.module, tt.field, tt.value)
			}
			if verr.Hint != "value must be greater than 0" {
				t.Errorf("Hint = %q", verr.Hint)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"default max tasks", 0, false},
		{"small cap", 2, false},
		{"negative cap", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("scheduler", "MaxTasks", float64(tt.value))
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateNonNegative(%d) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err != nil && asValidation(t, err).Reason != "cannot be negative" {
				t.Errorf("Reason = %q", asValidation(t, err).Reason)
			}
		})
	}
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     time.Duration
		wantError bool
	}{
		{"instant job", "jobs.ping.duration", 0, false},
		{"busy job", "jobs.compact.duration", 250 * time.Millisecond, false},
		{"negative busy time", "jobs.compact.duration", -time.Second, true},
		{"negative tick", "TickInterval", -time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDuration("config", tt.field, tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateDuration(%v) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err != nil && asValidation(t, err).Field != tt.field {
				t.Errorf("Field = %q, want %q", asValidation(t, err).Field, tt.field)
			}
		})
	}
}

func TestValidateOneOf(t *testing.T) {
	levels := []string{"verbose", "debug", "detail", "trace", "info", "warning", "error"}

	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{"lower case", "info", false},
		{"title case", "Warning", false},
		{"upper case", "TRACE", false},
		{"unknown", "loud", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOneOf("logger", "level", tt.value, levels)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateOneOf(%q) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err != nil && asValidation(t, err).Hint != "use one of: verbose, debug, detail, trace, info, warning, error" {
				t.Errorf("Hint = %q", asValidation(t, err).Hint)
			}
		})
	}
}

type submitter interface{ Submit(func()) error }

type stubPool struct{}

func (stubPool) Submit(func()) error { return nil }

func TestValidateNotNil(t *testing.T) {
	var missing submitter
	var typedNil *stubPool

	tests := []struct {
		name      string
		value     interface{}
		wantError bool
	}{
		{"pool given", stubPool{}, false},
		{"pool pointer", &stubPool{}, false},
		{"no pool", missing, true},
		{"untyped nil", nil, true},
		// A typed nil pointer is a non-nil interface value.
		{"typed nil pointer", typedNil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotNil("scheduler", "Pool", tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateNotNil error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateNotEmpty(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     string
		wantError bool
	}{
		{"task id", "id", "nightly-report", false},
		{"blank task id", "id", "", true},
		{"pool name", "pool.name", "io", false},
		{"blank pool name", "pool.name", "", true},
		{"metrics address", "metrics.addr", ":9090", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotEmpty("config", tt.field, tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateNotEmpty(%q) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err != nil && asValidation(t, err).Hint != "provide a non-empty "+tt.field {
				t.Errorf("Hint = %q", asValidation(t, err).Hint)
			}
		})
	}
}

func TestFailuresWrapInvalidConfiguration(t *testing.T) {
	failures := map[string]error{
		"pool.workers":          ValidatePositive("config", "pool.workers", 0),
		"MaxTasks":              ValidateNonNegative("scheduler", "MaxTasks", -1),
		"jobs.compact.duration": ValidateDuration("config", "jobs.compact.duration", -time.Second),
		"level":                 ValidateOneOf("logger", "level", "loud", []string{"info"}),
		"Pool":                  ValidateNotNil("scheduler", "Pool", nil),
		"id":                    ValidateNotEmpty("scheduler", "id", ""),
	}

	for field, err := range failures {
		t.Run(field, func(t *testing.T) {
			if !errors.IsValidationError(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := asValidation(t, err).Unwrap(); got != errors.ErrInvalidConfiguration {
				t.Errorf("Unwrap() = %v, want ErrInvalidConfiguration", got)
			}
			if asValidation(t, err).Field != field {
				t.Errorf("Field = %q, want %q", asValidation(t, err).Field, field)
			}
		})
	}
}
