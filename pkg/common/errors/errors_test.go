package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

// poolClosed mirrors how the thread pool wraps ErrClosed.
var poolClosed = fmt.Errorf("threadpool: pool is closed: %w", ErrClosed)

func TestSentinels(t *testing.T) {
	if got := ErrClosed.Error(); got != "resource is closed" {
		t.Errorf("ErrClosed = %q", got)
	}
	if got := ErrInvalidConfiguration.Error(); got != "invalid configuration" {
		t.Errorf("ErrInvalidConfiguration = %q", got)
	}
	if errors.Is(ErrClosed, ErrInvalidConfiguration) {
		t.Error("sentinels must be distinct")
	}
}

func TestValidationErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "pool size from config file",
			err: NewValidationError("config", "pool.workers", 0, "must be positive").
				WithHint("value must be greater than 0"),
			want: "config: invalid pool.workers=0 (must be positive) - value must be greater than 0",
		},
		{
			name: "worker count passed to the pool",
			err:  NewValidationError("threadpool", "WorkerCount", -3, "must be positive"),
			want: "threadpool: invalid WorkerCount=-3 (must be positive)",
		},
		{
			name: "repeating job interval",
			err:  NewValidationError("config", "jobs.heartbeat.every", "-5s", "must be positive"),
			want: "config: invalid jobs.heartbeat.every=-5s (must be positive)",
		},
		{
			name: "job busy time",
			err:  NewValidationError("config", "jobs.compact.duration", -time.Second, "cannot be negative"),
			want: "config: invalid jobs.compact.duration=-1s (cannot be negative)",
		},
		{
			name: "empty task id",
			err:  NewValidationError("scheduler", "id", "", "cannot be empty"),
			want: "scheduler: invalid id= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrInvalidConfiguration) {
				t.Error("ValidationError should wrap ErrInvalidConfiguration")
			}
		})
	}
}

func TestValidationErrorFromCronParser(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	for _, expr := range []string{"61 * * * * *", "* * * * *", "@fortnightly"} {
		t.Run(expr, func(t *testing.T) {
			_, perr := parser.Parse(expr)
			if perr == nil {
				t.Fatalf("expected %q to be rejected", expr)
			}

			err := NewValidationError("config", "jobs.rotate.cron", expr, perr.Error())
			msg := err.Error()
			for _, part := range []string{"jobs.rotate.cron", expr, perr.Error()} {
				if !strings.Contains(msg, part) {
					t.Errorf("message %q should contain %q", msg, part)
				}
			}
			if !IsValidationError(err) {
				t.Error("expected a ValidationError")
			}
		})
	}
}

func TestWithHintChains(t *testing.T) {
	err := NewValidationError("logger", "level", "loud", "unsupported value")
	if err.Hint != "" {
		t.Fatalf("Hint = %q, want empty", err.Hint)
	}

	if got := err.WithHint("use one of: verbose, info"); got != err {
		t.Error("WithHint should return the same instance")
	}
	if err.Hint != "use one of: verbose, info" {
		t.Errorf("Hint = %q", err.Hint)
	}
}

func TestOperationErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "scheduler submit to a joined pool",
			err:  NewOperationError("scheduler", "submit", poolClosed).WithContext(`task "nightly"`),
			want: `scheduler.submit failed: threadpool: pool is closed: resource is closed (task "nightly")`,
		},
		{
			name: "metrics listener",
			err:  NewOperationError("gopool", "serveMetrics", errors.New("address already in use")),
			want: "gopool.serveMetrics failed: address already in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.err.Cause) {
				t.Error("OperationError should wrap its cause")
			}
		})
	}
}

func TestWithContextChains(t *testing.T) {
	err := NewOperationError("gopool", "serveMetrics", errors.New("listen failed"))
	if got := err.WithContext("addr :9090"); got != err {
		t.Error("WithContext should return the same instance")
	}
	if err.Context != "addr :9090" {
		t.Errorf("Context = %q", err.Context)
	}
}

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", ErrClosed, true},
		{"pool closed", poolClosed, true},
		{"failed scheduler submit", NewOperationError("scheduler", "submit", poolClosed), true},
		{"nil job", errors.New("threadpool: job cannot be nil"), false},
		{"bad worker count", NewValidationError("threadpool", "WorkerCount", 0, "must be positive"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClosed(tt.err); got != tt.want {
				t.Errorf("IsClosed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	verr := NewValidationError("config", "pool.workers", -1, "must be positive")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct", verr, true},
		{"wrapped by LoadFile", fmt.Errorf("config: load gopool.yaml: %w", verr), true},
		{"inside an operation error", NewOperationError("gopool", "run", verr), true},
		{"pool closed", poolClosed, false},
		{"sentinel only", ErrInvalidConfiguration, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}
