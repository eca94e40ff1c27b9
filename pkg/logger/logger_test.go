package logger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnykmshr/gopool/internal/testutil"
	gperrors "github.com/vnykmshr/gopool/pkg/common/errors"
)

func newTestLogger(level Level) (*Logger, *testutil.MockClock, *testutil.MockWriter) {
	clock := testutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	out := testutil.NewMockWriter()
	return New(out, level, WithClock(clock)), clock, out
}

func TestLineFormat(t *testing.T) {
	log, clock, out := newTestLogger(LevelInfo)

	clock.Advance(1234500 * time.Microsecond)
	log.Infof("hello %d", 7)

	lines := out.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "[  1234.500] [Info] hello 7", lines[0])
}

func TestElapsedPrefixGrows(t *testing.T) {
	log, clock, out := newTestLogger(LevelVerbose)

	log.Verbosef("first")
	clock.Advance(2 * time.Millisecond)
	log.Errorf("second")

	lines := out.Lines()
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "[     0.000] [Verbose]"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[     2.000] [Error]"), lines[1])
}

func TestThreshold(t *testing.T) {
	log, _, out := newTestLogger(LevelInfo)

	log.Verbosef("v")
	log.Debugf("d")
	log.Detailf("de")
	log.Tracef("t")
	assert.Equal(t, 0, out.Len(), "entries below Info must be suppressed")

	log.Infof("i")
	log.Warningf("w")
	log.Errorf("e")
	assert.Len(t, out.Lines(), 3)

	log.SetLevel(LevelError)
	assert.Equal(t, LevelError, log.Level())
	assert.False(t, log.Enabled(LevelWarning))
	assert.True(t, log.Enabled(LevelError))

	out.Reset()
	log.Warningf("hidden")
	log.Errorf("shown")
	lines := out.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[Error] shown")
}

func TestEveryLevelTag(t *testing.T) {
	log, _, out := newTestLogger(LevelVerbose)

	for _, l := range Levels() {
		log.Logf(l, "at %s", l)
	}

	lines := out.Lines()
	require.Len(t, lines, len(Levels()))
	for i, l := range Levels() {
		assert.Contains(t, lines[i], l.Tag()+" at "+l.String())
	}
}

func TestArgumentsNotFormattedBelowThreshold(t *testing.T) {
	log, _, _ := newTestLogger(LevelWarning)

	formatted := false
	log.Debugf("%v", stringerFunc(func() string {
		formatted = true
		return "x"
	}))
	assert.False(t, formatted)
}

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }

func TestNamedAndFields(t *testing.T) {
	log, _, out := newTestLogger(LevelInfo)

	log.Named("threadpool").Log(LevelInfo, "joined", zap.Int("workers", 4))

	lines := out.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[Info] threadpool joined")
	assert.Contains(t, lines[0], `"workers": 4`)
}

func TestChildSharesThreshold(t *testing.T) {
	log, _, out := newTestLogger(LevelInfo)
	child := log.With(zap.String("pool", "io"))

	log.SetLevel(LevelError)
	child.Infof("hidden")
	assert.Equal(t, 0, out.Len())
}

func TestNop(t *testing.T) {
	log := Nop()
	for _, l := range Levels() {
		assert.False(t, log.Enabled(l))
	}
	log.Errorf("nothing happens")
	assert.NoError(t, log.Sync())
}

func TestWriteFailureIsReported(t *testing.T) {
	clock := testutil.NewMockClock(time.Time{})
	out := testutil.NewMockWriter()
	errOut := testutil.NewMockWriter()
	log := New(out, LevelInfo, WithClock(clock), WithErrorOutput(errOut))

	out.SetAlwaysError(errors.New("disk full"))
	assert.NotPanics(t, func() { log.Errorf("lost") })
	assert.Equal(t, 0, out.Len())
	assert.Contains(t, errOut.String(), "write error: disk full")

	out.Reset()
	log.Infof("kept")
	require.Len(t, out.Lines(), 1)
	assert.Contains(t, out.Lines()[0], "[Info] kept")
}

func TestConcurrentLogging(t *testing.T) {
	log, _, out := newTestLogger(LevelInfo)

	const goroutines, perGoroutine = 8, 50
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				log.Infof("g%d-%d", g, i)
			}
		}(g)
	}
	wg.Wait()

	assert.Len(t, out.Lines(), goroutines*perGoroutine)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"verbose", LevelVerbose},
		{"DEBUG", LevelDebug},
		{"detail", LevelDetail},
		{"Trace", LevelTrace},
		{" info ", LevelInfo},
		{"warning", LevelWarning},
		{"warn", LevelWarning},
		{"error", LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
	assert.ErrorIs(t, err, gperrors.ErrInvalidConfiguration)
}

func TestLevelText(t *testing.T) {
	var l Level
	require.NoError(t, l.UnmarshalText([]byte("detail")))
	assert.Equal(t, LevelDetail, l)

	text, err := LevelWarning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(text))

	assert.Error(t, l.UnmarshalText([]byte("nope")))
	assert.Equal(t, "Level(9)", Level(9).String())
}

func TestDefaultLogger(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	out := testutil.NewMockWriter()
	SetDefault(New(out, LevelInfo))
	SetDefault(nil)

	Debugf("hidden")
	Infof("visible %s", "line")
	SetLevel(LevelVerbose)
	Verbosef("now visible")

	lines := out.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[Info] visible line")
	assert.Contains(t, lines[1], "[Verbose] now visible")
}

func ExampleLogger() {
	log := New(exampleWriter{}, LevelDetail)
	log.Debugf("not shown")
	log.Detailf("shown")
	fmt.Println(log.Level())
	// Output: Detail
}

type exampleWriter struct{}

func (exampleWriter) Write(p []byte) (int, error) { return len(p), nil }
