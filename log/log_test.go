package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	Infof("added %d members to group %x", sampleInt, sampleBytes)
	Debugw("submitting transaction", "digest", "abc123", "function", "add_member")
	Errorf("cannot store receipt: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelAndErrorOutput(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() {
		logTestWriter = io.Discard
		Init(LogLevelError, "stderr", nil)
	})

	var out, errOut bytes.Buffer
	logTestWriter = &out
	Init("warn", logTestWriterName, &errOut)
	c.Assert(Level(), qt.Equals, LogLevelWarn)

	Infof("hidden %d", 1)
	Warnw("shown", "key", "value")
	Errorw(errSample, "failed")

	c.Assert(out.String(), qt.Not(qt.Contains), "hidden")
	c.Assert(out.String(), qt.Contains, `"key":"value"`)
	c.Assert(out.String(), qt.Contains, `"error":"some error"`)
	c.Assert(errOut.String(), qt.Not(qt.Contains), "shown")
	c.Assert(errOut.String(), qt.Contains, "failed")

	Init("nonsense", logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelInfo)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
