package pipeline

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingProgress captures callback invocations.
type recordingProgress struct {
	started   int
	progress  []int
	errors    int
	completed bool
}

func (r *recordingProgress) OnStart(total int)              { r.started = total }
func (r *recordingProgress) OnProgress(current, total int)  { r.progress = append(r.progress, current) }
func (r *recordingProgress) OnComplete()                    { r.completed = true }
func (r *recordingProgress) OnError(current int, err error) { r.errors++ }

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "scan: ").WithWidth(10).WithUpdateInterval(0)

	cb.OnStart(4)
	assert.Contains(t, buf.String(), "scan: 0/4 pages")

	buf.Reset()
	cb.OnProgress(2, 4)
	assert.Contains(t, buf.String(), "[#####.....] 2/4 (50.0%)")

	buf.Reset()
	cb.OnError(3, assert.AnError)
	assert.Contains(t, buf.String(), "item 3 failed")

	buf.Reset()
	cb.OnComplete()
	assert.Contains(t, buf.String(), "scan: done in")
}

func TestConsoleProgressCallback_Throttles(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "").WithUpdateInterval(time.Hour)
	cb.OnStart(10)
	cb.OnProgress(1, 10)
	buf.Reset()
	cb.OnProgress(2, 10)
	assert.Empty(t, buf.String())

	// the final update is always drawn
	cb.OnProgress(10, 10)
	assert.Contains(t, buf.String(), "10/10")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cb := NewLogProgressCallback(logger, slog.LevelInfo).WithInterval(2)

	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnProgress(2, 3)
	cb.OnProgress(3, 3)
	cb.OnError(2, assert.AnError)
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, `"msg":"Batch started"`)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"msg":"Batch progress"`)))
	assert.Contains(t, out, `"msg":"Batch item failed"`)
	assert.Contains(t, out, `"msg":"Batch completed"`)
}

func TestMultiAndFuncProgressCallback(t *testing.T) {
	rec := &recordingProgress{}
	var last int
	cb := MultiProgressCallback{rec, FuncProgressCallback(func(c, _ int) { last = c }), NoOpProgressCallback{}}

	cb.OnStart(2)
	cb.OnProgress(1, 2)
	cb.OnError(1, assert.AnError)
	cb.OnProgress(2, 2)
	cb.OnComplete()

	assert.Equal(t, 2, rec.started)
	assert.Equal(t, []int{1, 2}, rec.progress)
	assert.Equal(t, 1, rec.errors)
	assert.True(t, rec.completed)
	assert.Equal(t, 2, last)
}
