package progress

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogBarProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := NewLogBarProgressTracker(logger)
	p.SetMessage("replaying")
	p.SetTotal(100)
	for i := 0; i <= 100; i++ {
		p.SetDone(i)
	}
	p.SetError(errors.New("boom"))
	p.MarkFinished()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// one record per tenth (0..10), one error, one finished.
	assert.Len(t, lines, 13)
	assert.Contains(t, lines[0], "done=0")
	assert.Contains(t, lines[10], "done=100")
	assert.Contains(t, lines[11], "error=boom")
	assert.Contains(t, lines[12], "replaying finished")
}

func TestLogBarProgressTracker_NoTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogBarProgressTracker(slog.New(slog.NewTextHandler(&buf, nil)))
	p.SetDone(5)
	assert.Empty(t, buf.String())
}
