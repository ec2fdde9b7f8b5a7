package progress

import (
	"log/slog"
	"sync"
)

// BarProgressTracker receives updates from long running work with a known
// number of steps.
type BarProgressTracker interface {
	SetMessage(msg string)
	SetTotal(total int64)
	SetDone(n int)
	SetError(err error)
	MarkFinished()
}

type NoopBarProgressTracker struct{}

var _ BarProgressTracker = NoopBarProgressTracker{}

func (n NoopBarProgressTracker) SetMessage(msg string) {}
func (n NoopBarProgressTracker) SetTotal(total int64)  {}
func (n NoopBarProgressTracker) SetDone(n2 int)        {}
func (n NoopBarProgressTracker) SetError(err error)    {}
func (n NoopBarProgressTracker) MarkFinished()         {}

// LogBarProgressTracker reports progress through a slog.Logger, emitting a
// record each time another tenth of the total completes.
type LogBarProgressTracker struct {
	Logger *slog.Logger

	mu       sync.Mutex
	msg      string
	total    int64
	lastStep int64
}

var _ BarProgressTracker = (*LogBarProgressTracker)(nil)

func NewLogBarProgressTracker(logger *slog.Logger) *LogBarProgressTracker {
	return &LogBarProgressTracker{Logger: logger, lastStep: -1}
}

func (l *LogBarProgressTracker) SetMessage(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msg = msg
}

func (l *LogBarProgressTracker) SetTotal(total int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	l.lastStep = -1
}

func (l *LogBarProgressTracker) SetDone(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total <= 0 {
		return
	}
	step := int64(n) * 10 / l.total
	if step == l.lastStep {
		return
	}
	l.lastStep = step
	l.Logger.Info(l.msg, "done", n, "total", l.total)
}

func (l *LogBarProgressTracker) SetError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Logger.Error(l.msg, "error", err)
}

func (l *LogBarProgressTracker) MarkFinished() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Logger.Debug(l.msg+" finished", "total", l.total)
}
