// Package eventlog records application events in the key-value store without
// blocking the caller.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/events"
)

const defaultTimeout = 5 * time.Second

// Recorder appends events in background goroutines. Failures are logged and
// otherwise dropped.
type Recorder struct {
	repo      events.Repository
	log       logging.Logger
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewRecorder(repo events.Repository, log logging.Logger, retention time.Duration) *Recorder {
	return &Recorder{
		repo:      repo,
		log:       log.With("module", "eventlog"),
		retention: retention,
		timeout:   defaultTimeout,
		now:       time.Now,
	}
}

// Record stores an event of the given type. It returns immediately; the
// write outlives ctx cancellation but not the recorder timeout.
func (r *Recorder) Record(ctx context.Context, eventType, message string) {
	e := events.Event{Type: eventType, Message: message, Timestamp: r.now().UnixMilli()}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if _, err := r.repo.Append(ctx, e, r.retention); err != nil {
			r.log.Warn(ctx, "error recording event", "type", eventType, "error", err)
		}
	}()
}

// Wait blocks until in-flight records are written.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
