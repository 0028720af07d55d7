// Package audit is the write path for the audit trail. Entries are persisted
// by a background worker so a slow or briefly unavailable store never fails
// the action that produced the entry. That trade-off is deliberate: audit
// completeness is best-effort relative to primary operation availability, and
// persistent failures are surfaced as WARN logs rather than silently dropped.
package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"audittrail-backend/internal/models"
)

// Sink persists audit entries. Satisfied by both storage implementations.
type Sink interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}

const (
	defaultBuffer = 256
	maxAttempts   = 3
	baseBackoff   = 100 * time.Millisecond
	insertTimeout = 5 * time.Second
)

// Recorder appends audit log entries asynchronously with bounded retry.
type Recorder struct {
	sink    Sink
	entries chan models.AuditLog
	wg      sync.WaitGroup

	// test hook; defaults to time.Sleep
	sleep func(time.Duration)
}

func NewRecorder(sink Sink) *Recorder {
	return &Recorder{
		sink:    sink,
		entries: make(chan models.AuditLog, defaultBuffer),
		sleep:   time.Sleep,
	}
}

// Start launches the worker goroutine. Call Stop to drain and shut down.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for entry := range r.entries {
			r.persist(entry)
		}
	}()
}

// Stop closes the intake and waits for buffered entries to be written.
func (r *Recorder) Stop() {
	close(r.entries)
	r.wg.Wait()
}

// Record queues an entry for persistence. It never blocks the caller and
// never returns an error: when the buffer is full the entry is dropped with a
// warning, and the triggering action proceeds regardless.
func (r *Recorder) Record(entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	select {
	case r.entries <- entry:
	default:
		log.Printf("WARN audit: buffer full, dropping entry action=%s account=%s", entry.Action, entry.AccountID)
	}
}

func (r *Recorder) persist(entry models.AuditLog) {
	backoff := baseBackoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		err := r.sink.InsertAuditLog(ctx, &entry)
		cancel()
		if err == nil {
			return
		}
		if attempt == maxAttempts {
			log.Printf("WARN audit: dropping entry after %d attempts action=%s account=%s: %v",
				attempt, entry.Action, entry.AccountID, err)
			return
		}
		r.sleep(backoff)
		backoff *= 4
	}
}
