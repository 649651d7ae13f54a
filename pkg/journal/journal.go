// Package journal keeps a persistent record of headers and finished
// transmissions.
package journal

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/database"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

const (
	// DefaultQueueSize is the number of records held while the writer is busy
	DefaultQueueSize = 256
	// DefaultMinDuration drops kerchunks and other very short transmissions
	DefaultMinDuration = 500 * time.Millisecond
)

// Options tunes a Journal
type Options struct {
	QueueSize   int
	MinDuration time.Duration
	// Retention removes records older than this, zero keeps everything
	Retention time.Duration
}

type record struct {
	header *database.HeaderLog
	tx     *database.Transmission
}

// Journal writes gateway activity to the database. The Log methods never
// block; records are written by Run on its own goroutine.
type Journal struct {
	txRepo     *database.TransmissionRepository
	headerRepo *database.HeaderRepository
	opts       Options
	queue      chan record
	logger     *logger.Logger

	written atomic.Int64
	dropped atomic.Int64
	skipped atomic.Int64
}

// New creates a journal writing to db
func New(db *database.DB, opts Options, log *logger.Logger) *Journal {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MinDuration < 0 {
		opts.MinDuration = 0
	}
	return &Journal{
		txRepo:     database.NewTransmissionRepository(db.GetDB()),
		headerRepo: database.NewHeaderRepository(db.GetDB()),
		opts:       opts,
		queue:      make(chan record, opts.QueueSize),
		logger:     log.WithComponent("journal"),
	}
}

// LogHeader records a header seen from source
func (j *Journal) LogHeader(source string, h *dstar.Header) {
	j.enqueue(record{header: &database.HeaderLog{
		Source:    source,
		MyCall1:   h.MyCall1,
		MyCall2:   h.MyCall2,
		YourCall:  h.YourCall,
		RptCall1:  h.RptCall1,
		RptCall2:  h.RptCall2,
		Flag1:     h.Flag1,
		Flag2:     h.Flag2,
		Flag3:     h.Flag3,
		CreatedAt: time.Now(),
	}})
}

// LogTransmission records a finished RF transmission
func (j *Journal) LogTransmission(rec gateway.TransmissionRecord) {
	if rec.Duration < j.opts.MinDuration {
		j.skipped.Add(1)
		j.logger.Debug("Skipped saving very short transmission",
			logger.String("user", rec.MyCall1),
			logger.Duration("duration", rec.Duration))
		return
	}

	end := time.Now()
	j.enqueue(record{tx: &database.Transmission{
		Repeater:  rec.Repeater,
		MyCall1:   rec.MyCall1,
		MyCall2:   rec.MyCall2,
		YourCall:  rec.YourCall,
		Route:     rec.Route.String(),
		Link:      rec.Link,
		Frames:    rec.Frames,
		Silence:   rec.Silence,
		Errors:    rec.Errors,
		Text:      strings.TrimSpace(rec.Text),
		Duration:  rec.Duration.Seconds(),
		StartTime: end.Add(-rec.Duration),
		EndTime:   end,
	}})
}

func (j *Journal) enqueue(r record) {
	select {
	case j.queue <- r:
	default:
		j.dropped.Add(1)
		j.logger.Warn("Journal queue full, dropping record")
	}
}

// Run writes queued records until ctx is cancelled, then flushes what is
// left.
func (j *Journal) Run(ctx context.Context) {
	var prune <-chan time.Time
	if j.opts.Retention > 0 {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		prune = ticker.C
		j.Prune()
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case r := <-j.queue:
					j.write(r)
				default:
					return
				}
			}
		case r := <-j.queue:
			j.write(r)
		case <-prune:
			j.Prune()
		}
	}
}

func (j *Journal) write(r record) {
	var err error
	switch {
	case r.header != nil:
		err = j.headerRepo.Create(r.header)
	case r.tx != nil:
		err = j.txRepo.Create(r.tx)
	}

	if err != nil {
		j.logger.Error("Failed to save journal record", logger.Error(err))
		return
	}
	j.written.Add(1)
}

// Prune removes records older than the retention period
func (j *Journal) Prune() {
	if j.opts.Retention <= 0 {
		return
	}
	before := time.Now().Add(-j.opts.Retention)

	txs, err := j.txRepo.DeleteOlderThan(before)
	if err != nil {
		j.logger.Error("Failed to prune transmissions", logger.Error(err))
	}
	headers, err := j.headerRepo.DeleteOlderThan(before)
	if err != nil {
		j.logger.Error("Failed to prune headers", logger.Error(err))
	}
	if txs > 0 || headers > 0 {
		j.logger.Info("Pruned journal", logger.Int("transmissions", int(txs)), logger.Int("headers", int(headers)))
	}
}

// Counts returns the records written, dropped on a full queue and skipped
// as too short
func (j *Journal) Counts() (written, dropped, skipped int64) {
	return j.written.Load(), j.dropped.Load(), j.skipped.Load()
}
