// Package journal persists domain events to PostgreSQL.
//
// The Writer listens on an events.Bus for schedule notifications, pipeline
// updates and system alerts, queues them as rows and inserts them in batches.
// Insert failures are logged and counted; they never reach the realtime
// connection.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/realtime-client/internal/buffer"
	"github.com/rickgao/realtime-client/internal/events"
	"github.com/rickgao/realtime-client/internal/metrics"
)

// DB is the subset of *pgxpool.Pool the writer needs.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config configures a Writer.
type Config struct {
	Table         string        // Destination table
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before flushing
	BufferSize    int           // Queued rows kept before evicting the oldest
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "realtime_events",
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Row is one journaled event.
type Row struct {
	ID         uuid.UUID
	Kind       string
	PostID     string // Empty for events without a post
	Payload    []byte // JSON
	ReceivedAt time.Time
}

// Stats tracks writer activity.
type Stats struct {
	Inserts   int64 // Rows written
	Conflicts int64 // Rows skipped as duplicates
	Errors    int64 // Failed batches
	Flushes   int64 // Successful batches
	Dropped   int64 // Rows evicted from a full queue
	Pending   int   // Rows queued or batched
}

// Writer batches events into the journal table.
type Writer struct {
	cfg     Config
	logger  *slog.Logger
	db      DB
	metrics *metrics.Metrics
	table   string // Sanitized identifier

	input    *buffer.GrowableBuffer[Row]
	bus      *events.Bus
	listener *events.Listener

	batch   []Row
	batchMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a stopped Writer.
func NewWriter(cfg Config, db DB, logger *slog.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = defaults.Table
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}

	return &Writer{
		cfg:     cfg,
		logger:  logger.With("component", "journal"),
		db:      db,
		metrics: m,
		table:   pgx.Identifier{cfg.Table}.Sanitize(),
		input:   buffer.NewBounded[Row](64, cfg.BufferSize),
		batch:   make([]Row, 0, cfg.BatchSize),
	}
}

// EnsureSchema creates the journal table if it does not exist.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	_, err := w.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          uuid PRIMARY KEY,
			kind        text        NOT NULL,
			post_id     text,
			payload     jsonb       NOT NULL,
			received_at timestamptz NOT NULL
		)`, w.table))
	if err != nil {
		return fmt.Errorf("create %s: %w", w.cfg.Table, err)
	}
	return nil
}

// Attach starts journaling domain events published on bus.
func (w *Writer) Attach(bus *events.Bus) {
	w.bus = bus
	w.listener = events.Listen(w.Record)
	bus.On(events.KindScheduleNotification, w.listener)
	bus.On(events.KindPipelineUpdate, w.listener)
	bus.On(events.KindSystemAlert, w.listener)
}

// Record queues ev. Events without a journal mapping are ignored.
func (w *Writer) Record(ev events.Event) {
	row, ok := toRow(ev, time.Now())
	if !ok {
		return
	}
	if !w.input.Send(row) {
		w.logger.Debug("journal stopped, dropping event", "kind", row.Kind)
	}
}

// Start begins consuming rows and flushing batches.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"table", w.cfg.Table,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop detaches from the bus, drains queued rows and flushes them using ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.bus != nil {
		w.bus.Off(events.KindScheduleNotification, w.listener)
		w.bus.Off(events.KindPipelineUpdate, w.listener)
		w.bus.Off(events.KindSystemAlert, w.listener)
	}

	// Closing the input lets the consumer drain what is left and exit.
	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Rows the consumer never reached (not started, or timed out).
	if rest := w.input.DrainTo(0); len(rest) > 0 {
		w.batchMu.Lock()
		w.batch = append(w.batch, rest...)
		w.batchMu.Unlock()
	}

	// Final flush
	w.flush(ctx)

	w.logger.Info("journal writer stopped", "inserts", w.Stats().Inserts)
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	st := w.stats
	st.Dropped = w.input.Stats().Dropped
	st.Pending = len(w.batch) + w.input.Len()
	return st
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		row, ok := w.input.Receive()
		if !ok {
			return
		}
		w.handleRow(row)
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *Writer) handleRow(row Row) {
	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		// Size-triggered flushes outlive cancellation so Stop does not
		// discard a full batch mid-drain.
		w.flush(context.WithoutCancel(w.ctx))
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	conflicts, err := w.batchInsert(ctx, batch)
	w.metrics.ObserveJournalFlush(len(batch)-conflicts, time.Since(start), err)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.stats.Errors++
		return
	}

	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++

	w.logger.Debug("flushed events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []Row) (conflicts int, err error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, kind, post_id, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, w.table)

	batch := &pgx.Batch{}
	for _, r := range rows {
		r := r
		var postID *string
		if r.PostID != "" {
			postID = &r.PostID
		}
		batch.Queue(query, r.ID, r.Kind, postID, r.Payload, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

// toRow maps a domain event to a journal row. The payload is the frame data
// as received when there is one, so fields the event type does not model are
// kept.
func toRow(ev events.Event, now time.Time) (Row, bool) {
	var (
		postID  string
		raw     json.RawMessage
		payload any
	)
	switch e := ev.(type) {
	case events.ScheduleNotification:
		postID, raw, payload = string(e.PostID), e.Raw, e.ScheduleNotification
	case events.PipelineUpdate:
		postID, raw, payload = string(e.PostID), e.Raw, e.PipelineUpdate
	case events.SystemAlert:
		raw, payload = e.Raw, e.SystemAlert
	default:
		return Row{}, false
	}

	data := []byte(raw)
	if !json.Valid(data) || string(data) == "null" {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return Row{}, false
		}
	}

	return Row{
		ID:         uuid.New(),
		Kind:       string(ev.Kind()),
		PostID:     postID,
		Payload:    data,
		ReceivedAt: now.UTC(),
	}, true
}
