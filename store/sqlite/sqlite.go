/*
Package sqlite provides a SQLite-backed implementation of the session store.

PURPOSE:
  Implements engine.SessionStore using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMIC REPLACE:
  Hydration semantics require a full reload to atomically replace the
  per-worker sets rather than merge, so stale entries can't leak.
  Replace() runs a single SQL transaction: delete every row for the
  worker, then insert the snapshot. Either the whole new snapshot is
  visible or the old one still is.

KEY TABLES:
  shift_marks:         applied/rejected/saved shift IDs per worker
  slot_marks:          applied/rejected slot IDs per worker
  counter_offers:      one row per pending counter-offer shift
  counter_offer_slots: per-slot amendments of a counter-offer

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/session.go: SessionStore interface and snapshot type
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/engine"
)

// Store implements engine.SessionStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.SessionStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Shift-level marks: applied / rejected / saved
	CREATE TABLE IF NOT EXISTS shift_marks (
		worker_id TEXT NOT NULL,
		shift_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('applied', 'rejected', 'saved')),
		PRIMARY KEY (worker_id, shift_id, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_shift_marks_worker
		ON shift_marks(worker_id, kind);

	-- Slot-level marks: applied / rejected
	CREATE TABLE IF NOT EXISTS slot_marks (
		worker_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('applied', 'rejected')),
		PRIMARY KEY (worker_id, slot_id, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_slot_marks_worker
		ON slot_marks(worker_id, kind);

	-- Pending counter-offers, one row per shift
	CREATE TABLE IF NOT EXISTS counter_offers (
		worker_id TEXT NOT NULL,
		shift_id TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (worker_id, shift_id)
	);

	-- Per-slot amendments of a counter-offer
	CREATE TABLE IF NOT EXISTS counter_offer_slots (
		worker_id TEXT NOT NULL,
		shift_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		rate TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		PRIMARY KEY (worker_id, shift_id, slot_id)
	);

	CREATE INDEX IF NOT EXISTS idx_counter_offer_slots_worker
		ON counter_offer_slots(worker_id, shift_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION STORE IMPLEMENTATION
// =============================================================================

// Load returns the stored snapshot for a worker, or an empty snapshot
// for a worker with no rows.
func (s *Store) Load(ctx context.Context, workerID engine.WorkerID) (engine.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := engine.SessionSnapshot{CounterOffers: make(map[engine.ShiftID]engine.CounterOfferTrack)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT shift_id, kind FROM shift_marks WHERE worker_id = ?`, string(workerID))
	if err != nil {
		return snap, fmt.Errorf("load shift marks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var shiftID, kind string
		if err := rows.Scan(&shiftID, &kind); err != nil {
			return snap, err
		}
		switch kind {
		case "applied":
			snap.AppliedShifts = append(snap.AppliedShifts, engine.ShiftID(shiftID))
		case "rejected":
			snap.RejectedShifts = append(snap.RejectedShifts, engine.ShiftID(shiftID))
		case "saved":
			snap.SavedShifts = append(snap.SavedShifts, engine.ShiftID(shiftID))
		}
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	slotRows, err := s.db.QueryContext(ctx,
		`SELECT slot_id, kind FROM slot_marks WHERE worker_id = ?`, string(workerID))
	if err != nil {
		return snap, fmt.Errorf("load slot marks: %w", err)
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var slotID, kind string
		if err := slotRows.Scan(&slotID, &kind); err != nil {
			return snap, err
		}
		switch kind {
		case "applied":
			snap.AppliedSlots = append(snap.AppliedSlots, engine.SlotID(slotID))
		case "rejected":
			snap.RejectedSlots = append(snap.RejectedSlots, engine.SlotID(slotID))
		}
	}
	if err := slotRows.Err(); err != nil {
		return snap, err
	}

	if err := s.loadCounterOffers(ctx, workerID, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Store) loadCounterOffers(ctx context.Context, workerID engine.WorkerID, snap *engine.SessionSnapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT shift_id, summary FROM counter_offers WHERE worker_id = ?`, string(workerID))
	if err != nil {
		return fmt.Errorf("load counter offers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var shiftID, summary string
		if err := rows.Scan(&shiftID, &summary); err != nil {
			return err
		}
		snap.CounterOffers[engine.ShiftID(shiftID)] = engine.CounterOfferTrack{
			Slots:   make(map[engine.SlotID]engine.CounterOfferSlot),
			Summary: summary,
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	slotRows, err := s.db.QueryContext(ctx,
		`SELECT shift_id, slot_id, rate, start_time, end_time
		 FROM counter_offer_slots WHERE worker_id = ?`, string(workerID))
	if err != nil {
		return fmt.Errorf("load counter offer slots: %w", err)
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var shiftID, slotID, rate string
		var start, end sql.NullString
		if err := slotRows.Scan(&shiftID, &slotID, &rate, &start, &end); err != nil {
			return err
		}
		track, ok := snap.CounterOffers[engine.ShiftID(shiftID)]
		if !ok {
			// Orphan slot row; skip rather than fabricate a track.
			continue
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return fmt.Errorf("corrupt rate %q for slot %s: %w", rate, slotID, err)
		}
		offer := engine.CounterOfferSlot{Rate: d}
		if start.Valid {
			c, err := engine.ParseClockTime(start.String)
			if err != nil {
				return err
			}
			offer.Start = &c
		}
		if end.Valid {
			c, err := engine.ParseClockTime(end.String)
			if err != nil {
				return err
			}
			offer.End = &c
		}
		track.Slots[engine.SlotID(slotID)] = offer
	}
	return slotRows.Err()
}

// Replace atomically overwrites the worker's stored snapshot inside a
// single SQL transaction.
func (s *Store) Replace(ctx context.Context, workerID engine.WorkerID, snap engine.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	worker := string(workerID)
	for _, table := range []string{"shift_marks", "slot_marks", "counter_offers", "counter_offer_slots"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE worker_id = ?", worker); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertShift := func(ids []engine.ShiftID, kind string) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO shift_marks (worker_id, shift_id, kind) VALUES (?, ?, ?)`,
				worker, string(id), kind); err != nil {
				return fmt.Errorf("insert %s shift mark: %w", kind, err)
			}
		}
		return nil
	}
	insertSlot := func(ids []engine.SlotID, kind string) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO slot_marks (worker_id, slot_id, kind) VALUES (?, ?, ?)`,
				worker, string(id), kind); err != nil {
				return fmt.Errorf("insert %s slot mark: %w", kind, err)
			}
		}
		return nil
	}

	if err := insertShift(snap.AppliedShifts, "applied"); err != nil {
		return err
	}
	if err := insertShift(snap.RejectedShifts, "rejected"); err != nil {
		return err
	}
	if err := insertShift(snap.SavedShifts, "saved"); err != nil {
		return err
	}
	if err := insertSlot(snap.AppliedSlots, "applied"); err != nil {
		return err
	}
	if err := insertSlot(snap.RejectedSlots, "rejected"); err != nil {
		return err
	}

	for shiftID, track := range snap.CounterOffers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counter_offers (worker_id, shift_id, summary) VALUES (?, ?, ?)`,
			worker, string(shiftID), track.Summary); err != nil {
			return fmt.Errorf("insert counter offer: %w", err)
		}
		for slotID, offer := range track.Slots {
			var start, end any
			if offer.Start != nil {
				start = offer.Start.String()
			}
			if offer.End != nil {
				end = offer.End.String()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO counter_offer_slots (worker_id, shift_id, slot_id, rate, start_time, end_time)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				worker, string(shiftID), string(slotID), offer.Rate.String(), start, end); err != nil {
				return fmt.Errorf("insert counter offer slot: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}
