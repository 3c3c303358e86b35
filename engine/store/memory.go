// Package store provides SessionStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/shift-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	sessions map[engine.WorkerID]engine.SessionSnapshot
}

var _ engine.SessionStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{sessions: make(map[engine.WorkerID]engine.SessionSnapshot)}
}

// Load returns the stored snapshot, or an empty one for unknown workers.
func (m *Memory) Load(_ context.Context, workerID engine.WorkerID) (engine.SessionSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.sessions[workerID]
	if !ok {
		return engine.SessionSnapshot{}, nil
	}
	return copySnapshot(snap), nil
}

// Replace atomically overwrites the worker's snapshot.
func (m *Memory) Replace(_ context.Context, workerID engine.WorkerID, snap engine.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[workerID] = copySnapshot(snap)
	return nil
}

// copySnapshot deep-copies so callers can't alias stored state.
func copySnapshot(in engine.SessionSnapshot) engine.SessionSnapshot {
	out := engine.SessionSnapshot{
		AppliedShifts:  append([]engine.ShiftID(nil), in.AppliedShifts...),
		AppliedSlots:   append([]engine.SlotID(nil), in.AppliedSlots...),
		RejectedShifts: append([]engine.ShiftID(nil), in.RejectedShifts...),
		RejectedSlots:  append([]engine.SlotID(nil), in.RejectedSlots...),
		SavedShifts:    append([]engine.ShiftID(nil), in.SavedShifts...),
	}
	if in.CounterOffers != nil {
		out.CounterOffers = make(map[engine.ShiftID]engine.CounterOfferTrack, len(in.CounterOffers))
		for id, track := range in.CounterOffers {
			slots := make(map[engine.SlotID]engine.CounterOfferSlot, len(track.Slots))
			for sid, s := range track.Slots {
				slots[sid] = s
			}
			out.CounterOffers[id] = engine.CounterOfferTrack{Slots: slots, Summary: track.Summary}
		}
	}
	return out
}
