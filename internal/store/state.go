// Package store holds the correlator's in-memory state: the two per-source
// drive views keyed by serial number, and a bounded history of raised
// incidents.
package store

import (
	"sort"
	"sync"

	"github.com/drivewatch/correlator/internal/drive"
)

// State is the dual-view correlator state. Both views map serial number to
// the latest record from that source. Invariant: every serial present in the
// inventory view also has a synthesized entry in the manager view, so status
// queries against the manager view stay complete when only inventory events
// have arrived. The engine is the only writer; the mutex exists for the
// read-only ops API.
type State struct {
	mu        sync.RWMutex
	manager   map[string]drive.Record
	inventory map[string]drive.Record
}

// NewState creates an empty state. It lives for the process lifetime and has
// no teardown; the durable report is its only persisted reflection.
func NewState() *State {
	return &State{
		manager:   make(map[string]drive.Record),
		inventory: make(map[string]drive.Record),
	}
}

// UpsertManager replaces the manager-view record for the record's serial
// number and returns the pre-update record, if any. Transition detection must
// diff against that returned value, never a re-read.
func (s *State) UpsertManager(rec drive.Record) (prev drive.Record, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed = s.manager[rec.SerialNumber]
	s.manager[rec.SerialNumber] = rec
	return prev, existed
}

// UpsertInventory commits an inventory record and its derived manager record
// under one lock, so the dual-view invariant holds at every observable point.
// Both records must be fully built and validated before the call.
func (s *State) UpsertInventory(inv, mgr drive.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inventory[inv.SerialNumber] = inv
	s.manager[mgr.SerialNumber] = mgr
}

// Manager looks up the manager-view record for a serial number.
func (s *State) Manager(serial string) (drive.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.manager[serial]
	return rec, ok
}

// Inventory looks up the inventory-view record for a serial number.
func (s *State) Inventory(serial string) (drive.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.inventory[serial]
	return rec, ok
}

// ManagerSnapshot returns all manager-view records sorted by serial number.
func (s *State) ManagerSnapshot() []drive.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.manager)
}

// InventorySnapshot returns all inventory-view records sorted by serial number.
func (s *State) InventorySnapshot() []drive.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.inventory)
}

// Counts reports the size of each view.
func (s *State) Counts() (manager, inventory int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.manager), len(s.inventory)
}

func snapshot(view map[string]drive.Record) []drive.Record {
	records := make([]drive.Record, 0, len(view))
	for _, rec := range view {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SerialNumber < records[j].SerialNumber
	})
	return records
}
