package cita

import (
	"context"
	"fmt"
	"time"
)

// ConflictChecker answers whether a slot is occupied. Equality on fecha is
// exact-instant, unlike the day-range semantics of the list filter.
type ConflictChecker struct {
	store Store
}

func NewConflictChecker(store Store) *ConflictChecker {
	return &ConflictChecker{store: store}
}

func (c *ConflictChecker) Exists(ctx context.Context, doctorID, centroID int64, fecha time.Time) (bool, error) {
	occupied, err := c.store.ExistsConflict(ctx, doctorID, centroID, fecha.UTC())
	if err != nil {
		return false, fmt.Errorf("check slot conflict: %w", err)
	}
	return occupied, nil
}

// SlotKey is the lock key serializing concurrent bookings of one slot.
func SlotKey(doctorID, centroID int64, fecha time.Time) string {
	return fmt.Sprintf("lock:slot:%d:%d:%d", doctorID, centroID, fecha.UTC().Unix())
}
