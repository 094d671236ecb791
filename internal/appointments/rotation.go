package appointments

import (
	"context"
	"fmt"
	"strings"

	"github.com/radiancemd/spa-scheduler/internal/catalog"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Rotator assigns specialists round-robin across the active roster. The
// cursor lives in the database so assignment survives restarts and stays
// fair across processes.
type Rotator struct {
	catalog catalog.Provider
	store   *Store
	logger  *logging.Logger
}

// NewRotator builds a specialist rotator.
func NewRotator(cat catalog.Provider, store *Store, logger *logging.Logger) *Rotator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Rotator{catalog: cat, store: store, logger: logger}
}

// Next picks the specialist for a new booking. An explicit preference naming
// an active staff member wins and leaves the rotation cursor untouched.
// An empty roster yields ("", false) rather than an error — bookings proceed
// unassigned.
func (r *Rotator) Next(ctx context.Context, preference string) (string, bool, error) {
	roster, err := r.catalog.ActiveStaffNames(ctx)
	if err != nil {
		return "", false, fmt.Errorf("appointments: load staff roster: %w", err)
	}
	if len(roster) == 0 {
		r.logger.Warn("rotation: no active staff, booking unassigned")
		return "", false, nil
	}

	if preference != "" {
		for _, name := range roster {
			if strings.EqualFold(name, preference) {
				return name, true, nil
			}
		}
		r.logger.Info("rotation: preferred specialist not on active roster", "preference", preference)
	}

	idx, err := r.store.AdvanceRotationCursor(ctx, len(roster))
	if err != nil {
		return "", false, err
	}
	return roster[idx], true, nil
}
