package phases

import (
	"github.com/arqops/studio-tracker/internal/db"
)

// EffectiveStatus is the read-time correction of a stored phase status: a
// phase can only read as in_progress once at least one time session exists
// against it. The stored row is never mutated by this rule; displays and
// recomputations call through here instead.
func EffectiveStatus(stored string, hasSessions bool) string {
	if stored == db.PhaseStatusInProgress && !hasSessions {
		return db.PhaseStatusPending
	}
	return stored
}
