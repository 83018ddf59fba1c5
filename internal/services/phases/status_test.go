package phases

import (
	"testing"

	"github.com/arqops/studio-tracker/internal/db"
)

func TestEffectiveStatusCorrectsSessionlessInProgress(t *testing.T) {
	cases := []struct {
		name        string
		stored      string
		hasSessions bool
		want        string
	}{
		{"in_progress without sessions reads pending", db.PhaseStatusInProgress, false, db.PhaseStatusPending},
		{"in_progress with sessions stays", db.PhaseStatusInProgress, true, db.PhaseStatusInProgress},
		{"pending untouched", db.PhaseStatusPending, false, db.PhaseStatusPending},
		{"completed untouched without sessions", db.PhaseStatusCompleted, false, db.PhaseStatusCompleted},
		{"cancelled untouched", db.PhaseStatusCancelled, true, db.PhaseStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectiveStatus(tc.stored, tc.hasSessions); got != tc.want {
				t.Errorf("EffectiveStatus(%q, %v) = %q, want %q", tc.stored, tc.hasSessions, got, tc.want)
			}
		})
	}
}
