package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/punchalert/internal/gesture"
)

func TestVerdictRepository_InsertRejectsUnknownLabel(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "camera 0"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := s.Verdicts().Insert(&Verdict{SessionID: sess.ID, Seq: 1, Label: "kick"}); err == nil {
		t.Error("expected an error for an unknown label")
	}
}

func TestVerdictRepository_InsertRequiresSession(t *testing.T) {
	s := newTestStore(t)

	if err := s.Verdicts().Insert(&Verdict{SessionID: "missing", Seq: 1, Label: "punch"}); err == nil {
		t.Error("expected a foreign key error for an unknown session")
	}
}

func TestRecorder_Record(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "camera 0"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	rec := s.NewRecorder(sess.ID)
	now := time.Now()

	// Verdicts arrive in completion order, not window order.
	rec.Record(gesture.Verdict{Seq: 2, Label: gesture.Neutral, Probability: 0.1, Latency: 30 * time.Millisecond, At: now})
	rec.Record(gesture.Verdict{Seq: 1, Label: gesture.Punch, Probability: 0.9, Latency: 45 * time.Millisecond, At: now})
	rec.Record(gesture.Verdict{Seq: 3, Label: gesture.Neutral, Err: errors.New("model exploded"), At: now})

	verdicts, err := s.Verdicts().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() failed: %v", err)
	}
	if len(verdicts) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(verdicts))
	}

	if verdicts[0].Seq != 1 || verdicts[0].Label != "punch" {
		t.Errorf("first verdict = %+v, want seq 1 punch", verdicts[0])
	}
	if verdicts[0].LatencyMs != 45 {
		t.Errorf("LatencyMs = %f, want 45", verdicts[0].LatencyMs)
	}
	if verdicts[2].Error != "model exploded" {
		t.Errorf("Error = %q, want %q", verdicts[2].Error, "model exploded")
	}
}

func TestRecorder_RecordUnknownSessionIsLogged(t *testing.T) {
	s := newTestStore(t)

	// Must not panic or block; the failure is only logged.
	s.NewRecorder("missing").Record(gesture.Verdict{Seq: 1, Label: gesture.Punch})
}
