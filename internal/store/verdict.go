package store

import (
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/gesture"
)

// Verdict is a stored classifier verdict.
type Verdict struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Seq         uint64    `json:"seq"`
	Label       string    `json:"label"`
	Probability float64   `json:"probability"`
	LatencyMs   float64   `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerdictRepository provides access to verdicts.
type VerdictRepository struct {
	db *sql.DB
}

// Verdicts returns the verdict repository for this store.
func (s *Store) Verdicts() *VerdictRepository {
	return &VerdictRepository{db: s.db}
}

// Insert stores v and sets its ID.
func (r *VerdictRepository) Insert(v *Verdict) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO verdicts (session_id, seq, label, probability, latency_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.SessionID, v.Seq, v.Label, v.Probability, v.LatencyMs, v.Error, v.CreatedAt,
	)
	if err != nil {
		return err
	}

	v.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's verdicts in window order.
func (r *VerdictRepository) ListBySession(sessionID string) ([]*Verdict, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, label, probability, latency_ms, error, created_at
		 FROM verdicts WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []*Verdict
	for rows.Next() {
		v := &Verdict{}
		if err := rows.Scan(&v.ID, &v.SessionID, &v.Seq, &v.Label, &v.Probability,
			&v.LatencyMs, &v.Error, &v.CreatedAt); err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return verdicts, nil
}

// Recorder stores every verdict of one session. It satisfies classify.Sink.
type Recorder struct {
	repo      *VerdictRepository
	sessionID string
	log       *logrus.Entry
}

// NewRecorder creates a Recorder for sessionID.
func (s *Store) NewRecorder(sessionID string) *Recorder {
	return &Recorder{
		repo:      s.Verdicts(),
		sessionID: sessionID,
		log:       logrus.WithFields(logrus.Fields{"component": "store", "session": sessionID}),
	}
}

// Record stores v. Failures are logged, never returned to the classifier.
func (r *Recorder) Record(v gesture.Verdict) {
	rec := &Verdict{
		SessionID:   r.sessionID,
		Seq:         v.Seq,
		Label:       v.Label.String(),
		Probability: v.Probability,
		LatencyMs:   float64(v.Latency.Microseconds()) / 1000,
		CreatedAt:   v.At,
	}
	if v.Err != nil {
		rec.Error = v.Err.Error()
	}

	if err := r.repo.Insert(rec); err != nil {
		r.log.WithError(err).WithField("seq", v.Seq).Warn("failed to store verdict")
	}
}
