package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"rrf/internal/errors"
	"rrf/internal/params"
	"rrf/internal/resonance"
)

// RunRecord is one persisted analysis run
type RunRecord struct {
	Sequence          int64             `json:"sequence"`
	RunID             string            `json:"runId"`
	TextHash          string            `json:"textHash"`
	Coherence         float64           `json:"coherence"`
	DominantFrequency float64           `json:"dominantFrequency"`
	HarmonicFrequency float64           `json:"harmonicFrequency"`
	Energy            float64           `json:"energy"`
	Parameters        params.Parameters `json:"parameters"`
	RecordedAt        time.Time         `json:"recordedAt"`
}

// RunPayload is the waveform and spectrum of a run, stored compressed so
// past runs can be exported for visualization without re-running them.
type RunPayload struct {
	Waveform []float64       `json:"waveform"`
	Spectrum []resonance.Bin `json:"spectrum"`
}

// Metric converts the record into the tuner's input form
func (r *RunRecord) Metric() resonance.Metric {
	return resonance.Metric{
		Coherence:  r.Coherence,
		Parameters: r.Parameters,
	}
}

// AppendRun persists one run and returns its assigned sequence number.
// AUTOINCREMENT serializes the ordering even under concurrent appends.
func (db *DB) AppendRun(rec *RunRecord, payload *RunPayload) (int64, error) {
	blob, err := encodePayload(payload)
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(`
		INSERT INTO runs (
			run_id, text_hash, coherence, dominant_frequency, harmonic_frequency,
			energy, potential_strength, step_size, excitation_scale, payload, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID, rec.TextHash, rec.Coherence, rec.DominantFrequency, rec.HarmonicFrequency,
		rec.Energy, rec.Parameters.PotentialStrength, rec.Parameters.StepSize,
		rec.Parameters.ExcitationScale, blob, rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append run: %w", err)
	}
	return res.LastInsertId()
}

// History returns all run metrics ordered by sequence number, oldest
// first. This is the ordered sequence the tuner consumes.
func (db *DB) History() ([]resonance.Metric, error) {
	rows, err := db.Query(`
		SELECT coherence, potential_strength, step_size, excitation_scale
		FROM runs
		ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var history []resonance.Metric
	for rows.Next() {
		var m resonance.Metric
		if err := rows.Scan(
			&m.Coherence,
			&m.Parameters.PotentialStrength,
			&m.Parameters.StepSize,
			&m.Parameters.ExcitationScale,
		); err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// RecentRuns returns up to limit run records, newest first
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := db.Query(`
		SELECT sequence, run_id, text_hash, coherence, dominant_frequency,
		       harmonic_frequency, energy, potential_strength, step_size,
		       excitation_scale, recorded_at
		FROM runs
		ORDER BY sequence DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetRun returns the record and payload for a run id
func (db *DB) GetRun(runID string) (*RunRecord, *RunPayload, error) {
	row := db.QueryRow(`
		SELECT sequence, run_id, text_hash, coherence, dominant_frequency,
		       harmonic_frequency, energy, potential_strength, step_size,
		       excitation_scale, recorded_at, payload
		FROM runs
		WHERE run_id = ?
	`, runID)

	var rec RunRecord
	var recordedAt string
	var blob []byte
	err := row.Scan(
		&rec.Sequence, &rec.RunID, &rec.TextHash, &rec.Coherence, &rec.DominantFrequency,
		&rec.HarmonicFrequency, &rec.Energy, &rec.Parameters.PotentialStrength,
		&rec.Parameters.StepSize, &rec.Parameters.ExcitationScale, &recordedAt, &blob,
	)
	if err == sql.ErrNoRows {
		return nil, nil, errors.Newf(errors.RunNotFound, "run %s not found", runID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run: %w", err)
	}
	rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)

	payload, err := decodePayload(blob)
	if err != nil {
		return nil, nil, err
	}
	return &rec, payload, nil
}

// CountRuns returns the number of stored runs
func (db *DB) CountRuns() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// CleanupOldRuns removes runs older than the retention period
func (db *DB) CleanupOldRuns(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	res, err := db.Exec(`DELETE FROM runs WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var recordedAt string
	if err := row.Scan(
		&rec.Sequence, &rec.RunID, &rec.TextHash, &rec.Coherence, &rec.DominantFrequency,
		&rec.HarmonicFrequency, &rec.Energy, &rec.Parameters.PotentialStrength,
		&rec.Parameters.StepSize, &rec.Parameters.ExcitationScale, &recordedAt,
	); err != nil {
		return nil, err
	}
	rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
	return &rec, nil
}

// encodePayload serializes and zstd-compresses the waveform/spectrum blob
func encodePayload(p *RunPayload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decodePayload(blob []byte) (*RunPayload, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	var p RunPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &p, nil
}
