package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("record not found")

// Store keeps prediction history and the training log in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS history (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        input TEXT NOT NULL,
        result TEXT NOT NULL,
        anemia INTEGER NOT NULL,
        probability REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY,
        model_name VARCHAR(50),
        accuracy REAL,
        precision REAL,
        recall REAL,
        roc_auc REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HistoryRecord is one served prediction. It marshals flat: the request
// fields first, then the outcome fields.
type HistoryRecord struct {
	ID          string
	Input       map[string]any
	Result      string
	Anemia      int
	Probability float64
	Timestamp   time.Time
}

func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Input)+5)
	for k, v := range r.Input {
		flat[k] = v
	}
	flat["id"] = r.ID
	flat["result"] = r.Result
	flat["anemia"] = r.Anemia
	flat["probability"] = r.Probability
	flat["timestamp"] = r.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(flat)
}

// SaveHistory assigns an id and timestamp when missing and stores rec.
func (s *Store) SaveHistory(ctx context.Context, rec *HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO history (id, input, result, anemia, probability, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(input), rec.Result, rec.Anemia, rec.Probability, rec.Timestamp)
	return err
}

// ListHistory returns records oldest first.
func (s *Store) ListHistory(ctx context.Context) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, input, result, anemia, probability, created_at
        FROM history
        ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]HistoryRecord, 0)
	for rows.Next() {
		var rec HistoryRecord
		var input string
		if err := rows.Scan(&rec.ID, &input, &rec.Result, &rec.Anemia, &rec.Probability, &rec.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(input), &rec.Input); err != nil {
			return nil, fmt.Errorf("decode input of %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) DeleteHistory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	ROCAUC     float64   `json:"roc_auc"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (model_name, accuracy, precision, recall, roc_auc, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.Accuracy, entry.Precision, entry.Recall, entry.ROCAUC, entry.TrainedAt, entry.DataPoints)
	return err
}

func (s *Store) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, accuracy, precision, recall, roc_auc, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Accuracy, &log.Precision, &log.Recall, &log.ROCAUC, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
