package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	BucketSeries = "series"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("series not found")

// HistoryItem is one finished benchmark series.
type HistoryItem struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Label       string    `json:"label"`
	Mode        string    `json:"mode"`
	Workers     int       `json:"workers"`
	BlobSizeMiB float64   `json:"blob_size_mib"`
	Summary     Summary   `json:"summary"`
}

type Summary struct {
	Runs        int     `json:"runs"`
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	MovedMiB    float64 `json:"moved_mib"`
	Mbps        float64 `json:"mbps"`
	SuccessPct  float64 `json:"success_pct"`
	BestSec     float64 `json:"best_sec"`
	WorstSec    float64 `json:"worst_sec"`
	AverageSec  float64 `json:"average_sec"`
	BestMbps    float64 `json:"best_mbps"`
	WorstMbps   float64 `json:"worst_mbps"`
	AverageMbps float64 `json:"average_mbps"`
}

type Store struct {
	db *bbolt.DB
}

// DefaultPath is ~/.gatebench/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gatebench", "history.db"), nil
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create history dir")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open history %s", path)
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketSeries))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewID returns a time-ordered id, so key order is chronological.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) Save(item HistoryItem) error {
	if item.ID == "" {
		item.ID = NewID()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSeries))

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return b.Put([]byte(item.ID), data)
	})
}

// List returns up to limit items, newest first. A limit of 0 returns everything.
func (s *Store) List(limit int) ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketSeries)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return errors.Wrapf(err, "decode %s", k)
			}
			items = append(items, item)
			if limit > 0 && len(items) == limit {
				break
			}
		}
		return nil
	})
	return items, err
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var item HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(BucketSeries)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
