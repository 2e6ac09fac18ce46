// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docstore provides the Badger-backed document store. It holds two
// kinds of documents: TMDb enrichment metadata cached per movie, and the
// append-only feedback log for recommendation interactions.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/logging"
	"github.com/cinematch/cinematch/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("docstore: not found")

const (
	moviePrefix    = "movie:"
	feedbackPrefix = "feedback:"
)

// Store wraps a Badger database with typed accessors for enrichment
// documents and feedback entries.
type Store struct {
	db *badger.DB
}

// Open opens the Badger document store at the configured path. Badger's own
// logger is silenced; store-level events go through the application logger.
func Open(cfg config.DocStoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	if !cfg.InMemory {
		logging.Info().Str("path", cfg.Path).Msg("document store opened")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func movieKey(movieID int64) []byte {
	return []byte(fmt.Sprintf("%s%d", moviePrefix, movieID))
}

// PutEnrichedMovie stores a TMDb enrichment document for a movie,
// overwriting any existing document.
func (s *Store) PutEnrichedMovie(e models.EnrichedMovie) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal enriched movie: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(movieKey(e.MovieID), data)
	})
}

// GetEnrichedMovie returns the cached enrichment document for a movie,
// or ErrNotFound.
func (s *Store) GetEnrichedMovie(movieID int64) (models.EnrichedMovie, error) {
	var e models.EnrichedMovie
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(movieKey(movieID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.EnrichedMovie{}, ErrNotFound
	}
	if err != nil {
		return models.EnrichedMovie{}, fmt.Errorf("get enriched movie %d: %w", movieID, err)
	}
	return e, nil
}

// HasEnrichedMovie reports whether an enrichment document exists for the
// movie. Used to skip already-enriched movies on re-runs.
func (s *Store) HasEnrichedMovie(movieID int64) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(movieKey(movieID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check enriched movie %d: %w", movieID, err)
	}
	return true, nil
}

// AppendFeedback records a feedback entry. Keys embed a nanosecond
// timestamp followed by a UUID, so lexicographic key order is insertion
// order and concurrent writes cannot collide.
func (s *Store) AppendFeedback(f models.Feedback) (models.Feedback, error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(&f)
	if err != nil {
		return models.Feedback{}, fmt.Errorf("marshal feedback: %w", err)
	}

	key := []byte(fmt.Sprintf("%s%020d:%s", feedbackPrefix, f.CreatedAt.UnixNano(), f.ID))
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return models.Feedback{}, fmt.Errorf("append feedback: %w", err)
	}
	return f, nil
}

// ListFeedback returns feedback entries newest first, up to limit. When
// userID is non-zero only that user's entries are returned; the limit
// applies after filtering.
func (s *Store) ListFeedback(limit int, userID int64) ([]models.Feedback, error) {
	if limit <= 0 {
		limit = 50
	}

	var out []models.Feedback
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackPrefix)
		// In reverse mode seek to the end of the prefix range; 0xff sorts
		// after every timestamp digit.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var f models.Feedback
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			})
			if err != nil {
				return fmt.Errorf("unmarshal feedback: %w", err)
			}
			if userID != 0 && f.UserID != userID {
				continue
			}
			out = append(out, f)
			if len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountFeedback returns the total number of feedback entries.
func (s *Store) CountFeedback() (int, error) {
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// RunGC runs Badger value-log garbage collection on the given interval
// until the context is cancelled. Badger returns ErrNoRewrite when there is
// nothing to collect, which is not an error condition.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("document store GC failed")
					}
					break
				}
			}
		}
	}
}
