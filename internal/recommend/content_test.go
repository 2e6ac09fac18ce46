// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/cinematch/cinematch/internal/models"
)

func contentFixture() []models.Movie {
	return []models.Movie{
		{MovieID: 1, Title: "Star Quest", Overview: "space adventure with droids across space"},
		{MovieID: 2, Title: "Galaxy Run", Overview: "space adventure across distant galaxies"},
		{MovieID: 3, Title: "Paris Hearts", Overview: "romantic drama set in paris"},
	}
}

func TestContentSimilarOrdering(t *testing.T) {
	c := NewContentModel(0)
	if err := c.Train(context.Background(), contentFixture()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}

	recs, err := c.Similar(1, 2)
	if err != nil {
		t.Fatalf("Similar() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Similar() returned %d results, want 2", len(recs))
	}
	if recs[0].MovieID != 2 {
		t.Errorf("top result = %d, want 2 (shares space/adventure vocabulary)", recs[0].MovieID)
	}
	if recs[1].MovieID != 3 || recs[1].Score != 0 {
		t.Errorf("second result = %d score %g, want movie 3 with score 0", recs[1].MovieID, recs[1].Score)
	}
	if recs[0].Score <= recs[1].Score {
		t.Errorf("scores not descending: %g then %g", recs[0].Score, recs[1].Score)
	}
	if recs[0].Method != "content" {
		t.Errorf("Method = %q, want content", recs[0].Method)
	}
}

func TestContentSimilarExcludesSelf(t *testing.T) {
	c := NewContentModel(0)
	if err := c.Train(context.Background(), contentFixture()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}

	recs, err := c.Similar(2, 10)
	if err != nil {
		t.Fatalf("Similar() error: %v", err)
	}
	for _, r := range recs {
		if r.MovieID == 2 {
			t.Errorf("result contains the query movie itself")
		}
	}
}

func TestContentNotTrained(t *testing.T) {
	c := NewContentModel(0)
	if _, err := c.Similar(1, 5); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Similar() before training error = %v, want ErrNotTrained", err)
	}
}

func TestContentUnknownMovie(t *testing.T) {
	c := NewContentModel(0)
	if err := c.Train(context.Background(), contentFixture()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if _, err := c.Similar(99, 5); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("Similar(unknown) error = %v, want ErrMovieNotFound", err)
	}
}

func TestContentEmptyOverviewStaysInCorpus(t *testing.T) {
	movies := append(contentFixture(), models.Movie{MovieID: 4, Title: "No Overview"})
	c := NewContentModel(0)
	if err := c.Train(context.Background(), movies); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if c.CorpusSize() != 4 {
		t.Errorf("CorpusSize() = %d, want 4", c.CorpusSize())
	}

	// The movie is addressable; its empty vector scores 0 everywhere
	recs, err := c.Similar(4, 5)
	if err != nil {
		t.Fatalf("Similar(no overview) error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Similar(no overview) returned %d results, want 3", len(recs))
	}
	for _, r := range recs {
		if r.Score != 0 {
			t.Errorf("movie %d score = %g, want 0", r.MovieID, r.Score)
		}
	}
}

func TestContentSimilarByTitle(t *testing.T) {
	c := NewContentModel(0)
	if err := c.Train(context.Background(), contentFixture()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}

	recs, err := c.SimilarByTitle("Star Quest", 1)
	if err != nil {
		t.Fatalf("SimilarByTitle() error: %v", err)
	}
	if len(recs) != 1 || recs[0].MovieID != 2 {
		t.Errorf("SimilarByTitle() = %+v, want Galaxy Run", recs)
	}

	if _, err := c.SimilarByTitle("Nope", 1); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("SimilarByTitle(unknown) error = %v, want ErrMovieNotFound", err)
	}
}

func TestContentDuplicateTitleFirstWins(t *testing.T) {
	movies := append(contentFixture(),
		models.Movie{MovieID: 5, Title: "Star Quest", Overview: "a completely different plot"})
	c := NewContentModel(0)
	if err := c.Train(context.Background(), movies); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if c.CorpusSize() != 4 {
		t.Errorf("CorpusSize() = %d, want 4 (duplicate title kept in corpus)", c.CorpusSize())
	}

	// Both movies stay reachable by ID even though they share a title
	if _, err := c.Similar(1, 5); err != nil {
		t.Errorf("Similar(first occurrence) error = %v", err)
	}
	recs, err := c.Similar(5, 5)
	if err != nil {
		t.Fatalf("Similar(duplicate title) error: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("Similar(duplicate title) returned %d results, want 3", len(recs))
	}

	// Title lookup resolves to the first import
	recs, err = c.SimilarByTitle("Star Quest", 1)
	if err != nil {
		t.Fatalf("SimilarByTitle(duplicated title) error: %v", err)
	}
	if len(recs) == 0 || recs[0].MovieID == 5 {
		t.Errorf("SimilarByTitle resolved to the duplicate, want the first import")
	}
}

func TestContentTrainEmptyCorpus(t *testing.T) {
	c := NewContentModel(0)
	err := c.Train(context.Background(), []models.Movie{{MovieID: 1, Title: "X"}})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Train(no overviews) error = %v, want ErrNoData", err)
	}
}
