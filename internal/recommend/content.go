// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"context"
	"sort"

	"github.com/cinematch/cinematch/internal/models"
)

// ContentModel implements content-based filtering over movie overviews.
// Each overview is vectorized with TF-IDF and similarity between two
// movies is the cosine of their vectors. Because vectors are
// l2-normalized at training time, prediction is a single dot product per
// candidate.
type ContentModel struct {
	baseModel

	maxFeatures int

	// Trained model
	movies     []models.Movie
	movieIndex map[int64]int // movie_id -> index in movies slice
	titleIndex map[string]int
	vectors    []sparseVector
	vocabSize  int
}

// NewContentModel creates a content model with the given TF-IDF vocabulary
// cap. Zero means unlimited.
func NewContentModel(maxFeatures int) *ContentModel {
	return &ContentModel{
		baseModel:   newBaseModel("content"),
		maxFeatures: maxFeatures,
		movieIndex:  make(map[int64]int),
	}
}

// Train fits TF-IDF vectors over the movie corpus. Every movie enters the
// corpus; a missing overview becomes an empty vector with zero similarity
// to everything else, so the movie stays addressable by ID.
func (c *ContentModel) Train(ctx context.Context, movies []models.Movie) error {
	if len(movies) == 0 {
		return ErrNoData
	}

	corpus := make([]models.Movie, len(movies))
	copy(corpus, movies)

	docs := make([]string, len(corpus))
	for i, m := range corpus {
		docs[i] = m.Overview
	}

	vectorizer := newTFIDFVectorizer(c.maxFeatures)
	vectors := vectorizer.FitTransform(docs)
	if vectorizer.VocabularySize() == 0 {
		return ErrNoData
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.movies = corpus
	c.movieIndex = make(map[int64]int, len(corpus))
	c.titleIndex = make(map[string]int, len(corpus))
	for i, m := range corpus {
		c.movieIndex[m.MovieID] = i
		// First occurrence wins for duplicate titles
		if _, ok := c.titleIndex[m.Title]; !ok {
			c.titleIndex[m.Title] = i
		}
	}
	c.vectors = vectors
	c.vocabSize = vectorizer.VocabularySize()
	c.markTrained()
	return nil
}

// Similar returns the k movies most similar to the given movie, ordered by
// descending cosine similarity. The movie itself is excluded and ties keep
// corpus order, so results are deterministic across calls.
func (c *ContentModel) Similar(movieID int64, k int) ([]models.Recommendation, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if !c.trained {
		return nil, ErrNotTrained
	}
	idx, ok := c.movieIndex[movieID]
	if !ok {
		return nil, ErrMovieNotFound
	}
	return c.similarAt(idx, k), nil
}

// SimilarByTitle is Similar keyed by exact title. When an import contains
// duplicate titles the first occurrence is the one indexed.
func (c *ContentModel) SimilarByTitle(title string, k int) ([]models.Recommendation, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if !c.trained {
		return nil, ErrNotTrained
	}
	idx, ok := c.titleIndex[title]
	if !ok {
		return nil, ErrMovieNotFound
	}
	return c.similarAt(idx, k), nil
}

// similarAt computes the k nearest corpus entries to the given index.
// Callers must hold the predict lock.
func (c *ContentModel) similarAt(idx, k int) []models.Recommendation {
	if k <= 0 {
		return nil
	}

	query := c.vectors[idx]
	scores := make([]scored, 0, len(c.vectors)-1)
	for i, vec := range c.vectors {
		if i == idx {
			continue
		}
		scores = append(scores, scored{
			movieID: c.movies[i].MovieID,
			score:   query.dot(vec),
		})
	}

	// Stable keeps corpus order for equal scores
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	if k < len(scores) {
		scores = scores[:k]
	}

	out := make([]models.Recommendation, len(scores))
	for i, s := range scores {
		m := c.movies[c.movieIndex[s.movieID]]
		out[i] = models.Recommendation{
			MovieID:     m.MovieID,
			Title:       m.Title,
			Genres:      m.Genres,
			PosterPath:  m.PosterPath,
			Score:       s.score,
			Method:      "content",
			VoteAverage: m.VoteAverage,
		}
	}
	return out
}

// CorpusSize returns the number of movies in the trained corpus.
func (c *ContentModel) CorpusSize() int {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return len(c.movies)
}

// VocabularySize returns the number of TF-IDF terms in the trained model.
func (c *ContentModel) VocabularySize() int {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return c.vocabSize
}
