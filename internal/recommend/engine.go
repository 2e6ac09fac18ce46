// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/models"
)

// Engine coordinates the content and collaborative models, caches
// responses, and tracks training state. It is safe for concurrent use.
type Engine struct {
	config   Config
	logger   zerolog.Logger
	provider DataProvider

	content       *ContentModel
	collaborative *CollaborativeModel

	// Training state
	statusMu   sync.RWMutex
	status     TrainingStatus
	inTraining atomic.Bool

	// Movie metadata for decorating collaborative results
	metaMu    sync.RWMutex
	movieMeta map[int64]models.Movie

	// Response cache
	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

type cacheEntry struct {
	recs      []models.Recommendation
	expiresAt time.Time
}

// NewEngine creates an engine backed by the given data provider.
func NewEngine(cfg Config, provider DataProvider, logger zerolog.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		config:        cfg,
		logger:        logger.With().Str("component", "recommend").Logger(),
		provider:      provider,
		content:       NewContentModel(cfg.MaxFeatures),
		collaborative: NewCollaborativeModel(cfg.MinRatings),
		movieMeta:     make(map[int64]models.Movie),
		cache:         make(map[string]cacheEntry),
	}
}

// Train loads data from the provider and retrains both models. Only one
// training run executes at a time; concurrent calls get
// ErrTrainingInProgress.
func (e *Engine) Train(ctx context.Context) error {
	if !e.inTraining.CompareAndSwap(false, true) {
		return ErrTrainingInProgress
	}
	defer e.inTraining.Store(false)

	start := time.Now()
	e.setStatusInProgress()

	err := e.train(ctx)

	elapsed := time.Since(start)
	e.finishStatus(elapsed, err)
	if err != nil {
		e.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("training failed")
		return err
	}

	metrics.RecommendTrainingDuration.Observe(elapsed.Seconds())
	e.statusMu.RLock()
	metrics.RecommendModelVersion.Set(float64(e.status.ModelVersion))
	e.statusMu.RUnlock()

	e.clearCache()
	e.logger.Info().
		Dur("elapsed", elapsed).
		Int("corpus", e.content.CorpusSize()).
		Int("vocabulary", e.content.VocabularySize()).
		Int("users", e.collaborative.UserCount()).
		Msg("training complete")
	return nil
}

func (e *Engine) train(ctx context.Context) error {
	movies, err := e.provider.AllMovies(ctx)
	if err != nil {
		return fmt.Errorf("load movies: %w", err)
	}
	ratings, err := e.provider.ValidRatings(ctx)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}

	if err := e.content.Train(ctx, movies); err != nil && !errors.Is(err, ErrNoData) {
		return fmt.Errorf("train content model: %w", err)
	}
	if err := e.collaborative.Train(ctx, ratings); err != nil && !errors.Is(err, ErrNoData) {
		return fmt.Errorf("train collaborative model: %w", err)
	}
	if !e.content.IsTrained() && !e.collaborative.IsTrained() {
		return ErrNoData
	}

	meta := make(map[int64]models.Movie, len(movies))
	for _, m := range movies {
		meta[m.MovieID] = m
	}
	e.metaMu.Lock()
	e.movieMeta = meta
	e.metaMu.Unlock()

	userSet := make(map[int64]bool, len(ratings))
	for _, r := range ratings {
		userSet[r.UserID] = true
	}
	e.statusMu.Lock()
	e.status.MovieCount = len(movies)
	e.status.UserCount = len(userSet)
	e.status.RatingCount = len(ratings)
	e.statusMu.Unlock()

	return nil
}

// SimilarMovies returns the k movies most similar in overview content to
// the given movie.
func (e *Engine) SimilarMovies(ctx context.Context, movieID int64, k int) ([]models.Recommendation, error) {
	metrics.RecommendRequestsTotal.WithLabelValues("content").Inc()
	if k <= 0 {
		k = e.config.TopK
	}

	key := fmt.Sprintf("content:%d:%d", movieID, k)
	if recs, ok := e.checkCache(key); ok {
		return recs, nil
	}

	recs, err := e.content.Similar(movieID, k)
	if err != nil {
		return nil, err
	}
	e.storeCache(key, recs)
	return recs, nil
}

// SimilarMoviesByTitle is SimilarMovies keyed by exact title, for callers
// that only know the MovieLens title string.
func (e *Engine) SimilarMoviesByTitle(ctx context.Context, title string, k int) ([]models.Recommendation, error) {
	metrics.RecommendRequestsTotal.WithLabelValues("content").Inc()
	if k <= 0 {
		k = e.config.TopK
	}

	key := fmt.Sprintf("content-title:%s:%d", title, k)
	if recs, ok := e.checkCache(key); ok {
		return recs, nil
	}

	recs, err := e.content.SimilarByTitle(title, k)
	if err != nil {
		return nil, err
	}
	e.storeCache(key, recs)
	return recs, nil
}

// RecommendForUser returns up to k collaborative recommendations for the
// user. Users with no rating history fall back to the top-rated movies so
// cold-start requests still get a useful answer.
func (e *Engine) RecommendForUser(ctx context.Context, userID int64, k int) ([]models.Recommendation, error) {
	metrics.RecommendRequestsTotal.WithLabelValues("collaborative").Inc()
	if k <= 0 {
		k = e.config.TopK
	}

	key := fmt.Sprintf("collab:%d:%d", userID, k)
	if recs, ok := e.checkCache(key); ok {
		return recs, nil
	}

	scoredRecs, err := e.collaborative.RecommendForUser(userID, k, e.config.Neighbors)
	if errors.Is(err, ErrUserNotFound) {
		return e.popularFallback(ctx, userID, k)
	}
	if err != nil {
		return nil, err
	}

	recs := e.decorate(scoredRecs, "collaborative")
	e.storeCache(key, recs)
	return recs, nil
}

// popularFallback serves the highest-voted movies to users the model has
// never seen.
func (e *Engine) popularFallback(ctx context.Context, userID int64, k int) ([]models.Recommendation, error) {
	metrics.RecommendRequestsTotal.WithLabelValues("popular").Inc()
	e.logger.Debug().Int64("user_id", userID).Msg("unknown user, serving popular fallback")

	movies, err := e.provider.TopRatedMovies(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("popular fallback: %w", err)
	}
	recs := make([]models.Recommendation, len(movies))
	for i, m := range movies {
		recs[i] = models.Recommendation{
			MovieID:     m.MovieID,
			Title:       m.Title,
			Genres:      m.Genres,
			PosterPath:  m.PosterPath,
			Score:       m.VoteAverage,
			Method:      "popular",
			VoteAverage: m.VoteAverage,
		}
	}
	return recs, nil
}

// SimilarUsers returns the k most similar users by rating behavior.
func (e *Engine) SimilarUsers(ctx context.Context, userID int64, k int) ([]models.SimilarUser, error) {
	metrics.RecommendRequestsTotal.WithLabelValues("similar_users").Inc()
	if k <= 0 {
		k = e.config.TopK
	}
	return e.collaborative.SimilarUsers(userID, k)
}

// decorate attaches movie metadata to raw collaborative scores.
func (e *Engine) decorate(scores []scored, method string) []models.Recommendation {
	e.metaMu.RLock()
	defer e.metaMu.RUnlock()

	recs := make([]models.Recommendation, len(scores))
	for i, s := range scores {
		rec := models.Recommendation{
			MovieID: s.movieID,
			Score:   s.score,
			Method:  method,
		}
		if m, ok := e.movieMeta[s.movieID]; ok {
			rec.Title = m.Title
			rec.Genres = m.Genres
			rec.PosterPath = m.PosterPath
			rec.VoteAverage = m.VoteAverage
		}
		recs[i] = rec
	}
	return recs
}

// Status returns a snapshot of the training state.
func (e *Engine) Status() TrainingStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

func (e *Engine) setStatusInProgress() {
	e.statusMu.Lock()
	e.status.InProgress = true
	e.status.LastError = ""
	e.statusMu.Unlock()
}

func (e *Engine) finishStatus(elapsed time.Duration, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.InProgress = false
	e.status.LastDuration = elapsed.Round(time.Millisecond).String()
	if err != nil {
		e.status.LastError = err.Error()
		return
	}
	e.status.Trained = true
	e.status.ModelVersion++
	e.status.LastTrainedAt = time.Now().UTC()
}

func (e *Engine) checkCache(key string) ([]models.Recommendation, bool) {
	if e.config.CacheSize <= 0 {
		return nil, false
	}
	e.cacheMu.RLock()
	entry, ok := e.cache[key]
	e.cacheMu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		metrics.RecommendCacheMisses.Inc()
		return nil, false
	}
	metrics.RecommendCacheHits.Inc()

	// Return a copy so callers cannot mutate the cached slice
	recs := make([]models.Recommendation, len(entry.recs))
	copy(recs, entry.recs)
	return recs, true
}

func (e *Engine) storeCache(key string, recs []models.Recommendation) {
	if e.config.CacheSize <= 0 {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if len(e.cache) >= e.config.CacheSize {
		// Evict expired entries first, then an arbitrary one
		now := time.Now()
		for k, v := range e.cache {
			if now.After(v.expiresAt) {
				delete(e.cache, k)
			}
		}
		for k := range e.cache {
			if len(e.cache) < e.config.CacheSize {
				break
			}
			delete(e.cache, k)
		}
	}

	stored := make([]models.Recommendation, len(recs))
	copy(stored, recs)
	e.cache[key] = cacheEntry{recs: stored, expiresAt: time.Now().Add(e.config.CacheTTL)}
}

func (e *Engine) clearCache() {
	e.cacheMu.Lock()
	e.cache = make(map[string]cacheEntry)
	e.cacheMu.Unlock()
}
