// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"context"
	"math"
	"sort"

	"github.com/cinematch/cinematch/internal/models"
)

// CollaborativeModel implements user-based collaborative filtering.
//
// Similarity between two users is the cosine over their co-rated movies
// divided by the full-vector norms, so users with little overlap score low
// even when the overlapping ratings agree. Recommendations for a user are
// the mean rating its top-N neighbors gave to movies the user has not
// rated yet.
type CollaborativeModel struct {
	baseModel

	minRatings int

	// Trained model: one sparse rating vector per user, columns indexed
	// by position in movieIDs.
	users      []int64
	userIndex  map[int64]int
	movieIDs   []int64
	movieIndex map[int64]int
	vectors    []map[int]float64
	norms      []float64
}

// NewCollaborativeModel creates a collaborative model requiring at least
// minRatings valid ratings before training succeeds.
func NewCollaborativeModel(minRatings int) *CollaborativeModel {
	if minRatings <= 0 {
		minRatings = 1
	}
	return &CollaborativeModel{
		baseModel:  newBaseModel("collaborative"),
		minRatings: minRatings,
		userIndex:  make(map[int64]int),
		movieIndex: make(map[int64]int),
	}
}

// Train builds the user-movie rating matrix. Users and movies are indexed
// in ascending ID order so every downstream ranking is deterministic.
func (c *CollaborativeModel) Train(ctx context.Context, ratings []models.Rating) error {
	if len(ratings) < c.minRatings {
		return ErrNoData
	}

	userSet := make(map[int64]bool)
	movieSet := make(map[int64]bool)
	for _, r := range ratings {
		userSet[r.UserID] = true
		movieSet[r.MovieID] = true
	}

	users := make([]int64, 0, len(userSet))
	for u := range userSet {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	movieIDs := make([]int64, 0, len(movieSet))
	for m := range movieSet {
		movieIDs = append(movieIDs, m)
	}
	sort.Slice(movieIDs, func(i, j int) bool { return movieIDs[i] < movieIDs[j] })

	userIndex := make(map[int64]int, len(users))
	for i, u := range users {
		userIndex[u] = i
	}
	movieIndex := make(map[int64]int, len(movieIDs))
	for i, m := range movieIDs {
		movieIndex[m] = i
	}

	vectors := make([]map[int]float64, len(users))
	for i := range vectors {
		vectors[i] = make(map[int]float64)
	}
	for _, r := range ratings {
		vectors[userIndex[r.UserID]][movieIndex[r.MovieID]] = r.Rating
	}

	norms := make([]float64, len(users))
	for i, vec := range vectors {
		var sum float64
		for _, v := range vec {
			sum += v * v
		}
		norms[i] = math.Sqrt(sum)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.users = users
	c.userIndex = userIndex
	c.movieIDs = movieIDs
	c.movieIndex = movieIndex
	c.vectors = vectors
	c.norms = norms
	c.markTrained()
	return nil
}

// cosineSim computes the cosine similarity between two users: dot product
// over co-rated movies divided by the product of full-vector norms.
func (c *CollaborativeModel) cosineSim(a, b int) float64 {
	if c.norms[a] == 0 || c.norms[b] == 0 {
		return 0
	}

	// Iterate the smaller vector
	va, vb := c.vectors[a], c.vectors[b]
	if len(vb) < len(va) {
		va, vb = vb, va
	}
	var dot float64
	for col, ra := range va {
		if rb, ok := vb[col]; ok {
			dot += ra * rb
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (c.norms[a] * c.norms[b])
}

// SimilarUsers returns the k users most similar to the given user, ordered
// by descending similarity with ties broken by ascending user ID. The user
// itself is excluded.
func (c *CollaborativeModel) SimilarUsers(userID int64, k int) ([]models.SimilarUser, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if !c.trained {
		return nil, ErrNotTrained
	}
	idx, ok := c.userIndex[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if k <= 0 {
		return nil, nil
	}

	neighbors := c.rankNeighbors(idx)
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}

	out := make([]models.SimilarUser, len(neighbors))
	for i, n := range neighbors {
		out[i] = models.SimilarUser{UserID: c.users[n.index], Similarity: n.sim}
	}
	return out, nil
}

type neighbor struct {
	index int
	sim   float64
}

// rankNeighbors scores every other user against the given row and returns
// them best first. Users slice is in ascending ID order, so a stable sort
// breaks similarity ties by ascending user ID.
func (c *CollaborativeModel) rankNeighbors(idx int) []neighbor {
	neighbors := make([]neighbor, 0, len(c.users)-1)
	for i := range c.users {
		if i == idx {
			continue
		}
		neighbors = append(neighbors, neighbor{index: i, sim: c.cosineSim(idx, i)})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].sim > neighbors[j].sim
	})
	return neighbors
}

// RecommendForUser returns up to k movies the user has not rated, scored by
// the mean rating across all consulted neighbors. A neighbor that has not
// rated a movie counts as a zero rating, so a movie one of two neighbors
// rated 5 scores 2.5. Ties break on ascending movie ID.
func (c *CollaborativeModel) RecommendForUser(userID int64, k, neighborCount int) ([]scored, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if !c.trained {
		return nil, ErrNotTrained
	}
	idx, ok := c.userIndex[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if k <= 0 {
		return nil, nil
	}
	if neighborCount <= 0 {
		neighborCount = 10
	}

	neighbors := c.rankNeighbors(idx)
	if neighborCount < len(neighbors) {
		neighbors = neighbors[:neighborCount]
	}

	seen := c.vectors[idx]
	sums := make(map[int]float64)
	for _, n := range neighbors {
		for col, rating := range c.vectors[n.index] {
			if _, rated := seen[col]; rated {
				continue
			}
			sums[col] += rating
		}
	}

	candidates := make([]scored, 0, len(sums))
	for col, sum := range sums {
		candidates = append(candidates, scored{
			movieID: c.movieIDs[col],
			score:   sum / float64(len(neighbors)),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].movieID < candidates[j].movieID
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// HasUser reports whether the user is part of the trained model.
func (c *CollaborativeModel) HasUser(userID int64) bool {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	if !c.trained {
		return false
	}
	_, ok := c.userIndex[userID]
	return ok
}

// UserCount returns the number of users in the trained matrix.
func (c *CollaborativeModel) UserCount() int {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return len(c.users)
}
