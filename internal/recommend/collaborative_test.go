// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cinematch/cinematch/internal/models"
)

func ratingsFixture() []models.Rating {
	return []models.Rating{
		{UserID: 1, MovieID: 10, Rating: 5},
		{UserID: 1, MovieID: 20, Rating: 3},
		{UserID: 2, MovieID: 10, Rating: 5},
		{UserID: 2, MovieID: 20, Rating: 3},
		{UserID: 2, MovieID: 30, Rating: 4},
		{UserID: 3, MovieID: 30, Rating: 5},
		{UserID: 3, MovieID: 40, Rating: 4},
	}
}

func trainedCF(t *testing.T, ratings []models.Rating) *CollaborativeModel {
	t.Helper()
	c := NewCollaborativeModel(1)
	if err := c.Train(context.Background(), ratings); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	return c
}

func TestSimilarUsersCosine(t *testing.T) {
	c := trainedCF(t, ratingsFixture())

	sims, err := c.SimilarUsers(1, 5)
	if err != nil {
		t.Fatalf("SimilarUsers() error: %v", err)
	}
	if len(sims) != 2 {
		t.Fatalf("SimilarUsers() returned %d users, want 2", len(sims))
	}

	// sim(1,2) = (25+9) / (sqrt(34) * sqrt(50))
	want := 34 / (math.Sqrt(34) * math.Sqrt(50))
	if sims[0].UserID != 2 || math.Abs(sims[0].Similarity-want) > 1e-9 {
		t.Errorf("top neighbor = user %d sim %g, want user 2 sim %g",
			sims[0].UserID, sims[0].Similarity, want)
	}
	// User 3 shares no movies with user 1
	if sims[1].UserID != 3 || sims[1].Similarity != 0 {
		t.Errorf("second neighbor = user %d sim %g, want user 3 sim 0",
			sims[1].UserID, sims[1].Similarity)
	}
}

func TestSimilarUsersExcludesSelf(t *testing.T) {
	c := trainedCF(t, ratingsFixture())
	sims, err := c.SimilarUsers(2, 10)
	if err != nil {
		t.Fatalf("SimilarUsers() error: %v", err)
	}
	for _, s := range sims {
		if s.UserID == 2 {
			t.Errorf("result contains the query user itself")
		}
	}
}

func TestRecommendForUserZeroSimilarityNeighborContributes(t *testing.T) {
	c := trainedCF(t, ratingsFixture())

	// User 3 shares no movies with user 1 yet is still one of the two
	// consulted neighbors: its ratings enter the mean and its presence in
	// the denominator dilutes movies it never rated.
	recs, err := c.RecommendForUser(1, 5, 2)
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("RecommendForUser() returned %d movies, want 2: %v", len(recs), recs)
	}
	if recs[0].movieID != 30 || math.Abs(recs[0].score-4.5) > 1e-9 {
		t.Errorf("top recommendation = movie %d score %g, want movie 30 score 4.5",
			recs[0].movieID, recs[0].score)
	}
	if recs[1].movieID != 40 || math.Abs(recs[1].score-2) > 1e-9 {
		t.Errorf("second recommendation = movie %d score %g, want movie 40 score 2",
			recs[1].movieID, recs[1].score)
	}
}

func TestRecommendForUserMeanAggregation(t *testing.T) {
	ratings := append(ratingsFixture(),
		models.Rating{UserID: 4, MovieID: 10, Rating: 4},
		models.Rating{UserID: 4, MovieID: 30, Rating: 2},
	)
	c := trainedCF(t, ratings)

	// Three neighbors are consulted. Movie 30 is rated 4, 5 and 2 by
	// them, so it scores 11/3; movie 40 is rated 4 by one, so 4/3.
	recs, err := c.RecommendForUser(1, 5, 3)
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("RecommendForUser() returned %d movies, want 2: %v", len(recs), recs)
	}
	if recs[0].movieID != 30 || math.Abs(recs[0].score-11.0/3) > 1e-9 {
		t.Errorf("recommendation = movie %d score %g, want movie 30 score 11/3",
			recs[0].movieID, recs[0].score)
	}
	if recs[1].movieID != 40 || math.Abs(recs[1].score-4.0/3) > 1e-9 {
		t.Errorf("recommendation = movie %d score %g, want movie 40 score 4/3",
			recs[1].movieID, recs[1].score)
	}
}

func TestRecommendForUserSparseCoverageRanksLower(t *testing.T) {
	// Movie 20 is rated 4 by both neighbors while movie 10 is rated 5 by
	// only one of them; the mean over both neighbors puts movie 10 at
	// 2.5, below movie 20 at 4.
	ratings := []models.Rating{
		{UserID: 1, MovieID: 1, Rating: 5},
		{UserID: 2, MovieID: 1, Rating: 5},
		{UserID: 2, MovieID: 10, Rating: 5},
		{UserID: 2, MovieID: 20, Rating: 4},
		{UserID: 3, MovieID: 1, Rating: 4},
		{UserID: 3, MovieID: 20, Rating: 4},
	}
	c := trainedCF(t, ratings)

	recs, err := c.RecommendForUser(1, 5, 2)
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("RecommendForUser() returned %d movies, want 2: %v", len(recs), recs)
	}
	if recs[0].movieID != 20 || math.Abs(recs[0].score-4) > 1e-9 {
		t.Errorf("top recommendation = movie %d score %g, want movie 20 score 4",
			recs[0].movieID, recs[0].score)
	}
	if recs[1].movieID != 10 || math.Abs(recs[1].score-2.5) > 1e-9 {
		t.Errorf("second recommendation = movie %d score %g, want movie 10 score 2.5",
			recs[1].movieID, recs[1].score)
	}
}

func TestRecommendForUserExcludesSeen(t *testing.T) {
	c := trainedCF(t, ratingsFixture())
	recs, err := c.RecommendForUser(2, 10, 5)
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	for _, r := range recs {
		if r.movieID == 10 || r.movieID == 20 || r.movieID == 30 {
			t.Errorf("movie %d already rated by user 2", r.movieID)
		}
	}
}

func TestRecommendForUserTieBreak(t *testing.T) {
	// Both candidate movies end up with the same mean score; ascending
	// movie ID must break the tie.
	ratings := []models.Rating{
		{UserID: 1, MovieID: 10, Rating: 5},
		{UserID: 2, MovieID: 10, Rating: 5},
		{UserID: 2, MovieID: 40, Rating: 4},
		{UserID: 2, MovieID: 20, Rating: 4},
	}
	c := trainedCF(t, ratings)

	recs, err := c.RecommendForUser(1, 5, 1)
	if err != nil {
		t.Fatalf("RecommendForUser() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("RecommendForUser() returned %d movies, want 2", len(recs))
	}
	if recs[0].movieID != 20 || recs[1].movieID != 40 {
		t.Errorf("tie order = [%d %d], want [20 40]", recs[0].movieID, recs[1].movieID)
	}
}

func TestCollaborativeUnknownUser(t *testing.T) {
	c := trainedCF(t, ratingsFixture())
	if _, err := c.RecommendForUser(99, 5, 5); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("RecommendForUser(unknown) error = %v, want ErrUserNotFound", err)
	}
	if _, err := c.SimilarUsers(99, 5); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SimilarUsers(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestCollaborativeNotTrained(t *testing.T) {
	c := NewCollaborativeModel(1)
	if _, err := c.RecommendForUser(1, 5, 5); !errors.Is(err, ErrNotTrained) {
		t.Errorf("RecommendForUser() before training error = %v, want ErrNotTrained", err)
	}
}

func TestCollaborativeMinRatings(t *testing.T) {
	c := NewCollaborativeModel(5)
	err := c.Train(context.Background(), ratingsFixture()[:2])
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Train(too few ratings) error = %v, want ErrNoData", err)
	}
}
