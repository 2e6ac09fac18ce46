// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import "time"

// Config contains tuning parameters for the recommendation engine.
type Config struct {
	// TopK is the default number of recommendations returned.
	TopK int

	// Neighbors is the number of similar users consulted by the
	// collaborative model.
	Neighbors int

	// MinRatings is the minimum number of valid ratings required before
	// the collaborative model trains.
	MinRatings int

	// MaxFeatures caps the TF-IDF vocabulary size. Zero means unlimited.
	MaxFeatures int

	// CacheTTL is how long recommendation responses stay cached.
	CacheTTL time.Duration

	// CacheSize is the maximum number of cached responses. Zero disables
	// the cache.
	CacheSize int
}

// DefaultConfig returns engine defaults suitable for the MovieLens
// small datasets.
func DefaultConfig() Config {
	return Config{
		TopK:        10,
		Neighbors:   10,
		MinRatings:  1,
		MaxFeatures: 5000,
		CacheTTL:    time.Hour,
		CacheSize:   1000,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.Neighbors <= 0 {
		c.Neighbors = def.Neighbors
	}
	if c.MinRatings <= 0 {
		c.MinRatings = def.MinRatings
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	return c
}
