// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package recommend

import (
	"sync"
	"time"
)

// baseModel provides the shared lock discipline and training bookkeeping
// for the content and collaborative models.
type baseModel struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

func newBaseModel(name string) baseModel {
	return baseModel{name: name}
}

// Name returns the model identifier.
func (b *baseModel) Name() string {
	return b.name
}

// IsTrained returns whether the model has been trained.
func (b *baseModel) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the model version.
func (b *baseModel) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// markTrained updates the trained state.
// Must be called while holding the training lock.
func (b *baseModel) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = time.Now()
}

func (b *baseModel) acquireTrainLock()   { b.mu.Lock() }
func (b *baseModel) releaseTrainLock()   { b.mu.Unlock() }
func (b *baseModel) acquirePredictLock() { b.mu.RLock() }
func (b *baseModel) releasePredictLock() { b.mu.RUnlock() }
