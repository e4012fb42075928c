// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache memoizes LLM round trips by request fingerprint, so that
// re-running a translation (or retrying after a crash) never re-pays for
// a request whose answer is already known.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/crust-lang/crust/internal/log"
)

// Message is one chat turn, independent of any particular model SDK's
// message type so the cache key doesn't depend on llm's import graph.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Key fingerprints a request: the exact message sequence plus the stop
// sequence, if any. Two requests with the same Key are expected (though
// not guaranteed, since the model is nondeterministic) to be
// interchangeable for caching purposes.
type Key struct {
	Model   string    `json:"model"`
	Stop    *string   `json:"stop,omitempty"`
	History []Message `json:"history"`
}

// Fingerprint returns a stable, content-addressed identifier for k.
func (k Key) Fingerprint() string {
	b, _ := json.Marshal(k)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Value is what gets stored against a Key: the model's answer plus enough
// accounting metadata to reconstruct token/time counters on a cache hit.
type Value struct {
	Content        string        `json:"content"`
	FinishReason   string        `json:"finish_reason"`
	RequestTokens  int           `json:"request_tokens"`
	ResponseTokens int           `json:"response_tokens"`
	Elapsed        time.Duration `json:"elapsed"`
	RunID          string        `json:"run_id"`
	CachedAt       time.Time     `json:"cached_at"`
}

// Backend is the persistent, keyed blob store the cache sits in front of.
// It is an external collaborator: this package ships an in-memory default,
// but any durable store (on disk, in a KV service) can implement this.
type Backend interface {
	Get(ctx context.Context, fingerprint string) (Value, bool, error)
	Put(ctx context.Context, fingerprint string, v Value) error
}

// memoryBackend is the default Backend: a process-lifetime map. Good
// enough for a single `crust translate` invocation; callers that want
// cross-run memoization supply their own Backend.
type memoryBackend struct {
	mu sync.RWMutex
	m  map[string]Value
}

// NewMemoryBackend returns a Backend that lives only as long as the
// process.
func NewMemoryBackend() Backend {
	return &memoryBackend{m: make(map[string]Value)}
}

func (b *memoryBackend) Get(_ context.Context, fp string) (Value, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.m[fp]
	return v, ok, nil
}

func (b *memoryBackend) Put(_ context.Context, fp string, v Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[fp] = v
	return nil
}

// Cache is a Backend plus at-most-once collapsing of concurrent misses on
// the same fingerprint: if two callers ask for the same Key while the
// first request is still in flight, the second blocks on the first's
// result instead of issuing a duplicate round trip.
type Cache struct {
	backend Backend
	group   singleflight.Group
	runID   string

	mu      sync.Mutex
	hits    int
	misses  int
}

// New wraps backend with singleflight dedupe. A fresh run id is minted for
// tagging Values written by this Cache, so log lines and stored entries
// can be correlated back to a particular `crust translate` invocation.
func New(backend Backend) *Cache {
	return &Cache{backend: backend, runID: uuid.NewString()}
}

// GetOrCompute returns the cached Value for key if present; otherwise it
// calls compute exactly once per distinct concurrent miss (collapsing
// duplicate in-flight requests) and stores the result before returning it.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute func(ctx context.Context) (Value, error)) (Value, error) {
	fp := key.Fingerprint()

	if v, ok, err := c.backend.Get(ctx, fp); err != nil {
		return Value{}, err
	} else if ok {
		c.recordHit()
		log.WithFields(map[string]interface{}{"fingerprint": fp[:12], "run": c.runID}).Debug("cache hit")
		return v, nil
	}

	result, err, _ := c.group.Do(fp, func() (interface{}, error) {
		// Re-check: another goroutine may have populated the backend
		// between our Get above and acquiring the singleflight slot.
		if v, ok, err := c.backend.Get(ctx, fp); err == nil && ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return Value{}, err
		}
		v.RunID = c.runID
		v.CachedAt = nowFunc()
		if err := c.backend.Put(ctx, fp, v); err != nil {
			return Value{}, err
		}
		return v, nil
	})
	if err != nil {
		return Value{}, err
	}
	c.recordMiss()
	return result.(Value), nil
}

func (c *Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// Stats reports cumulative hit/miss counts for observability.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// nowFunc is overridable in tests so Value.CachedAt is reproducible.
var nowFunc = time.Now
