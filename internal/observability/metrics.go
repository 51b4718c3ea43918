package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	cacheHits    map[string]int64
	cacheMisses  map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		cacheHits:    make(map[string]int64),
		cacheMisses:  make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordCacheHit counts a cache hit for an analytics operation.
func (m *Metrics) RecordCacheHit(op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits[op]++
}

// RecordCacheMiss counts a cache miss for an analytics operation.
func (m *Metrics) RecordCacheMiss(op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses[op]++
}

// CacheStats returns hit/miss totals per operation.
func (m *Metrics) CacheStats() (hits, misses map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hits = make(map[string]int64, len(m.cacheHits))
	for k, v := range m.cacheHits {
		hits[k] = v
	}
	misses = make(map[string]int64, len(m.cacheMisses))
	for k, v := range m.cacheMisses {
		misses[k] = v
	}
	return hits, misses
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
