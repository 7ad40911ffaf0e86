package models

import "time"

// CacheEntry stores a routed response in one cache tier.
type CacheEntry struct {
	Response   QueryResponse `json:"response"`
	CreatedAt  time.Time     `json:"created_at"`
	HitCount   int64         `json:"hit_count"`
	PatternKey string        `json:"pattern_key"`
	Normalized string        `json:"normalized"`
}

// CacheStats reports tier sizes and hit counters.
type CacheStats struct {
	L1Size       int   `json:"l1_size"`
	L2Size       int   `json:"l2_size"`
	L3Size       int   `json:"l3_size"`
	PatternCount int   `json:"pattern_count"`
	L1Hits       int64 `json:"l1_hits"`
	L2Hits       int64 `json:"l2_hits"`
	L3Hits       int64 `json:"l3_hits"`
	Misses       int64 `json:"misses"`
	Evictions    int64 `json:"evictions"`
}

// HitRate returns the share of lookups answered by any tier, as a percentage.
func (s CacheStats) HitRate() float64 {
	hits := s.L1Hits + s.L2Hits + s.L3Hits
	total := hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
