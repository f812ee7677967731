package respkv

import (
	"sync/atomic"
)

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Keys, Exists, Gets, Sets, Deletes, Errors, Connects
//   - Counter: GetHits (derive hit rate as GetHits/Gets)
type ClientStats struct {
	Keys     uint64 // Total Keys operations
	Exists   uint64 // Total Exists operations
	Gets     uint64 // Total GetRaw/GetValue operations that reached the server
	GetHits  uint64 // Gets that found the key
	Sets     uint64 // Total SetRaw/SetValue operations that reached the server
	Deletes  uint64 // Total Delete operations that reached the server
	Errors   uint64 // Total errors across all operations
	Connects uint64 // Successful dials
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordKeys() {
	atomic.AddUint64(&c.stats.Keys, 1)
}

func (c *clientStatsCollector) recordExists() {
	atomic.AddUint64(&c.stats.Exists, 1)
}

func (c *clientStatsCollector) recordGet(found bool) {
	atomic.AddUint64(&c.stats.Gets, 1)
	if found {
		atomic.AddUint64(&c.stats.GetHits, 1)
	}
}

func (c *clientStatsCollector) recordSet() {
	atomic.AddUint64(&c.stats.Sets, 1)
}

func (c *clientStatsCollector) recordDelete() {
	atomic.AddUint64(&c.stats.Deletes, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) recordConnect() {
	atomic.AddUint64(&c.stats.Connects, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Keys:     atomic.LoadUint64(&c.stats.Keys),
		Exists:   atomic.LoadUint64(&c.stats.Exists),
		Gets:     atomic.LoadUint64(&c.stats.Gets),
		GetHits:  atomic.LoadUint64(&c.stats.GetHits),
		Sets:     atomic.LoadUint64(&c.stats.Sets),
		Deletes:  atomic.LoadUint64(&c.stats.Deletes),
		Errors:   atomic.LoadUint64(&c.stats.Errors),
		Connects: atomic.LoadUint64(&c.stats.Connects),
	}
}
