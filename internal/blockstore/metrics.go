package blockstore

// Metrics holds counters and running averages over engine operations
// (§2, "Metrics"). All fields are snapshotted by value on
// [Engine.GetMetrics]; callers cannot mutate engine state through the
// returned struct.
type Metrics struct {
	BlocksAllocated    int
	BlocksFreed        int
	BlocksDeduplicated int
	BytesSavedDedup    int64
	BytesWritten       int64
	BytesRead          int64
	FilesCreated       int
	FilesDeleted       int
	VersionsCreated    int
	VersionRollbacks   int
	SnapshotsCreated   int
	SnapshotRollbacks  int
	WritesTotal        int
	ReadsTotal         int

	// writeLatencySumNanos and writeLatencyCount back AverageWriteNanos,
	// a running average maintained incrementally rather than by storing
	// every sample (§2: "running averages").
	writeLatencySumNanos int64
	writeLatencyCount    int64
}

// AverageWriteNanos returns the running average write latency in
// nanoseconds, or 0 if no writes have been observed.
func (m Metrics) AverageWriteNanos() int64 {
	if m.writeLatencyCount == 0 {
		return 0
	}

	return m.writeLatencySumNanos / m.writeLatencyCount
}

// observeWrite counts one write and adds its latency to the running
// average behind AverageWriteNanos.
func (m *Metrics) observeWrite(latencyNanos int64) {
	m.WritesTotal++
	m.writeLatencySumNanos += latencyNanos
	m.writeLatencyCount++
}

// PoolOccupancy reports block pool usage alongside the dedup ratio
// (bytes saved as a fraction of bytes written plus bytes saved; block
// counts are read from the pool, not kept on Metrics), matching the
// occupancy/dedup-ratio summary the original C CLI printed.
type PoolOccupancy struct {
	UsedBlocks  int
	FreeBlocks  int
	TotalBlocks int
	DedupRatio  float64
}

func computeDedupRatio(m Metrics) float64 {
	if m.BytesWritten == 0 {
		return 0
	}

	return float64(m.BytesSavedDedup) / float64(m.BytesWritten+m.BytesSavedDedup)
}
