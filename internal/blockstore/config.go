package blockstore

// WriteStrategy is recorded on the version each write creates; it does
// not change write-path semantics (§6) - dedup and ref-counting behave
// identically under either strategy. Neither strategy sets Block.IsCOW
// on the blocks a write allocates.
type WriteStrategy int

const (
	// StrategyCOW is copy-on-write.
	StrategyCOW WriteStrategy = iota

	// StrategyROW is redirect-on-write.
	StrategyROW
)

func (s WriteStrategy) String() string {
	if s == StrategyROW {
		return "row"
	}

	return "cow"
}

// Granularity controls the auto-snapshot threshold multiplier (§4.6).
type Granularity int

const (
	// GranularityMedium uses the base threshold unmodified.
	GranularityMedium Granularity = iota

	// GranularityFine snapshots twice as often as GranularityMedium.
	GranularityFine

	// GranularityCoarse snapshots half as often as GranularityMedium.
	GranularityCoarse
)

// threshold returns the operation count, derived from base, after which
// should_create_snapshot (§4.6) reports true for this granularity.
func (g Granularity) threshold(base int) int {
	switch g {
	case GranularityFine:
		return base / 2
	case GranularityCoarse:
		return base * 2
	case GranularityMedium:
		return base
	default:
		return base
	}
}

// Options configures an [Engine] at creation time (§6).
type Options struct {
	// TotalBlocks is the fixed capacity of the block pool.
	TotalBlocks int

	// TotalInodes is the fixed capacity of the inode table.
	TotalInodes int

	// DiskPath is an optional path for saved engine state. The engine
	// itself does not read it; saving and loading go through
	// [Engine.Export], [Engine.Import] and the persist package.
	DiskPath string

	// DefaultStrategy is the write strategy recorded on newly created
	// versions absent an explicit choice.
	DefaultStrategy WriteStrategy

	// DefaultGranularity is the auto-snapshot threshold multiplier.
	DefaultGranularity Granularity

	// AutoSnapshotEnabled gates [Engine.ShouldCreateSnapshot], which
	// always reports false when it is off. The engine never creates a
	// snapshot on its own; WriteFile only counts operations.
	AutoSnapshotEnabled bool

	// AutoSnapshotThreshold is the base operation count multiplied by
	// DefaultGranularity to decide when an auto-snapshot is due.
	AutoSnapshotThreshold int

	// Logger receives structured operation logs. A nil Logger falls
	// back to slog.Default().
	Logger Logger
}

// withDefaults fills in defaults for fields Options leaves zero-valued
// (AutoSnapshotThreshold becomes 100); applied by [New].
func (o Options) withDefaults() Options {
	if o.AutoSnapshotThreshold == 0 {
		o.AutoSnapshotThreshold = 100
	}

	return o
}
