package heap

import "log"

// Config holds tunable parameters for a Heap, set via the functional
// Option pattern.
type Config struct {
	// InitialBlockSize is the payload size of the heap's own first block
	// and of every bump block a Mutator installs (in NewMutator and on
	// the allocation slow path). Compact regions take their block size
	// from NewCompactRegion's argument instead.
	InitialBlockSize uintptr

	// StackRootBatchCapacity bounds how many stack-root batches a
	// mutator may have open simultaneously before WithStackRoots
	// panics; guards against runaway nesting in host code.
	StackRootBatchCapacity int

	// Logger receives diagnostic output (mutator registration and
	// unregistration, safe-point transitions). Defaults to
	// log.Default() when nil.
	Logger *log.Logger

	// Observer receives collection lifecycle callbacks.
	Observer CompactionObserver
}

// Option mutates a Config.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		InitialBlockSize:       DefaultBlockSize,
		StackRootBatchCapacity: 256,
		Logger:                 log.Default(),
		Observer:               noopObserver{},
	}
}

// WithInitialBlockSize overrides the payload size of freshly created blocks.
func WithInitialBlockSize(size uintptr) Option {
	return func(c *Config) { c.InitialBlockSize = size }
}

// WithStackRootBatchCapacity overrides the per-mutator batch-stack depth limit.
func WithStackRootBatchCapacity(n int) Option {
	return func(c *Config) { c.StackRootBatchCapacity = n }
}

// WithLogger overrides the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithObserver registers a CompactionObserver.
func WithObserver(o CompactionObserver) Option {
	return func(c *Config) { c.Observer = o }
}

// CompactionObserver receives lifecycle notifications around a
// collection cycle.
type CompactionObserver interface {
	OnCycleStart(stats HeapStats)
	OnCycleEnd(stats HeapStats)
}

type noopObserver struct{}

func (noopObserver) OnCycleStart(HeapStats) {}
func (noopObserver) OnCycleEnd(HeapStats)   {}

// LoggingObserver logs cycle boundaries through its own Logger, or
// through log.Default() when Logger is nil; it does not use the heap's
// Config.Logger.
type LoggingObserver struct {
	Logger *log.Logger
}

func (o LoggingObserver) OnCycleStart(stats HeapStats) {
	o.logger().Printf("heap: collection cycle starting (%+v)", stats)
}

func (o LoggingObserver) OnCycleEnd(stats HeapStats) {
	o.logger().Printf("heap: collection cycle finished (%+v)", stats)
}

func (o LoggingObserver) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}
