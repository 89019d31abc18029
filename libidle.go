package libidle

import (
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Environment variables Init reads for its defaults (Options passed to Init
// override them; Default calls Init with none), matching
// original_source/src/libidle.c's getenv-based configuration and the
// os.Getenv-plus-named-constant texture of sourcegraph-zoekt/log/log.go.
const (
	envStateFile = "LIBIDLE_STATEFILE"
	envVerbose   = "LIBIDLE_VERBOSE"

	defaultStateFile = ".libidle_state"
)

// Core is a single instrumented process's worth of quiescence-detection
// state: the Coordinator mutex, the Registry it guards, the State File Gate,
// the table of simulated named semaphores, and the optional diagnostic
// logger. Every exported operation in this package is a method on Core (or a
// package-level function that forwards to Default's).
//
// Grounded on sourcegraph-zoekt/log/log.go's top-level struct bundling its
// dependencies behind Init/a package-level accessor, adapted here to bundle
// the Coordinator/Registry/Gate instead of a logger's sinks.
type Core struct {
	coordinator *recursiveMutex
	registry    *registry
	gate        *gate

	namedSemaphores map[string]*Semaphore

	verbose    bool
	verboseLog *log.Logger
}

// Option configures a Core constructed by Init.
type Option func(*options)

type options struct {
	stateFile string
	verbose   bool
}

// WithStateFile overrides the path of the shared state file a Core publishes
// its idle transitions to. Defaults to the LIBIDLE_STATEFILE environment
// variable, falling back to "./.libidle_state" if that is unset.
func WithStateFile(path string) Option {
	return func(o *options) { o.stateFile = path }
}

// WithVerbose enables or disables the LIBIDLE_VERBOSE diagnostic trace,
// overriding whatever the environment variable says.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// Init constructs a new, independent Core: it allocates the Coordinator
// mutex, opens the state file, registers the
// calling goroutine as the initial thread, and performs the initial busy
// transition, since a freshly started process always starts busy. Most
// programs should use Default instead; Init exists for tests and for
// programs that want more than one independently-gated instrumentation
// domain in the same process.
func Init(opts ...Option) (*Core, error) {
	o := &options{
		stateFile: os.Getenv(envStateFile),
		verbose:   os.Getenv(envVerbose) != "",
	}
	if o.stateFile == "" {
		o.stateFile = defaultStateFile
	}
	for _, opt := range opts {
		opt(o)
	}

	g, err := openGate(o.stateFile)
	if err != nil {
		return nil, errors.Wrap(err, "libidle: init")
	}

	c := &Core{
		coordinator: newRecursiveMutex(),
		registry:    newRegistry(),
		gate:        g,
		verbose:     o.verbose,
		verboseLog:  newVerboseLogger(o.verbose, os.Stderr),
	}

	// The registering goroutine is the initial thread; currentThread's
	// registration path already calls maybeLock, which will perform the
	// startup busy transition since the gate opens unlocked and this
	// thread is active by construction.
	c.currentThread()

	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCore *Core
	defaultErr  error
)

// Default returns the process-wide singleton Core, constructing it on first
// use from the LIBIDLE_STATEFILE and LIBIDLE_VERBOSE environment variables.
// Construction failure (almost always an unwritable state file path) panics,
// since every package-level convenience function (EnableForcedIdle, and the
// Core-returning wrappers other packages are expected to build on) has no
// error return to report it through - matching the original's fatal
// exit(1)-on-init-failure behavior in original_source/src/libidle.c.
func Default() *Core {
	defaultOnce.Do(func() {
		defaultCore, defaultErr = Init()
	})
	if defaultErr != nil {
		panic(errors.Wrap(defaultErr, "libidle: default core"))
	}
	return defaultCore
}

// Close releases the state file. A Core must not be used after Close.
func (c *Core) Close() error {
	c.coordinator.Lock()
	defer c.coordinator.Unlock()
	return c.gate.close()
}

// TimesIdle reports how many times this Core has published an idle
// transition to its state file so far - the in-process mirror of whatever
// count an external harness would read back via ReadStateFile.
func (c *Core) TimesIdle() (uint64, error) {
	c.coordinator.Lock()
	defer c.coordinator.Unlock()
	return c.gate.timesIdle, nil
}
