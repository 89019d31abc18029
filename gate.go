package libidle

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// gate owns the shared state file, the exclusive advisory lock guarding
// it, and the monotonically increasing idle counter. The Coordinator calls
// busyTransition and idleTransition with its own mutex held; the blocking
// flock(2) call inside busyTransition is the one place in this module a
// wrapped call is allowed to stall indefinitely, because that stall is the
// whole point: a harness holding the lock pauses the program at exactly the
// instant it would otherwise go busy.
//
// Grounded on original_source/src/libidle.c's libidle_lock/libidle_unlock
// (flock + lseek/ftruncate/dprintf). golang.org/x/sys/unix.Flock is used
// because file locking has no portable equivalent in the os package, the
// same reason joeycumines-go-utilpkg/eventloop reaches for
// golang.org/x/sys/unix throughout its poller and wakeup-pipe code.
type gate struct {
	file      *os.File
	locked    bool
	timesIdle uint64
}

func openGate(path string) (*gate, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "libidle: open state file %q", path)
	}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "libidle: truncate state file %q", path)
	}
	return &gate{file: f}, nil
}

// busyTransition acquires the exclusive advisory lock on the state file.
// This call may block for as long as an external harness holds the lock;
// that is intentional.
func (g *gate) busyTransition() error {
	if err := unix.Flock(int(g.file.Fd()), unix.LOCK_EX); err != nil {
		return errors.Wrap(err, "libidle: acquire state file lock")
	}
	g.locked = true
	return nil
}

// idleTransition performs the observable idle publication: rewind and
// truncate the file, write times_idle+1, bump the counter, then release the
// lock. The counter is published strictly inside the locked region so any
// observer that subsequently acquires the lock sees a consistent value.
func (g *gate) idleTransition() error {
	next := g.timesIdle + 1
	if _, err := g.file.Seek(0, 0); err != nil {
		return errors.Wrap(err, "libidle: rewind state file")
	}
	if err := g.file.Truncate(0); err != nil {
		return errors.Wrap(err, "libidle: truncate state file")
	}
	if _, err := fmt.Fprintf(g.file, "%d\n", next); err != nil {
		return errors.Wrap(err, "libidle: write state file")
	}
	if err := g.file.Sync(); err != nil {
		return errors.Wrap(err, "libidle: sync state file")
	}
	g.timesIdle = next
	if err := unix.Flock(int(g.file.Fd()), unix.LOCK_UN); err != nil {
		return errors.Wrap(err, "libidle: release state file lock")
	}
	g.locked = false
	return nil
}

func (g *gate) close() error {
	return g.file.Close()
}

// ReadStateFile performs the read half of the external-driver protocol:
// acquire the exclusive lock (blocking until the program goes idle), read
// the published counter, release the lock. It is exported as a
// convenience for test harnesses driving a libidle-instrumented program
// from a separate goroutine or process.
func ReadStateFile(path string) (uint64, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return 0, errors.Wrapf(err, "libidle: open state file %q", path)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return 0, errors.Wrap(err, "libidle: acquire state file lock")
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	buf := make([]byte, 64)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF && n == 0 {
		return 0, errors.Wrap(err, "libidle: read state file")
	}
	text := strings.TrimSpace(string(buf[:n]))
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "libidle: parse state file contents %q", text)
	}
	return v, nil
}
