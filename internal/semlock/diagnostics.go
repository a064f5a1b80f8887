// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/mutex/v2"

	"github.com/juju/ftoklock/core/logger"
)

// DebugFileName is the file in the debug directory that long wait dumps
// are appended to.
const DebugFileName = "ftoklock-debug.log"

// debugMutexName names the machine wide mutex that serialises writes to
// the debug log between processes.
const debugMutexName = "ftoklock-debug"

// GoroutineDump returns a LongWaitFunc that appends a description of the
// wait and a dump of every goroutine to DebugFileName in dir.
func GoroutineDump(dir string, logger logger.Logger) LongWaitFunc {
	return func(ctx context.Context, wait LongWait) {
		path, err := dumpDebug(dir, wait)
		if err != nil {
			logger.Warningf(ctx, "long wait for key %#x\nerror writing debug info: %v", uint32(wait.Key), err)
			return
		}
		logger.Warningf(ctx, "long wait for key %#x\ndebug info written to %v", uint32(wait.Key), path)
	}
}

func dumpDebug(dir string, wait LongWait) (string, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    debugMutexName,
		Clock:   clock.WallClock,
		Delay:   10 * time.Millisecond,
		Timeout: time.Second,
	})
	if err == nil {
		defer releaser.Release()
	}
	// Without the mutex the dump may interleave with another process's,
	// which is still better than no dump.

	dumpFile, err := os.OpenFile(filepath.Join(dir, DebugFileName), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer func() { _ = dumpFile.Close() }()

	template := `
semaphore long wait %v
pid: %d
key: %#x
semid: %d
holder-pid: %d
waited: %v

`[1:]
	message := fmt.Sprintf(template,
		time.Now().Format(time.RFC3339),
		os.Getpid(),
		uint32(wait.Key),
		wait.SemID,
		wait.HolderPID,
		wait.Waited,
	)
	if _, err = io.WriteString(dumpFile, message); err != nil {
		return "", errors.Annotate(err, "writing wait to debug log file")
	}
	return dumpFile.Name(), pprof.Lookup("goroutine").WriteTo(dumpFile, 1)
}
