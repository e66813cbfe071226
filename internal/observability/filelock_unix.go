//go:build unix

package observability

import (
	"fmt"
	"os"
	"syscall"
)

// lockFile takes an exclusive advisory lock on f so that several splan
// processes (a server and a cron detection run, say) can append to the same
// event log without interleaving lines. The returned function releases it.
func lockFile(f *os.File) (unlock func() error, err error) {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return nil, fmt.Errorf("acquiring event log lock: %w", err)
	}
	return func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
