//go:build !windows

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive retries on EINTR so a signal does not abort the wait
func flockExclusive(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
