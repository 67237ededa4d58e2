//go:build windows

package file

import (
	"os"

	"golang.org/x/sys/windows"
)

// The whole file is locked as a single byte range starting at offset 0
const lockRangeLow, lockRangeHigh = 1, 0

func flockExclusive(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, lockRangeLow, lockRangeHigh, ol)
}

func flockUnlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockRangeLow, lockRangeHigh, ol)
}
