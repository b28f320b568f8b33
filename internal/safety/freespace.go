package safety

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeSpaceFunc returns the bytes available to unprivileged users on
// the volume holding path.
type FreeSpaceFunc func(path string) (uint64, error)

// StatfsFreeSpace reads free space with statfs(2).
func StatfsFreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return st.Bavail * uint64(st.Bsize), nil //nolint:gosec // block size is positive
}
