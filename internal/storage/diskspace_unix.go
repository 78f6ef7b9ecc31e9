//go:build linux || darwin || freebsd

package storage

import (
	"github.com/rotisserie/eris"
	"golang.org/x/sys/unix"
)

// freeBytes returns the bytes available to unprivileged users on dir's filesystem.
func freeBytes(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, eris.Wrapf(err, "statfs %s", dir)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
