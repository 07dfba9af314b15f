//go:build darwin || freebsd || openbsd || netbsd

package mounts

import (
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

// fsstatFlags asks the kernel for its cached mount list. MNT_WAIT would
// refresh statfs for every filesystem and hang on an unresponsive NFS server.
const fsstatFlags = unix.MNT_NOWAIT

// readMountTable lists mounts with getfsstat (getvfsstat on NetBSD).
func readMountTable(filter mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
	entries, err := fsstat()
	if err != nil {
		return nil, err
	}
	return applyFilter(entries, filter), nil
}
