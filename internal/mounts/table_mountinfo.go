//go:build !darwin && !freebsd && !openbsd && !netbsd

package mounts

import "github.com/moby/sys/mountinfo"

// readMountTable parses /proc/self/mountinfo on Linux.
func readMountTable(filter mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
	return mountinfo.GetMounts(filter)
}
