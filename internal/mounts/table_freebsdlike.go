//go:build darwin || freebsd

package mounts

import (
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

func fsstat() ([]*mountinfo.Info, error) {
	count, err := unix.Getfsstat(nil, fsstatFlags)
	if err != nil {
		return nil, err
	}

	buf := make([]unix.Statfs_t, count)
	n, err := unix.Getfsstat(buf, fsstatFlags)
	if err != nil {
		return nil, err
	}

	out := make([]*mountinfo.Info, 0, n)
	for i := range buf[:n] {
		out = append(out, &mountinfo.Info{
			Mountpoint: unix.ByteSliceToString(buf[i].Mntonname[:]),
			FSType:     unix.ByteSliceToString(buf[i].Fstypename[:]),
			Source:     unix.ByteSliceToString(buf[i].Mntfromname[:]),
		})
	}
	return out, nil
}
