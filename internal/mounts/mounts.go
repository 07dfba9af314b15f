// Package mounts enumerates the mountpoints currently attached to the host.
package mounts

import (
	"errors"
	"fmt"
	"sort"

	"github.com/moby/sys/mountinfo"
)

// ErrEnumerate wraps every failure to list mountpoints.
var ErrEnumerate = errors.New("unable to enumerate mountpoints")

// Enumerator produces the current set of mount paths.
// It must be cheap to call repeatedly.
type Enumerator interface {
	List() ([]string, error)
}

// System lists mountpoints from the operating system's mount table:
// /proc/self/mountinfo on Linux, getfsstat(MNT_NOWAIT) on macOS and the
// BSDs. Neither source stats the mounted filesystems, so a hung mount
// cannot block enumeration.
type System struct {
	fsTypes []string
	get     func(mountinfo.FilterFunc) ([]*mountinfo.Info, error)
}

// NewSystem creates an enumerator for the host mount table. When fsTypes
// is non-empty only mounts of those filesystem types are reported.
func NewSystem(fsTypes []string) *System {
	return &System{
		fsTypes: append([]string(nil), fsTypes...),
		get:     readMountTable,
	}
}

// List returns the sorted, de-duplicated mountpoints.
func (s *System) List() ([]string, error) {
	var filter mountinfo.FilterFunc
	if len(s.fsTypes) > 0 {
		filter = mountinfo.FSTypeFilter(s.fsTypes...)
	}

	infos, err := s.get(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, info.Mountpoint)
	}
	return Unique(paths), nil
}

// Static reports a fixed list of mountpoints.
type Static []string

// List returns the configured paths, de-duplicated.
func (s Static) List() ([]string, error) {
	return Unique(s), nil
}

// Unique returns the sorted set of non-empty paths. Stacked mounts on the
// same path appear once.
func Unique(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// applyFilter keeps the entries filter accepts, honoring its stop signal the
// way mountinfo.GetMounts does.
func applyFilter(entries []*mountinfo.Info, filter mountinfo.FilterFunc) []*mountinfo.Info {
	if filter == nil {
		return entries
	}
	out := make([]*mountinfo.Info, 0, len(entries))
	for _, info := range entries {
		skip, stop := filter(info)
		if !skip {
			out = append(out, info)
		}
		if stop {
			break
		}
	}
	return out
}
