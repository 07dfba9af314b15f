package mounts

import "github.com/moby/sys/mountinfo"

// NewSystemWithSource builds a System reading from get instead of the host.
func NewSystemWithSource(fsTypes []string, get func(mountinfo.FilterFunc) ([]*mountinfo.Info, error)) *System {
	s := NewSystem(fsTypes)
	s.get = get
	return s
}

// ApplyFilter exposes applyFilter to tests.
func ApplyFilter(entries []*mountinfo.Info, filter mountinfo.FilterFunc) []*mountinfo.Info {
	return applyFilter(entries, filter)
}
