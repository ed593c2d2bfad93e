package bindcore

import (
	"golang.org/x/sys/unix"
)

// BindCurrentThread pins the calling OS thread to the given cores. The caller
// must hold the thread via runtime.LockOSThread for the pin to be meaningful.
func BindCurrentThread(cores []int) error {
	if len(cores) == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}
