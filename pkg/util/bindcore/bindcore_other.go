// +build !linux

package bindcore

// BindCurrentThread is a no-op on platforms without sched_setaffinity.
func BindCurrentThread(cores []int) error {
	return nil
}
