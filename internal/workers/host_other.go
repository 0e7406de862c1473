//go:build !linux

package workers

import "runtime"

func osDescription() string {
	return runtime.GOOS
}

func totalMemory() uint64 {
	return 0
}
