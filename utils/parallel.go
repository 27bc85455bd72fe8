package utils

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ForEachParallel runs work once per member in [0, size), each on its own goroutine, and blocks
// until all of them have returned. The errors of every member, including recovered panics, are
// combined in member order. Members must not share mutable state.
func ForEachParallel(size int, work func(member int) error) error {
	errs := make([]error, size)
	var wait sync.WaitGroup
	wait.Add(size)
	for member := 0; member < size; member++ {
		memberCopy := member
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[memberCopy] = errors.Errorf("member %d panicked: %v", memberCopy, r)
				}
			}()
			errs[memberCopy] = work(memberCopy)
		})
	}
	wait.Wait()
	return multierr.Combine(errs...)
}
