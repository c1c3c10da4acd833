package util

import "sync"

// Concurrently helps with factoring out the logic to run a particular function with multiple goroutines.
// It will be run once per concurrency level. The function output is expected to be sent to a channel as part of its implementation. This will block until all function invocations terminate, and returns the first error any of them returned.
func Concurrently(concurrency uint, thunk func() error) error {
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error
	wg.Add(int(concurrency))
	for i := uint(0); i < concurrency; i++ {
		go func() {
			defer wg.Done()
			if err := thunk(); err != nil {
				once.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()
	return firstErr
}
