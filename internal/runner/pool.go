package runner

import "sync"

type Job func() error

// RunPool executes jobs with at most maxWorkers concurrently. onDone, when
// set, is called once per finished job with its index and error; calls are
// serialized. Returns all errors.
func RunPool(maxWorkers int, jobs []Job, onDone func(i int, err error)) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, maxWorkers)

	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j Job) {
			defer wg.Done()
			defer func() { <-sem }()
			err := j()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if onDone != nil {
				onDone(i, err)
			}
		}(i, job)
	}
	wg.Wait()
	return errs
}
