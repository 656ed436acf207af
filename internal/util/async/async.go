// Package async provides helpers for running independent tasks concurrently.
//
// Readiness probing uses it to poll targets in parallel: each task owns its
// own result record, so no mutable state is shared across goroutines.
package async

import "context"

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunAll executes every task concurrently and waits for all of them to finish.
// Unlike a fail-fast group, tasks are never cancelled by a sibling's failure;
// each outcome is collected and the errors are returned keyed by task name.
// A nil map means every task succeeded.
func RunAll(ctx context.Context, tasks []Task) map[string]error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		name string
		err  error
	}

	resultChan := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			resultChan <- result{name: task.Name, err: task.Func(ctx)}
		}()
	}

	var failures map[string]error
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[res.name] = res.err
		}
	}

	return failures
}
