package utils

import (
	"sync"
)

// ParallelMap 使用最多 workers 个 goroutine 并发执行 fn，结果顺序与输入一致。
// 输入为空返回空切片；只有一个元素或 workers <= 1 时直接在当前 goroutine 执行。
func ParallelMap[T any, R any](input []T, workers int, fn func(T) R) []R {
	n := len(input)
	results := make([]R, n)
	if n == 0 {
		return results
	}

	if n == 1 || workers <= 1 {
		for i, v := range input {
			results[i] = fn(v)
		}
		return results
	}

	if workers > n {
		workers = n
	}

	// 每个 worker 领取下标，直接写入结果对应位置，无需额外排序
	indexCh := make(chan int, n)
	for i := 0; i < n; i++ {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexCh {
				results[i] = fn(input[i])
			}
		}()
	}
	wg.Wait()

	return results
}
