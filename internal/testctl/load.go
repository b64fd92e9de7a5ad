package testctl

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

type loadOptions struct {
	Requests    int
	Concurrency int
	Stream      bool
	Prompt      string
}

type loadReport struct {
	ByStatus  map[int]int
	Failed    int // transport-level failures
	Latencies []time.Duration
	Elapsed   time.Duration
}

// runLoad hammers the completion endpoint to make admission behavior visible:
// with more workers than backend slots the surplus shows up as queue wait or,
// past the queue bound, as 429s.
func runLoad(cfg *Config, opts loadOptions) error {
	if opts.Requests <= 0 || opts.Concurrency <= 0 {
		return fmt.Errorf("requests and concurrency must be positive")
	}
	info("==== Load: %d requests, %d workers, stream=%v against %s ====", opts.Requests, opts.Concurrency, opts.Stream, cfg.URL)
	report := executeLoad(cfg.URL, opts)
	printLoadReport(report)
	if report.Failed > 0 {
		return fmt.Errorf("%d request(s) failed at the transport level", report.Failed)
	}
	return nil
}

func executeLoad(baseURL string, opts loadOptions) *loadReport {
	client := &http.Client{Timeout: 10 * time.Minute}
	jobs := make(chan int)
	var mu sync.Mutex
	report := &loadReport{ByStatus: make(map[int]int)}

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				status, latency, err := postCompletion(client, baseURL, opts.Prompt, opts.Stream)
				mu.Lock()
				if err != nil {
					report.Failed++
				} else {
					report.ByStatus[status]++
					report.Latencies = append(report.Latencies, latency)
				}
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < opts.Requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	report.Elapsed = time.Since(start)
	return report
}

func printLoadReport(r *loadReport) {
	info("-- results --")
	statuses := make([]int, 0, len(r.ByStatus))
	for s := range r.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Ints(statuses)
	for _, s := range statuses {
		info("  status %d: %d", s, r.ByStatus[s])
	}
	if r.Failed > 0 {
		errl("  transport failures: %d", r.Failed)
	}
	if len(r.Latencies) > 0 {
		info("  latency p50=%s p95=%s max=%s",
			percentile(r.Latencies, 50).Round(time.Millisecond),
			percentile(r.Latencies, 95).Round(time.Millisecond),
			percentile(r.Latencies, 100).Round(time.Millisecond))
	}
	if r.Elapsed > 0 {
		done := len(r.Latencies)
		info("  %d responses in %s (%.1f req/s)", done, r.Elapsed.Round(time.Millisecond), float64(done)/r.Elapsed.Seconds())
	}
}

// percentile returns the nearest-rank percentile of the collected latencies.
// The input is left unmodified; p is clamped to [0, 100].
func percentile(latencies []time.Duration, p int) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := (len(sorted)*p + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx]
}
