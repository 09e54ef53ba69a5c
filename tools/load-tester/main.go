package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	targetURL := flag.String("url", "http://localhost:7777/api", "Target URL of the insight route")
	apiKey := flag.String("api-key", "", "API Key for authentication (empty sends none)")
	visitors := flag.String("visitors", "1", "Comma-separated fullVisitorId values to cycle through")
	concurrency := flag.Int("c", 4, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 10, "Requests per second limit")
	timeout := flag.Duration("timeout", 60*time.Second, "Per-request client timeout")
	flag.Parse()

	ids := strings.Split(*visitors, ",")
	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Visitors: %d", *concurrency, *duration, *rps, len(ids))

	var wg sync.WaitGroup
	var successCount, errorCount, next atomic.Int64
	statusCounts := sync.Map{}
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), *concurrency)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: *timeout,
			}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				id := strings.TrimSpace(ids[int(next.Add(1)-1)%len(ids)])
				target := *targetURL + "?" + url.Values{"fullVisitorId": {id}}.Encode()

				req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
				if err != nil {
					continue // Should not happen
				}
				req.Header.Set("X-Request-ID", uuid.NewString())
				if *apiKey != "" {
					req.Header.Set("X-API-Key", *apiKey)
				}

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}

				counter, _ := statusCounts.LoadOrStore(resp.StatusCode, new(atomic.Int64))
				counter.(*atomic.Int64).Add(1)
				if resp.StatusCode == http.StatusOK {
					successCount.Add(1)
				} else {
					errorCount.Add(1)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	statusCounts.Range(func(k, v any) bool {
		log.Printf("  status %d: %d", k, v.(*atomic.Int64).Load())
		return true
	})
	log.Printf("Actual RPS: %.2f", actualRPS)
}
