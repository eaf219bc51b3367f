package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	targetURL := flag.String("url", "http://localhost:8080/api/tenant", "Target URL; the Host header is overridden per request")
	hosts := flag.Int("hosts", 50, "Number of distinct hostnames to spread requests over")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	flag.Parse()

	// Fresh hostnames every run so the first requests race to create tenants.
	runID := uuid.NewString()[:8]
	hostnames := make([]string, *hosts)
	for i := range hostnames {
		hostnames[i] = fmt.Sprintf("load-%s-%d-survey.com", runID, i)
	}

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Hostnames: %d", *concurrency, *duration, *rps, *hosts)

	var wg sync.WaitGroup
	var successCount, unavailableCount, errorCount atomic.Int64
	var next atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, *targetURL, nil)
				if err != nil {
					continue // Should not happen
				}
				req.Host = hostnames[next.Add(1)%int64(len(hostnames))]

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				switch resp.StatusCode {
				case http.StatusOK:
					successCount.Add(1)
				case http.StatusServiceUnavailable:
					unavailableCount.Add(1)
				default:
					errorCount.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	totalRequests := successCount.Load() + unavailableCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", successCount.Load())
	log.Printf("Store unavailable (503): %d", unavailableCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
	log.Printf("Expect exactly %d tenant rows for run %s", *hosts, runID)
}
