package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Drives concurrent claim traffic against one offer. With a small recipient
// pool the issuance guard should return the same code for repeat claims, so
// a healthy run shows many 200s and zero 5xx.
func main() {
	targetURL := flag.String("url", "http://localhost:8080/acme/offers/OFFER_ID/claim", "Claim endpoint URL")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	recipients := flag.Int("recipients", 50, "Size of the recipient email pool")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Recipients: %d", *concurrency, *duration, *rps, *recipients)

	var wg sync.WaitGroup
	var okCount, limitedCount, rejectedCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for n := 0; ; n++ {
				select {
				case <-ctx.Done():
					return
				default:
					if err := limiter.Wait(ctx); err != nil {
						return
					}

					email := fmt.Sprintf("load-%d@example.com", (workerID+n)%*recipients)
					payload := fmt.Sprintf(`{"email": %q}`, email)

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue
					}
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					switch {
					case resp.StatusCode == http.StatusOK:
						okCount.Add(1)
					case resp.StatusCode == http.StatusTooManyRequests:
						limitedCount.Add(1)
					case resp.StatusCode >= 500:
						errorCount.Add(1)
					default:
						rejectedCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := okCount.Load() + limitedCount.Load() + rejectedCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Granted (200): %d", okCount.Load())
	log.Printf("Rate Limited (429): %d", limitedCount.Load())
	log.Printf("Rejected (4xx): %d", rejectedCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
