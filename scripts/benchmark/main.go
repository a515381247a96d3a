package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:8080", "ytsearch base URL")
	apiKey      = flag.String("api-key", "", "API key for authenticated requests")
	runs        = flag.Int("runs", 3, "number of runs per term")
	concurrency = flag.Int("concurrency", 4, "searches in flight at once")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Terms covering plain, multi-word, non-ASCII and punctuation-heavy queries.
var testTerms = []string{
	"lofi hip hop",
	"never gonna give you up",
	"音楽",
	"ac/dc thunderstruck",
	"c++ tutorial",
}

type runResult struct {
	Term     string `json:"term"`
	Run      int    `json:"run"`
	TotalMs  int64  `json:"total_ms"`
	Status   int    `json:"status"`
	VideoID  string `json:"video_id,omitempty"`
	CacheHit bool   `json:"cache_hit"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type termSummary struct {
	Term      string  `json:"term"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
	P50Ms     int64   `json:"p50_ms"`
	P95Ms     int64   `json:"p95_ms"`
	MeanMs    float64 `json:"mean_ms"`
	Stable    bool    `json:"stable"` // every successful run returned the same ID
}

type benchmarkReport struct {
	Timestamp   string        `json:"timestamp"`
	APIURL      string        `json:"api_url"`
	RunsPerTerm int           `json:"runs_per_term"`
	Concurrency int           `json:"concurrency"`
	WallMs      int64         `json:"wall_ms"`
	Summaries   []termSummary `json:"summaries"`
	Runs        []runResult   `json:"runs"`
}

var client = &http.Client{Timeout: 150 * time.Second}

func main() {
	flag.Parse()

	fmt.Println("=== ytsearch Benchmark ===")
	fmt.Printf("API URL:      %s\n", *apiURL)
	fmt.Printf("Runs/term:    %d\n", *runs)
	fmt.Printf("Concurrency:  %d\n", *concurrency)
	fmt.Printf("Output:       %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure ytsearch is running (e.g. ytsearch serve)\n")
		os.Exit(1)
	}

	var (
		mu      sync.Mutex
		results []runResult
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	start := time.Now()
	for run := 1; run <= *runs; run++ {
		for _, term := range testTerms {
			g.Go(func() error {
				rr := benchmarkTerm(ctx, term, run)
				mark := "OK "
				if !rr.Success {
					mark = "ERR"
				}
				fmt.Printf("  %s run %d  %-28q %6dms  %s\n", mark, run, term, rr.TotalMs, rr.VideoID+rr.Error)

				mu.Lock()
				results = append(results, rr)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerTerm: *runs,
		Concurrency: *concurrency,
		WallMs:      time.Since(start).Milliseconds(),
		Summaries:   summarize(results),
		Runs:        results,
	}

	fmt.Println()
	printTable(report.Summaries)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	resp, err := client.Get(baseURL + "/_ah/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func benchmarkTerm(ctx context.Context, term string, run int) runResult {
	rr := runResult{Term: term, Run: run}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *apiURL+"/search/"+url.PathEscape(term), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.TotalMs = time.Since(start).Milliseconds()
		rr.Error = fmt.Sprintf("HTTP error: %v", err)
		return rr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	rr.TotalMs = time.Since(start).Milliseconds()
	rr.Status = resp.StatusCode
	rr.CacheHit = resp.Header.Get("X-Cache") == "hit"
	if err != nil {
		rr.Error = fmt.Sprintf("read error: %v", err)
		return rr
	}
	if resp.StatusCode != http.StatusOK {
		rr.Error = fmt.Sprintf("HTTP %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return rr
	}

	rr.VideoID = strings.TrimSpace(string(body))
	rr.Success = rr.VideoID != ""
	return rr
}

func summarize(results []runResult) []termSummary {
	byTerm := make(map[string][]runResult)
	for _, r := range results {
		byTerm[r.Term] = append(byTerm[r.Term], r)
	}

	var out []termSummary
	for _, term := range testTerms {
		rs := byTerm[term]
		s := termSummary{Term: term, Stable: true}
		var (
			latencies []int64
			sum       int64
			firstID   string
		)
		for _, r := range rs {
			if !r.Success {
				s.Failures++
				continue
			}
			s.Successes++
			latencies = append(latencies, r.TotalMs)
			sum += r.TotalMs
			if firstID == "" {
				firstID = r.VideoID
			} else if r.VideoID != firstID {
				s.Stable = false
			}
		}
		if len(latencies) > 0 {
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			s.P50Ms = percentile(latencies, 0.50)
			s.P95Ms = percentile(latencies, 0.95)
			s.MeanMs = float64(sum) / float64(len(latencies))
		}
		out = append(out, s)
	}
	return out
}

// percentile expects sorted input.
func percentile(sorted []int64, p float64) int64 {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printTable(summaries []termSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TERM\tOK\tFAIL\tP50 ms\tP95 ms\tMEAN ms\tSTABLE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.0f\t%v\n",
			s.Term, s.Successes, s.Failures, s.P50Ms, s.P95Ms, s.MeanMs, s.Stable)
	}
	w.Flush()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
