package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sudosantos27/go-author-report/internal/config"
	"github.com/sudosantos27/go-author-report/internal/extract"
	"github.com/sudosantos27/go-author-report/internal/fetcher"
	"github.com/sudosantos27/go-author-report/internal/input"
	"github.com/sudosantos27/go-author-report/internal/report"
	"github.com/sudosantos27/go-author-report/internal/urlcheck"
)

// Fetcher retrieves the metadata document for one URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
}

// Result stores the outcome of fetching one URL.
type Result struct {
	URL        string        `json:"url"`
	Target     string        `json:"target,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration_ns"` // Duration in nanoseconds for JSON
	Body       []byte        `json:"-"`
	Err        error         `json:"-"`
	ErrorMsg   string        `json:"error,omitempty"`
}

// OK reports whether the request produced a usable body.
func (r Result) OK() bool {
	return r.Err == nil
}

// ExtractFailure is a successful fetch whose body had no author.
type ExtractFailure struct {
	URL      string `json:"url"`
	ErrorMsg string `json:"error"`
}

// Summary describes a finished run.
type Summary struct {
	Total         int     `json:"total"`
	Valid         int     `json:"valid"`
	Malformed     int     `json:"malformed"`
	Fetched       int     `json:"fetched"`
	Failed        int     `json:"failed"`
	Extracted     int     `json:"extracted"`
	ExtractFailed int     `json:"extract_failed"`
	Report        string  `json:"report"`
	TotalDuration float64 `json:"total_duration_s"`
}

// Options carries the collaborators of a run. Zero values fall back to
// stdout, stderr, time.Now and an HTTP fetcher built from the config.
type Options struct {
	Fetcher Fetcher
	Stdout  io.Writer
	Stderr  io.Writer
	Now     func() time.Time
}

func (o *Options) setDefaults(cfg config.Config) {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Fetcher == nil {
		o.Fetcher = fetcher.New(fetcher.Options{
			Suffix:       cfg.Suffix,
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.RequestTimeout,
			MaxBodyBytes: cfg.MaxBodyBytes,
			RateLimit:    cfg.RateLimit,
			FailOnStatus: cfg.FailOnStatus,
		})
	}
}

// Run loads the input file, fetches every valid URL, extracts authors and
// writes the report. Only an unreadable input file or an uncreatable report
// file end the run with an error; everything else is reported and skipped.
func Run(ctx context.Context, cfg config.Config, opts Options) (Summary, error) {
	opts.setDefaults(cfg)
	startTotal := time.Now()

	urls, err := input.Load(cfg.Input)
	if err != nil {
		return Summary{}, err
	}
	if len(urls) == 0 {
		fmt.Fprintln(opts.Stderr, "The input file is empty. Nothing to fetch.")
	}

	valid, invalid := urlcheck.Partition(urls)
	printList(opts.Stderr, fmt.Sprintf("Number of malformed URLs: %d\n", len(invalid)), invalid)

	slog.Info("Starting requests", "total_urls", len(valid), "workers", cfg.Concurrency)
	results := Fetch(ctx, opts.Fetcher, valid, cfg.Concurrency, func(done, total int) {
		fmt.Fprintf(opts.Stderr, "\rGET requests progress: %d/%d", done, total)
	})

	if ctx.Err() == context.DeadlineExceeded {
		slog.Error("Global timeout reached", "timeout", ctx.Err())
	}

	var failed []string
	for _, res := range results {
		logResult(res)
		if !res.OK() {
			failed = append(failed, res.URL)
		}
	}
	fmt.Fprintf(opts.Stderr, "\n\nNumber of failed GET requests: %d\n", len(failed))
	if cfg.Format == "text" {
		fmt.Fprintf(opts.Stdout, "\nNumber of successful GET requests: %d\n", len(results)-len(failed))
	}
	printList(opts.Stderr, "", failed)

	records, extractFailures := Extract(results)
	if len(extractFailures) > 0 {
		lines := make([]string, 0, len(extractFailures))
		for _, f := range extractFailures {
			lines = append(lines, f.URL+": "+f.ErrorMsg)
		}
		printList(opts.Stderr, fmt.Sprintf("\nNumber of responses without an author: %d\n", len(extractFailures)), lines)
	}

	path, written, err := report.WriteFile(cfg.OutputDir, opts.Now(), records)
	if path == "" {
		return Summary{}, err
	}
	if err != nil {
		fmt.Fprintf(opts.Stderr, "Error encountered when writing output to file: %s\n", path)
		slog.Error("Report write failed", "path", path, "error", err)
	}

	summary := Summary{
		Total:         len(urls),
		Valid:         len(valid),
		Malformed:     len(invalid),
		Fetched:       len(results) - len(failed),
		Failed:        len(failed),
		Extracted:     written,
		ExtractFailed: len(extractFailures),
		Report:        path,
		TotalDuration: time.Since(startTotal).Seconds(),
	}

	if cfg.Format == "json" {
		printJSON(opts.Stdout, opts.Stderr, results, extractFailures, summary)
		return summary, nil
	}

	slog.Info("Run completed",
		"total", summary.Total,
		"malformed", summary.Malformed,
		"fetched", summary.Fetched,
		"failed", summary.Failed,
		"extracted", summary.Extracted,
		"report", summary.Report,
		"duration", time.Since(startTotal),
	)
	return summary, nil
}

type job struct {
	index int
	url   string
}

type indexedResult struct {
	index  int
	result Result
}

// Fetch requests every URL and returns exactly one Result per URL in input
// order. With concurrency 1 requests are strictly sequential. progress, if
// non-nil, is called by the collecting goroutine after each request with the
// number completed so far.
func Fetch(ctx context.Context, f Fetcher, urls []string, concurrency int, progress func(done, total int)) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	jobs := make(chan job)
	results := make(chan indexedResult, concurrency)
	var wg sync.WaitGroup

	// 1. Start workers
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker(ctx, f, jobs, results, &wg)
	}

	// 2. Send jobs
	go func() {
		defer close(jobs)
		for i, u := range urls {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, url: u}:
			}
		}
	}()

	// 3. Wait for workers and close results
	go func() {
		wg.Wait()
		close(results)
	}()

	// 4. Collect results in input order
	ordered := make([]Result, len(urls))
	filled := make([]bool, len(urls))
	done := 0
	for res := range results {
		ordered[res.index] = res.result
		filled[res.index] = true
		done++
		if progress != nil {
			progress(done, len(urls))
		}
	}

	// URLs never dispatched because the context ended still get a result.
	for i, ok := range filled {
		if ok {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.New("request not dispatched")
		}
		ordered[i] = Result{URL: urls[i], Err: err, ErrorMsg: err.Error()}
	}
	return ordered
}

// worker is the function executed by each goroutine in the pool.
func worker(ctx context.Context, f Fetcher, jobs <-chan job, results chan<- indexedResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			results <- indexedResult{index: j.index, result: fetchURL(ctx, f, j.url)}
		}
	}
}

// fetchURL performs the request and converts the outcome into a Result.
func fetchURL(ctx context.Context, f Fetcher, url string) Result {
	start := time.Now()
	resp, err := f.Fetch(ctx, url)
	duration := time.Since(start)

	res := Result{URL: url, Duration: duration, Err: err}
	if resp != nil {
		res.Target = resp.Target
		res.StatusCode = resp.StatusCode
		res.Body = resp.Body
	}
	if err != nil {
		res.ErrorMsg = err.Error()
		res.Body = nil
	}
	return res
}

// Extract turns successful results into report records. A body without an
// author only drops its own record; the others are unaffected.
func Extract(results []Result) ([]report.Record, []ExtractFailure) {
	var records []report.Record
	var failures []ExtractFailure
	for _, res := range results {
		if !res.OK() {
			continue
		}
		author, err := extract.Author(res.Body)
		if err != nil {
			slog.Warn("Author extraction failed", "url", res.URL, "status", res.StatusCode, "error", err)
			failures = append(failures, ExtractFailure{URL: res.URL, ErrorMsg: err.Error()})
			continue
		}
		records = append(records, report.Record{Author: author, URL: res.URL})
	}
	return records, failures
}

// printList writes an optional header followed by the indented entries.
func printList(w io.Writer, header string, entries []string) {
	if header != "" {
		fmt.Fprintln(w, header)
	}
	for _, e := range entries {
		fmt.Fprintln(w, "    "+e)
	}
}

// printJSON formats the output as JSON.
func printJSON(w, errW io.Writer, results []Result, failures []ExtractFailure, summary Summary) {
	type Output struct {
		Results         []Result         `json:"results"`
		ExtractFailures []ExtractFailure `json:"extract_failures,omitempty"`
		Summary         Summary          `json:"summary"`
	}

	out := Output{
		Results:         results,
		ExtractFailures: failures,
		Summary:         summary,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintf(errW, "Error encoding JSON: %v\n", err)
	}
}

// logResult logs the outcome of one request.
func logResult(r Result) {
	if r.Err != nil {
		slog.Error("Request failed", "url", r.URL, "target", r.Target, "error", r.Err, "duration", r.Duration)
	} else {
		slog.Debug("Request succeeded", "url", r.URL, "status", r.StatusCode, "duration", r.Duration)
	}
}
