package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/baassets/pipeline/internal/progress"
)

const (
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 15 * time.Second

	// slowStreamWindow is how long a SaveFile stream may go without
	// receiving any bytes before it is considered stalled and aborted. The
	// check runs each time a read returns; a read that blocks is not
	// interrupted by it.
	slowStreamWindow = 30 * time.Second
	streamChunkSize  = 32 * 1024
)

var scraperHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// Fetcher parameterizes a single HTTP request: method, optional JSON body,
// headers, range, and a streaming progress sink. A Fetcher is built once
// per request and consumed by exactly one of SaveFile, GetResponse or
// GetBytes.
type Fetcher struct {
	client     *http.Client
	method     string
	url        string
	headers    map[string]string
	body       []byte
	maxRetries int
	sink       *progress.Sink
	reporter   progress.Reporter
}

// New builds a Fetcher for method/url against client, with up to
// maxRetries attempts per call.
func New(client *http.Client, method, url string, maxRetries int) *Fetcher {
	return &Fetcher{
		client:     client,
		method:     method,
		url:        url,
		headers:    map[string]string{},
		maxRetries: maxRetries,
	}
}

// WithHeader sets a single request header.
func (f *Fetcher) WithHeader(key, value string) *Fetcher {
	f.headers[key] = value
	return f
}

// WithRange sets a byte-range header for [start, end] inclusive.
func (f *Fetcher) WithRange(start, end int64) *Fetcher {
	f.headers["Range"] = fmt.Sprintf("bytes=%d-%d", start, end)
	return f
}

// WithJSONBody attaches a pre-encoded JSON request body and sets the
// matching content type.
func (f *Fetcher) WithJSONBody(body []byte) *Fetcher {
	f.body = body
	f.headers["Content-Type"] = "application/json"
	return f
}

// WithScraperHeaders spoofs a browser-class user agent and accept headers,
// required by CDNs that block or challenge non-browser clients.
func (f *Fetcher) WithScraperHeaders() *Fetcher {
	for k, v := range scraperHeaders {
		f.headers[k] = v
	}
	return f
}

// WithProgress attaches the sink that SaveFile credits as bytes land on
// disk.
func (f *Fetcher) WithProgress(sink *progress.Sink) *Fetcher {
	f.sink = sink
	return f
}

// WithReporter attaches a single-request Reporter that GetBytes drives
// while reading the response body, for large one-shot downloads (a region
// catalog, say) that don't go through the many-small-files Sink. A nil
// reporter, the zero value, disables this entirely.
func (f *Fetcher) WithReporter(reporter progress.Reporter) *Fetcher {
	f.reporter = reporter
	return f
}

func (f *Fetcher) newRequest(ctx context.Context) (*http.Request, error) {
	var bodyReader io.Reader
	if f.body != nil {
		bodyReader = bytes.NewReader(f.body)
	}

	req, err := http.NewRequestWithContext(ctx, f.method, f.url, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (f *Fetcher) retryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   f.maxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
	}
}

// GetResponse executes the request and returns the raw response for
// header inspection. The caller owns resp.Body and must close it.
func (f *Fetcher) GetResponse(ctx context.Context) (*http.Response, error) {
	var resp *http.Response

	err := ExecuteWithRetry(ctx, f.retryConfig(), func() error {
		req, err := f.newRequest(ctx)
		if err != nil {
			return err
		}
		r, err := f.client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 400 {
			r.Body.Close()
			return fmt.Errorf("fetch: %s %s: status %d", f.method, f.url, r.StatusCode)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBytes executes the request and reads the full body. If a reporter
// was attached with WithReporter, it is driven from the response's
// Content-Length and the bytes actually read, and is marked finished or
// errored before GetBytes returns.
func (f *Fetcher) GetBytes(ctx context.Context) ([]byte, error) {
	var body []byte

	err := ExecuteWithRetry(ctx, f.retryConfig(), func() error {
		resp, err := f.doOnce(ctx)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var reader io.Reader = resp.Body
		if f.reporter != nil {
			f.reporter.Start(resp.ContentLength, f.url)
			reader = progress.NewProgressReader(resp.Body, resp.ContentLength, f.reporter)
		}

		b, err := io.ReadAll(reader)
		if f.reporter != nil {
			if err != nil {
				f.reporter.Error(err)
			} else {
				f.reporter.Finish()
			}
		}
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func (f *Fetcher) doOnce(ctx context.Context) (*http.Response, error) {
	req, err := f.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: %s %s: status %d", f.method, f.url, resp.StatusCode)
	}
	return resp, nil
}

// SaveFile streams the response body to path, reporting bytes written to
// the attached progress sink as they land. If no bytes have arrived for
// longer than slowStreamWindow when a read returns, the attempt is aborted
// and retried; throughput is not measured beyond that. Any bytes already
// credited for a failed attempt are reversed so global progress remains
// accurate. Returns true when the file was written, and false together
// with the error otherwise.
func (f *Fetcher) SaveFile(ctx context.Context, path string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("fetch: save file: %w", err)
	}

	err := ExecuteWithRetry(ctx, f.retryConfig(), func() error {
		return f.streamToFile(ctx, path)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *Fetcher) streamToFile(ctx context.Context, path string) (err error) {
	resp, err := f.doOnce(ctx)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmpPath := path + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	var credited int64
	defer func() {
		out.Close()
		if err != nil {
			os.Remove(tmpPath)
			if f.sink != nil && credited > 0 {
				f.sink.Add(-credited)
			}
			return
		}
		err = os.Rename(tmpPath, path)
	}()

	buf := make([]byte, streamChunkSize)
	lastProgress := time.Now()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			credited += int64(n)
			if f.sink != nil {
				f.sink.Add(int64(n))
			}
			lastProgress = time.Now()
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}

		if time.Since(lastProgress) > slowStreamWindow {
			// "timeout" in the message makes ClassifyError treat the stall
			// as a network error, so ExecuteWithRetry retries it.
			return fmt.Errorf("fetch: save file: stream stalled, read timeout after %s", slowStreamWindow)
		}
	}
}
