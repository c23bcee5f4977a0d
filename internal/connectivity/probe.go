package connectivity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Result is the outcome of one probe.
type Result struct {
	Online      bool
	Description string
}

// Prober determines current reachability.
type Prober interface {
	Probe(ctx context.Context) Result
}

// HTTPProber issues a HEAD request and treats any response below 500 as
// online.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber constructs a prober for target with the given timeout.
func NewHTTPProber(target string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{URL: target, Client: &http.Client{Timeout: timeout}}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) Result {
	if p == nil || strings.TrimSpace(p.URL) == "" {
		return Result{Description: "No connection: probe not configured"}
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return Result{Description: fmt.Sprintf("No connection: %v", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Description: "No connection: " + describeTransportError(err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Description: fmt.Sprintf("No connection: backend returned %d", resp.StatusCode)}
	}
	return Result{Online: true, Description: "Connected to " + hostOf(p.URL)}
}

func describeTransportError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		err = urlErr.Err
	}
	return err.Error()
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	return parsed.Host
}

// FileProber reads an externally managed state file. The first word is the
// state ("online", "up", "1" or "offline", "down", "0"); any remaining text
// on the first line names the link, for example "online wifi".
type FileProber struct {
	Path string
}

// Probe implements Prober.
func (p *FileProber) Probe(context.Context) Result {
	if p == nil || strings.TrimSpace(p.Path) == "" {
		return Result{Description: "No connection: state file not configured"}
	}
	file, err := os.Open(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Description: "No connection: state file missing"}
		}
		return Result{Description: fmt.Sprintf("No connection: %v", err)}
	}
	defer file.Close()

	scanner := bufio.NewScanner(io.LimitReader(file, 4096))
	line := ""
	if scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
	}
	return ParseStateLine(line)
}

// ParseStateLine interprets one line of state file content.
func ParseStateLine(line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{Description: "No connection"}
	}
	via := strings.Join(fields[1:], " ")
	switch strings.ToLower(fields[0]) {
	case "online", "up", "1", "true":
		if via == "" {
			return Result{Online: true, Description: "Connected"}
		}
		return Result{Online: true, Description: "Connected via " + via}
	case "offline", "down", "0", "false":
		return Result{Description: "No connection"}
	default:
		return Result{Description: fmt.Sprintf("No connection: unrecognized state %q", fields[0])}
	}
}
