package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"tcgprice/internal/config"
	"tcgprice/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary resolves an external binary.
func CheckBinary(req deps.Requirement) Result {
	status := deps.CheckBinaries([]deps.Requirement{req})[0]
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	if status.Available {
		result.Detail = status.Command
	} else {
		result.Detail = status.Detail
	}
	return result
}

// CheckNotifications reports whether operator alerts are configured. A
// missing topic only disables alerts, so the check is optional.
func CheckNotifications(cfg config.Notifications) Result {
	const name = "ntfy"
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Optional: true, Detail: "no topic configured; operator alerts disabled"}
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic URL %q", topic)}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Host + parsed.Path}
}

// CheckSource fetches the first catalog page of src, or a search page when the
// source has no list_url.
func CheckSource(ctx context.Context, client *http.Client, userAgent string, src config.Source) Result {
	name := "Source " + src.Key
	target := strings.ReplaceAll(src.ListURL, "{page}", "1")
	if src.ListURL == "" {
		target = strings.ReplaceAll(src.SearchURL, "{keyword}", "test")
		target = strings.ReplaceAll(target, "{page}", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("bad url: %v", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned %d", target, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d)", target, resp.StatusCode)}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (shop unreachable)"
	}
	return err.Error()
}
