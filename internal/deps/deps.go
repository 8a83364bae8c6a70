// Package deps resolves external binaries tcgprice can use.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary. Candidates are tried in order and
// the first one found on PATH (or as an absolute path) satisfies it.
type Requirement struct {
	Name        string
	Candidates  []string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// chromeCandidates mirrors the executable names chromedp looks for.
var chromeCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

// Chrome describes the browser used for render = "browser" sources. A
// configured path replaces the candidate list.
func Chrome(configured string) Requirement {
	req := Requirement{
		Name:        "Chrome",
		Candidates:  chromeCandidates,
		Description: "Required by sources with render = \"browser\"",
	}
	if path := strings.TrimSpace(configured); path != "" {
		req.Candidates = []string{path}
	}
	return req
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	var tried []string
	for _, candidate := range req.Candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		tried = append(tried, candidate)
		if path, err := exec.LookPath(candidate); err == nil {
			status.Command = path
			status.Available = true
			return status
		}
	}
	switch len(tried) {
	case 0:
		status.Detail = "command not configured"
	case 1:
		status.Command = tried[0]
		status.Detail = fmt.Sprintf("binary %q not found", tried[0])
	default:
		status.Detail = fmt.Sprintf("none of %s found", strings.Join(tried, ", "))
	}
	return status
}
