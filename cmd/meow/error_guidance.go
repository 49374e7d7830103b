package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"meow/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case strings.HasPrefix(apiErr.Message, "api error:"):
			lines = append(lines, "hint: verify MEOW_API_URL points to a meow server.")
		case apiErr.Status == http.StatusNotFound:
			lines = append(lines, "hint: list stored ids with: meow list")
		case apiErr.Message == "Upload too large":
			lines = append(lines, "hint: raise the server limit with: meow config set uploads.max_upload_bytes <bytes>")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase MEOW_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a meow server is running at MEOW_API_URL.",
			"hint: start local server manually with: meow srv",
			"hint: you can increase MEOW_HTTP_TIMEOUT for slower environments.",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
