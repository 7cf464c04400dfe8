package source

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// retryAfterHint reads the back-off an upstream 429/5xx asks for, in either
// delta-seconds or HTTP-date form. Missing, unparseable or past values yield 0
// and the client falls back to its own backoff. Hints longer than limit are
// cut down to limit.
func retryAfterHint(resp *http.Response, limit time.Duration) time.Duration {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0
	}

	var hint time.Duration
	if seconds, err := strconv.Atoi(val); err == nil {
		if seconds > 0 {
			hint = time.Duration(seconds) * time.Second
		}
	} else if t, err := http.ParseTime(val); err == nil {
		hint = time.Until(t)
	}

	if hint <= 0 {
		return 0
	}
	if limit > 0 && hint > limit {
		slog.Warn("upstream back-off hint capped",
			"path", resp.Request.URL.Path,
			"status", resp.StatusCode,
			"retryAfter", val,
			"cappedTo", limit,
		)
		return limit
	}
	return hint
}
