package github

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// defaultRetryAfter is used when the host throttles without reporting a
// reset time.
const defaultRetryAfter = time.Minute

// classifyError maps go-github errors onto the driven port's taxonomy.
// Credential rejections and gone-upstream responses become sentinels the
// orchestrator can test with errors.Is; primary and secondary rate limits
// become RateLimitError carrying the host-reported reset delay. Anything
// else passes through unchanged and is treated as transient.
func classifyError(resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		retryAfter := time.Until(rateErr.Rate.Reset.Time)
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		return &driven.RateLimitError{RetryAfter: retryAfter}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := defaultRetryAfter
		if abuseErr.RetryAfter != nil {
			retryAfter = *abuseErr.RetryAfter
		}
		return &driven.RateLimitError{RetryAfter: retryAfter}
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return driven.ErrAuthExpired
		case http.StatusNotFound, http.StatusGone:
			return driven.ErrScopeGone
		}
	}

	return err
}

// classifyStatus maps a raw HTTP status (from the GraphQL endpoint, which
// go-github does not mediate) onto the same taxonomy.
func classifyStatus(statusCode int, retryAfterHeader string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return driven.ErrAuthExpired
	case http.StatusNotFound:
		return driven.ErrScopeGone
	case http.StatusForbidden, http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		if secs, err := strconv.Atoi(retryAfterHeader); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &driven.RateLimitError{RetryAfter: retryAfter}
	}

	return nil
}
