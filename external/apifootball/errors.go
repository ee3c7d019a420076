package apifootball

import (
	crerr "github.com/cockroachdb/errors"
)

// Error taxonomy for upstream calls. Jobs classify with errors.Is and decide
// whether to continue, back off, or abort the run.
var (
	// ErrAuthentication is fatal for the run; a bad key cannot recover.
	ErrAuthentication = crerr.New("api-football: authentication failed")

	// ErrRateLimited covers HTTP 429 and the in-envelope rateLimit signal.
	ErrRateLimited = crerr.New("api-football: rate limited")

	// ErrServerError covers 5xx responses.
	ErrServerError = crerr.New("api-football: upstream server error")

	// ErrTimeout covers transport timeouts and HTTP 499.
	ErrTimeout = crerr.New("api-football: request timed out")

	// ErrUnexpectedStatus covers any other non-success status.
	ErrUnexpectedStatus = crerr.New("api-football: unexpected status")

	// ErrTransport covers network-level failures before a status exists.
	ErrTransport = crerr.New("api-football: transport failure")
)

// IsRetryable reports whether a job should sleep and continue rather than
// drop the work item.
func IsRetryable(err error) bool {
	return crerr.Is(err, ErrRateLimited) ||
		crerr.Is(err, ErrServerError) ||
		crerr.Is(err, ErrTimeout) ||
		crerr.Is(err, ErrTransport)
}
