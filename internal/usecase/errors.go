package usecase

import (
	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
)

var (
	ErrInvalidInput = crerr.New("invalid input")
	ErrNotFound     = crerr.New("resource not found")

	// ErrDependencyUnavailable means a referenced league or team could not
	// be ensured; the batch write is skipped and the error persisted.
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
)

// isFatal marks errors a job run cannot recover from: a dead key or an
// exhausted daily quota. Everything else is logged and the run moves to the
// next work item.
func isFatal(err error) bool {
	return crerr.Is(err, apifootball.ErrAuthentication) ||
		crerr.Is(err, ratelimit.ErrEmergencyStop)
}
