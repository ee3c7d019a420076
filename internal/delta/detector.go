package delta

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
)

// DefaultTTL keeps entries alive well past any realistic match length.
const DefaultTTL = 2 * time.Hour

// Store is the key/value backend holding last-seen live state. Errors are
// tolerated everywhere: an unreachable store degrades the detector to
// "everything changed", never to data loss.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// State is the compare-projection of one live fixture.
type State struct {
	Status    string `json:"status"`
	GoalsHome *int   `json:"goals_home"`
	GoalsAway *int   `json:"goals_away"`
	Elapsed   *int   `json:"elapsed"`
}

// FieldDiff is one changed field; Old is nil for first-seen fixtures.
type FieldDiff struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff is the outcome of comparing current state against the cache.
type Diff struct {
	Changed bool
	Fields  map[string]FieldDiff
	// CacheUnavailable marks diffs computed while the store was erroring;
	// the fields then cover every tracked value with Old=nil.
	CacheUnavailable bool
}

type Detector struct {
	store  Store
	ttl    time.Duration
	logger *logging.Logger
}

func NewDetector(store Store, ttl time.Duration, logger *logging.Logger) *Detector {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{store: store, ttl: ttl, logger: logger}
}

func cacheKey(fixtureID int64) string {
	return fmt.Sprintf("live:fixture:%d", fixtureID)
}

// HasChanged reports whether the fixture's tracked fields differ from the
// cached snapshot. Empty cache and unreadable cache both count as changed.
func (d *Detector) HasChanged(ctx context.Context, fixtureID int64, state State) bool {
	return d.GetDiff(ctx, fixtureID, state).Changed
}

// GetDiff returns per-field old/new pairs. First-seen fixtures report every
// field with Old=nil.
func (d *Detector) GetDiff(ctx context.Context, fixtureID int64, state State) Diff {
	raw, found, err := d.store.Get(ctx, cacheKey(fixtureID))
	if err != nil {
		d.logger.WarnContext(ctx, "delta cache read failed, treating fixture as changed",
			"fixture_id", fixtureID, "error", err)
		return Diff{Changed: true, CacheUnavailable: true, Fields: firstSeenFields(state)}
	}
	if !found {
		return Diff{Changed: true, Fields: firstSeenFields(state)}
	}

	var cached State
	if err := sonic.Unmarshal([]byte(raw), &cached); err != nil {
		d.logger.WarnContext(ctx, "delta cache entry unreadable, treating fixture as changed",
			"fixture_id", fixtureID, "error", err)
		return Diff{Changed: true, Fields: firstSeenFields(state)}
	}

	fields := make(map[string]FieldDiff)
	if cached.Status != state.Status {
		fields["status"] = FieldDiff{Old: cached.Status, New: state.Status}
	}
	compareInt(fields, "goals_home", cached.GoalsHome, state.GoalsHome)
	compareInt(fields, "goals_away", cached.GoalsAway, state.GoalsAway)
	compareInt(fields, "elapsed", cached.Elapsed, state.Elapsed)

	return Diff{Changed: len(fields) > 0, Fields: fields}
}

// UpdateCache stores the state and resets the TTL. Failures are logged and
// swallowed; the next poll simply re-reports the fixture as changed.
func (d *Detector) UpdateCache(ctx context.Context, fixtureID int64, state State) {
	encoded, err := sonic.Marshal(state)
	if err != nil {
		d.logger.WarnContext(ctx, "delta state encode failed", "fixture_id", fixtureID, "error", err)
		return
	}
	if err := d.store.Set(ctx, cacheKey(fixtureID), string(encoded), d.ttl); err != nil {
		d.logger.WarnContext(ctx, "delta cache write failed", "fixture_id", fixtureID, "error", err)
	}
}

// ClearCache is a best-effort delete.
func (d *Detector) ClearCache(ctx context.Context, fixtureID int64) {
	if err := d.store.Delete(ctx, cacheKey(fixtureID)); err != nil {
		d.logger.WarnContext(ctx, "delta cache delete failed", "fixture_id", fixtureID, "error", err)
	}
}

func firstSeenFields(state State) map[string]FieldDiff {
	return map[string]FieldDiff{
		"status":     {Old: nil, New: state.Status},
		"goals_home": {Old: nil, New: optValue(state.GoalsHome)},
		"goals_away": {Old: nil, New: optValue(state.GoalsAway)},
		"elapsed":    {Old: nil, New: optValue(state.Elapsed)},
	}
}

func compareInt(fields map[string]FieldDiff, name string, old, cur *int) {
	if equalOptInt(old, cur) {
		return
	}
	fields[name] = FieldDiff{Old: optValue(old), New: optValue(cur)}
}

func equalOptInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
