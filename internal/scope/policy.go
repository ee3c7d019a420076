package scope

import (
	"context"
	"strings"

	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
)

// Policy is the decoded scope_policy.yaml document.
type Policy struct {
	Version                  int                       `yaml:"version"`
	BaselineEnabledEndpoints []string                  `yaml:"baseline_enabled_endpoints"`
	ByCompetitionType        map[string]TypeRule       `yaml:"by_competition_type"`
	Overrides                []Override                `yaml:"overrides"`
}

type TypeRule struct {
	EnabledEndpoints  []string `yaml:"enabled_endpoints"`
	DisabledEndpoints []string `yaml:"disabled_endpoints"`
}

type Override struct {
	LeagueID int64  `yaml:"league_id"`
	Season   int    `yaml:"season"`
	Endpoint string `yaml:"endpoint"`
	Action   string `yaml:"action"` // "allow" or "deny"
}

// LeagueTypes resolves a league id to its competition type from core.
type LeagueTypes interface {
	TypeByID(ctx context.Context, id int64) (string, bool, error)
}

// Decision carries the verdict plus the rule that produced it, for the skip
// logs jobs emit.
type Decision struct {
	InScope bool
	Reason  string
}

type Resolver struct {
	policy Policy
	types  LeagueTypes
	logger *logging.Logger
}

func NewResolver(policy Policy, types LeagueTypes, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{policy: policy, types: types, logger: logger}
}

// Decide applies the policy in precedence order: baseline, overrides (deny
// wins), type denylist, type allowlist, default-allow. Unknown league types
// fail open.
func (r *Resolver) Decide(ctx context.Context, leagueID int64, season int, endpoint string) Decision {
	endpoint = canonical(endpoint)

	for _, baseline := range r.policy.BaselineEnabledEndpoints {
		if canonical(baseline) == endpoint {
			return Decision{InScope: true, Reason: "baseline"}
		}
	}

	if decision, matched := r.applyOverrides(leagueID, season, endpoint); matched {
		return decision
	}

	leagueType, known, err := r.types.TypeByID(ctx, leagueID)
	if err != nil || !known {
		if err != nil {
			r.logger.WarnContext(ctx, "scope policy could not resolve league type, failing open",
				"league_id", leagueID, "error", err)
		}
		return Decision{InScope: true, Reason: "unknown league type"}
	}

	rule, hasRule := r.policy.ByCompetitionType[leagueType]
	if !hasRule {
		return Decision{InScope: true, Reason: "no rule for type " + leagueType}
	}

	for _, denied := range rule.DisabledEndpoints {
		if canonical(denied) == endpoint {
			return Decision{InScope: false, Reason: leagueType + " denylist"}
		}
	}

	if len(rule.EnabledEndpoints) > 0 {
		for _, allowed := range rule.EnabledEndpoints {
			if canonical(allowed) == endpoint {
				return Decision{InScope: true, Reason: leagueType + " allowlist"}
			}
		}
		return Decision{InScope: false, Reason: leagueType + " allowlist miss"}
	}

	return Decision{InScope: true, Reason: "default"}
}

// applyOverrides scans the explicit per-(league, season) rules. When both an
// allow and a deny match, deny wins.
func (r *Resolver) applyOverrides(leagueID int64, season int, endpoint string) (Decision, bool) {
	allow := false
	for _, o := range r.policy.Overrides {
		if o.LeagueID != leagueID || o.Season != season || canonical(o.Endpoint) != endpoint {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(o.Action)) {
		case "deny":
			return Decision{InScope: false, Reason: "override deny"}, true
		case "allow":
			allow = true
		}
	}
	if allow {
		return Decision{InScope: true, Reason: "override allow"}, true
	}
	return Decision{}, false
}

// Split partitions (league, season) pairs for one endpoint into in-scope and
// skipped sets, logging the skips.
func (r *Resolver) Split(ctx context.Context, endpoint string, pairs []LeagueSeason) (included, skipped []LeagueSeason) {
	for _, pair := range pairs {
		decision := r.Decide(ctx, pair.LeagueID, pair.Season, endpoint)
		if decision.InScope {
			included = append(included, pair)
			continue
		}
		skipped = append(skipped, pair)
		r.logger.InfoContext(ctx, "scope policy skipped pair",
			"endpoint", endpoint, "league_id", pair.LeagueID, "season", pair.Season, "reason", decision.Reason)
	}
	return included, skipped
}

// LeagueSeason identifies one competition season for scope decisions.
type LeagueSeason struct {
	LeagueID int64
	Season   int
}

func canonical(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return strings.TrimRight(endpoint, "/")
}
