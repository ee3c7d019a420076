package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
)

type stubTypes struct {
	types map[int64]string
	err   error
}

func (s stubTypes) TypeByID(_ context.Context, id int64) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	t, ok := s.types[id]
	return t, ok, nil
}

func testPolicy() Policy {
	return Policy{
		Version:                  1,
		BaselineEnabledEndpoints: []string{"/fixtures"},
		ByCompetitionType: map[string]TypeRule{
			"Cup": {DisabledEndpoints: []string{"/standings"}},
			"League": {
				EnabledEndpoints: []string{"/standings", "/injuries", "/players/topscorers"},
			},
		},
		Overrides: []Override{
			{LeagueID: 45, Season: 2025, Endpoint: "/standings", Action: "allow"},
			{LeagueID: 48, Season: 2025, Endpoint: "/injuries", Action: "deny"},
			{LeagueID: 48, Season: 2025, Endpoint: "/injuries", Action: "allow"},
		},
	}
}

func newResolver(types stubTypes) *Resolver {
	return NewResolver(testPolicy(), types, logging.NewNop())
}

func TestDecide_BaselineAlwaysInScope(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{206: "Cup"}})
	decision := r.Decide(context.Background(), 206, 2025, "/fixtures")
	require.True(t, decision.InScope)
	require.Equal(t, "baseline", decision.Reason)
}

func TestDecide_CupDenylist(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{206: "Cup"}})
	decision := r.Decide(context.Background(), 206, 2025, "/standings")
	require.False(t, decision.InScope)
}

func TestDecide_OverrideAllowBeatsTypeRule(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{45: "Cup"}})
	decision := r.Decide(context.Background(), 45, 2025, "/standings")
	require.True(t, decision.InScope)
	require.Equal(t, "override allow", decision.Reason)
}

func TestDecide_DenyWinsOverAllow(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{48: "League"}})
	decision := r.Decide(context.Background(), 48, 2025, "/injuries")
	require.False(t, decision.InScope)
	require.Equal(t, "override deny", decision.Reason)
}

func TestDecide_AllowlistMissIsOutOfScope(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{39: "League"}})
	require.True(t, r.Decide(context.Background(), 39, 2024, "/standings").InScope)
	require.False(t, r.Decide(context.Background(), 39, 2024, "/venues").InScope)
}

func TestDecide_UnknownTypeFailsOpen(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{}})
	require.True(t, r.Decide(context.Background(), 9999, 2024, "/standings").InScope)

	r = newResolver(stubTypes{err: errors.New("db down")})
	require.True(t, r.Decide(context.Background(), 39, 2024, "/standings").InScope)
}

func TestSplit_PartitionsAndKeepsOrder(t *testing.T) {
	r := newResolver(stubTypes{types: map[int64]string{39: "League", 206: "Cup"}})
	included, skipped := r.Split(context.Background(), "/standings", []LeagueSeason{
		{LeagueID: 39, Season: 2024},
		{LeagueID: 206, Season: 2025},
	})
	require.Equal(t, []LeagueSeason{{LeagueID: 39, Season: 2024}}, included)
	require.Equal(t, []LeagueSeason{{LeagueID: 206, Season: 2025}}, skipped)
}
