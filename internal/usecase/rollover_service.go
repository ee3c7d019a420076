package usecase

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
)

// RolloverService probes for the next season of every tracked league. It
// never rewrites the tracked list; it only emits a warning event so an
// operator updates the configuration.
type RolloverService struct {
	fetcher Fetcher
	logger  *logging.Logger
}

func NewRolloverService(fetcher Fetcher, logger *logging.Logger) *RolloverService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RolloverService{fetcher: fetcher, logger: logger}
}

// Check fetches /leagues for every distinct tracked season plus one and logs
// each tracked league that already has the next season upstream.
func (s *RolloverService) Check(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "RolloverService.Check")
	defer span.End()

	trackedByID := make(map[int64][]int, len(tracked))
	nextSeasons := make(map[int]struct{})
	for _, t := range tracked {
		trackedByID[t.ID] = append(trackedByID[t.ID], t.Season)
		nextSeasons[t.Season+1] = struct{}{}
	}

	found := 0
	for season := range nextSeasons {
		resp, err := s.fetcher.Fetch(ctx, "/leagues", map[string]string{"season": fmt.Sprint(season)})
		if err != nil {
			s.logger.ErrorContext(ctx, "season rollover probe failed", "season", season, "error", err)
			if isFatal(err) {
				return found, err
			}
			continue
		}

		for _, item := range resp.Envelope.Response {
			id, ok := rolloverLeagueID(item)
			if !ok {
				continue
			}
			seasons, isTracked := trackedByID[id]
			if !isTracked || containsSeason(seasons, season) {
				continue
			}
			found++
			s.logger.WarnContext(ctx, "next season available for tracked league",
				"league_id", id, "season", season)
		}
	}
	return found, nil
}

func rolloverLeagueID(item apifootball.RawItem) (int64, bool) {
	var payload struct {
		League struct {
			ID int64 `json:"id"`
		} `json:"league"`
	}
	if err := sonic.Unmarshal(item, &payload); err != nil || payload.League.ID == 0 {
		return 0, false
	}
	return payload.League.ID, true
}

func containsSeason(seasons []int, season int) bool {
	for _, s := range seasons {
		if s == season {
			return true
		}
	}
	return false
}
