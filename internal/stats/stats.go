// Package stats computes dashboard aggregates over persisted request logs.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	"github.com/pandeptwidyaop/uatrack/internal/store"
	apperrors "github.com/pandeptwidyaop/uatrack/pkg/errors"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

const (
	// DefaultWindow is the trailing interval the distribution and rankings cover.
	DefaultWindow = 24 * time.Hour
	// DefaultPage is the first page of recent requests.
	DefaultPage = 1
	// DefaultPageSize is the number of recent requests per page.
	DefaultPageSize = 50
	// TopN is the length of the client and path rankings.
	TopN = 10
)

// Count is one entry of a frequency ranking.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DashboardStats is the result of one aggregation.
type DashboardStats struct {
	RecentRequests        []models.RequestLog          `json:"recent_requests"`
	UserAgentStats        map[models.UserAgentType]int `json:"user_agent_stats"`
	TopClients            []Count                      `json:"top_clients"`
	TopPaths              []Count                      `json:"top_paths"`
	TotalRequests         int                          `json:"total_requests"`
	AverageProcessingTime float64                      `json:"average_processing_time"` // milliseconds
	Page                  int                          `json:"page"`
	PageSize              int                          `json:"page_size"`
	WindowStart           time.Time                    `json:"window_start"`
	GeneratedAt           time.Time                    `json:"generated_at"`
}

func emptyStats(page, pageSize int, windowStart, now time.Time) DashboardStats {
	return DashboardStats{
		RecentRequests: []models.RequestLog{},
		UserAgentStats: map[models.UserAgentType]int{},
		TopClients:     []Count{},
		TopPaths:       []Count{},
		Page:           page,
		PageSize:       pageSize,
		WindowStart:    windowStart,
		GeneratedAt:    now,
	}
}

// Aggregator reads request logs and summarizes them. It never writes.
type Aggregator struct {
	reader store.Reader
	now    func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source used to anchor the window.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator reading from r.
func NewAggregator(r store.Reader, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader: r,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns a page of the most recent requests plus the category
// distribution, top clients, top paths, total and mean processing time over
// [now-window, now]. Non-positive arguments select the defaults. Query
// failures are logged and yield an empty result.
func (a *Aggregator) Aggregate(ctx context.Context, window time.Duration, page, pageSize int) DashboardStats {
	if window <= 0 {
		window = DefaultWindow
	}
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	now := a.now().UTC()
	from := now.Add(-window)
	result := emptyStats(page, pageSize, from, now)

	if err := a.aggregate(ctx, from, now, &result); err != nil {
		l := logger.WithFields(map[string]interface{}{
			"component": "stats",
			"page":      page,
			"page_size": pageSize,
		})
		l.Error().Err(err).Msg("Failed to aggregate request logs")
		return emptyStats(page, pageSize, from, now)
	}
	return result
}

func (a *Aggregator) aggregate(ctx context.Context, from, to time.Time, result *DashboardStats) (err error) {
	defer func() {
		if rerr := apperrors.FromPanic(recover()); rerr != nil {
			err = rerr
		}
	}()

	if a.reader == nil {
		return apperrors.ErrStoreUnavailable
	}

	recent, err := a.reader.Recent(ctx, (result.Page-1)*result.PageSize, result.PageSize)
	if err != nil {
		return err
	}
	if recent != nil {
		result.RecentRequests = recent
	}

	logs, err := a.reader.Between(ctx, from, to)
	if err != nil {
		return err
	}

	clients := make(map[string]int)
	paths := make(map[string]int)
	var totalMs int64
	for i := range logs {
		log := &logs[i]
		result.UserAgentStats[log.UserAgentType]++
		if log.DetectedClient != nil && *log.DetectedClient != "" {
			clients[*log.DetectedClient]++
		}
		paths[log.Path]++
		totalMs += log.ProcessingTimeMs
	}

	result.TotalRequests = len(logs)
	if len(logs) > 0 {
		result.AverageProcessingTime = float64(totalMs) / float64(len(logs))
	}
	result.TopClients = topN(clients, TopN)
	result.TopPaths = topN(paths, TopN)
	return nil
}

// topN ranks counts by descending count, ties broken by ascending key.
func topN(counts map[string]int, n int) []Count {
	ranked := make([]Count, 0, len(counts))
	for key, count := range counts {
		ranked = append(ranked, Count{Key: key, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Key < ranked[j].Key
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
