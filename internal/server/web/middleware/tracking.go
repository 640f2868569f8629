package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	"github.com/pandeptwidyaop/uatrack/internal/server/metrics"
	"github.com/pandeptwidyaop/uatrack/internal/store"
	apperrors "github.com/pandeptwidyaop/uatrack/pkg/errors"
)

// DefaultSaveTimeout bounds a single request log write.
const DefaultSaveTimeout = 5 * time.Second

// UserAgentClassifier classifies a User-Agent header value.
type UserAgentClassifier interface {
	Classify(userAgent string) (models.UserAgentType, string)
}

// Tracker records every request passing through it as a models.RequestLog.
// Tracking is fail-open: its own faults are logged and never change the response.
type Tracker struct {
	classifier  UserAgentClassifier
	store       store.Writer
	metrics     *metrics.Metrics
	saveTimeout time.Duration
	now         func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMetrics reports tracked requests to m.
func WithMetrics(m *metrics.Metrics) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// WithSaveTimeout bounds each persistence write. Non-positive values keep the default.
func WithSaveTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.saveTimeout = d
		}
	}
}

// WithClock overrides the source of record timestamps.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker that classifies with c and persists to w.
func NewTracker(c UserAgentClassifier, w store.Writer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		classifier:  c,
		store:       w,
		saveTimeout: DefaultSaveTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// trackedRequest is the per-request state, never shared between requests.
type trackedRequest struct {
	start         time.Time
	userAgent     string
	userAgentType models.UserAgentType
	client        string
	writer        *responseWriter
}

// Track wraps next. A panic raised by next propagates unchanged and no record is written.
func (t *Tracker) Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := t.begin(w, r)
		if err != nil {
			trackerLogger().Error().
				Err(err).
				Str("path", r.URL.Path).
				Msg("Error in request tracking middleware")
			t.metrics.TrackingFailed()
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(req.writer, r)

		if err := t.finish(r, req); err != nil {
			trackerLogger().Error().
				Err(err).
				Str("path", r.URL.Path).
				Msg("Error in request tracking middleware")
			t.metrics.TrackingFailed()
		}
	})
}

func (t *Tracker) begin(w http.ResponseWriter, r *http.Request) (req *trackedRequest, err error) {
	defer func() {
		if rerr := apperrors.FromPanic(recover()); rerr != nil {
			req, err = nil, rerr
		}
	}()

	req = &trackedRequest{
		start:     time.Now(),
		userAgent: r.UserAgent(),
		writer:    newResponseWriter(w),
	}
	req.userAgentType, req.client = t.classify(req.userAgent)
	return req, nil
}

// classify never fails; a misbehaving classifier yields Unknown.
func (t *Tracker) classify(userAgent string) (uaType models.UserAgentType, client string) {
	defer func() {
		if err := apperrors.FromPanic(recover()); err != nil {
			trackerLogger().Error().Err(err).Str("user_agent", userAgent).Msg("Error classifying user agent")
			uaType, client = models.UserAgentUnknown, ""
		}
	}()

	if t.classifier == nil {
		return models.UserAgentUnknown, ""
	}
	return t.classifier.Classify(userAgent)
}

// finish builds, persists and logs the record. Persistence failures are
// logged and swallowed; only faults in the tracker itself are returned.
func (t *Tracker) finish(r *http.Request, req *trackedRequest) (err error) {
	defer func() {
		if rerr := apperrors.FromPanic(recover()); rerr != nil {
			err = rerr
		}
	}()

	elapsed := time.Since(req.start)
	log := t.buildRecord(r, req, elapsed)

	if err := t.persist(r.Context(), log); err != nil {
		trackerLogger().Error().
			Err(err).
			Str("method", log.Method).
			Str("path", log.Path).
			Msg("Failed to save request log to database")
		t.metrics.PersistFailed()
	}

	t.metrics.ObserveRequest(log.UserAgentType.String(), log.StatusCode, elapsed)
	logTrackedRequest(log, req.writer.written)
	return nil
}

func (t *Tracker) buildRecord(r *http.Request, req *trackedRequest, elapsed time.Duration) *models.RequestLog {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}

	return &models.RequestLog{
		Timestamp:        t.now().UTC(),
		Method:           r.Method,
		Path:             path,
		IPAddress:        models.OptionalString(ClientIP(r)),
		UserAgent:        models.OptionalString(models.Truncate(req.userAgent, models.MaxUserAgentLength)),
		UserAgentType:    req.userAgentType,
		DetectedClient:   models.OptionalString(req.client),
		StatusCode:       req.writer.statusCode,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Referer:          models.OptionalString(r.Header.Get("Referer")),
		QueryString:      models.OptionalString(queryString(r)),
	}
}

// queryString returns the raw query with its leading "?", or "" when there is none.
func queryString(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return ""
	}
	return "?" + r.URL.RawQuery
}

// persist writes log with a context detached from the request, so a client
// disconnect does not discard the record.
func (t *Tracker) persist(ctx context.Context, log *models.RequestLog) (err error) {
	defer func() {
		if rerr := apperrors.FromPanic(recover()); rerr != nil {
			err = rerr
		}
	}()

	if t.store == nil {
		return apperrors.ErrStoreUnavailable
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.saveTimeout)
	defer cancel()

	return t.store.Save(ctx, log)
}
