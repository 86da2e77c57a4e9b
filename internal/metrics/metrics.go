package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for the Admin Reader API
var (
	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts the total number of HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)
)

// Rate Governor metrics
var (
	// RateGovernorThrottleState tracks the governor's back-off state.
	// Values: 0 = steady, 1 = throttled
	RateGovernorThrottleState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mandimonitor_rate_governor_throttle_state",
			Help: "Current state of the PAAPI rate governor (0=steady, 1=throttled)",
		},
	)

	// RateGovernorThrottleEvents counts transitions into the throttled state
	RateGovernorThrottleEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_rate_governor_throttle_events_total",
			Help: "Total number of times the rate governor entered its throttled back-off",
		},
	)

	// RateGovernorQueueDepth tracks how many callers are waiting on the token bucket
	RateGovernorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mandimonitor_rate_governor_queue_depth",
			Help: "Number of callers currently waiting for a rate governor token",
		},
	)
)

// Price Oracle metrics
var (
	// OracleCacheResult counts cache lookups by outcome: hit, miss, and stale
	// (a stale entry served after a miss once every live source failed)
	OracleCacheResult = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_oracle_cache_results_total",
			Help: "Price Oracle cache lookups by outcome (hit, miss, stale)",
		},
		[]string{"outcome"},
	)

	// OracleSourceUsed counts which source ultimately served a price
	OracleSourceUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_oracle_source_used_total",
			Help: "Price Oracle results by source used (api, scrape)",
		},
		[]string{"source"},
	)

	// OracleUnavailable counts full-cascade failures
	OracleUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_oracle_unavailable_total",
			Help: "Total number of Price Oracle lookups that exhausted every source",
		},
	)

	// OracleLookupDuration tracks end-to-end oracle lookup latency
	OracleLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mandimonitor_oracle_lookup_duration_seconds",
			Help:    "Duration of Price Oracle lookups by source used",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

// Scrape Fallback metrics
var (
	// ScrapeFallbackInvocations counts invocations of the scrape fallback path
	ScrapeFallbackInvocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_scrape_fallback_invocations_total",
			Help: "Total number of times the scrape fallback was invoked after a PAAPI failure",
		},
	)

	// ScrapeFailures counts scrape attempts that themselves failed
	ScrapeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_scrape_failures_total",
			Help: "Total number of scrape fallback failures by reason",
		},
		[]string{"reason"},
	)
)

// Search Pipeline metrics
var (
	// SearchPartialResults counts searches cut short by a throttle, quota error
	// or cancellation (Result.Partial); a vendor running out of items is not counted
	SearchPartialResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_search_partial_results_total",
			Help: "Total number of searches cut short by a throttle, quota error or cancellation",
		},
	)

	// SearchSessionCacheResult counts session-cache hits vs misses
	SearchSessionCacheResult = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_search_session_cache_results_total",
			Help: "Search Pipeline session cache lookups by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)

	// SearchResultsDeduped counts ASINs dropped as duplicates during pagination
	SearchResultsDeduped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_search_results_deduped_total",
			Help: "Total number of duplicate ASINs dropped across paginated search results",
		},
	)
)

// Filter & Selector metrics
var (
	// FilterNoMatchByStage counts no-match outcomes by the stage that emptied the set
	FilterNoMatchByStage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_filter_no_match_total",
			Help: "Total number of filter cascades that emptied out, by stage",
		},
		[]string{"stage"},
	)

	// FilterMatches counts cascades that produced at least one surviving candidate
	FilterMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_filter_matches_total",
			Help: "Total number of filter cascades that produced at least one match",
		},
	)
)

// Feature Matcher metrics
var (
	// FeatureExtractionCacheResult counts the LRU memoization hits vs misses
	FeatureExtractionCacheResult = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_feature_extraction_cache_results_total",
			Help: "Feature vector extraction LRU cache lookups by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)
)

// Scheduler metrics
var (
	// SchedulerJobDuration tracks how long a scheduled job took
	SchedulerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mandimonitor_scheduler_job_duration_seconds",
			Help:    "Duration of scheduled watch-evaluation jobs by job family",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"family"},
	)

	// SchedulerJobOutcome counts job completions by family and outcome
	SchedulerJobOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_scheduler_job_outcomes_total",
			Help: "Scheduled job completions by family and outcome (completed, failed, cancelled)",
		},
		[]string{"family", "outcome"},
	)

	// SchedulerActiveJobs tracks the number of registered jobs by family
	SchedulerActiveJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mandimonitor_scheduler_active_jobs",
			Help: "Number of jobs currently registered in the scheduler, by family",
		},
		[]string{"family"},
	)
)

// Chat delivery metrics
var (
	// ChatDeliveries counts outbound deliveries by kind and outcome
	ChatDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandimonitor_chat_deliveries_total",
			Help: "Total number of chat deliveries by kind (card, no_match, digest) and outcome (ok, error)",
		},
		[]string{"kind", "outcome"},
	)

	// ChatParseFailures counts free-text parse failures
	ChatParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandimonitor_chat_parse_failures_total",
			Help: "Total number of chat watch-creation messages that failed to parse",
		},
	)
)

// RecordHTTPRequest records the duration and increments the counter for an HTTP request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// UpdateRateGovernorThrottleState sets the throttle state gauge (0=steady, 1=throttled).
func UpdateRateGovernorThrottleState(throttled bool) {
	if throttled {
		RateGovernorThrottleState.Set(1)
		RateGovernorThrottleEvents.Inc()
		return
	}
	RateGovernorThrottleState.Set(0)
}

// RecordOracleCacheResult increments the cache lookup counter for outcome.
func RecordOracleCacheResult(outcome string) {
	OracleCacheResult.WithLabelValues(outcome).Inc()
}

// RecordOracleLookup records the source that served a lookup and its duration.
func RecordOracleLookup(source string, duration time.Duration) {
	OracleSourceUsed.WithLabelValues(source).Inc()
	OracleLookupDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordOracleUnavailable increments the full-cascade-failure counter.
func RecordOracleUnavailable() {
	OracleUnavailable.Inc()
}

// RecordScrapeFallback increments the scrape fallback invocation counter.
func RecordScrapeFallback() {
	ScrapeFallbackInvocations.Inc()
}

// RecordScrapeFailure increments the scrape failure counter for reason.
func RecordScrapeFailure(reason string) {
	ScrapeFailures.WithLabelValues(reason).Inc()
}

// RecordSearchPartialResult increments the partial-result counter.
func RecordSearchPartialResult() {
	SearchPartialResults.Inc()
}

// RecordSearchSessionCacheResult increments the session cache counter for outcome.
func RecordSearchSessionCacheResult(outcome string) {
	SearchSessionCacheResult.WithLabelValues(outcome).Inc()
}

// RecordSearchResultsDeduped adds n to the deduped-results counter.
func RecordSearchResultsDeduped(n int) {
	SearchResultsDeduped.Add(float64(n))
}

// RecordFilterNoMatch increments the no-match counter for the emptying stage.
func RecordFilterNoMatch(stage string) {
	FilterNoMatchByStage.WithLabelValues(stage).Inc()
}

// RecordFilterMatch increments the filter-match counter.
func RecordFilterMatch() {
	FilterMatches.Inc()
}

// RecordFeatureExtractionCacheResult increments the LRU cache counter for outcome.
func RecordFeatureExtractionCacheResult(outcome string) {
	FeatureExtractionCacheResult.WithLabelValues(outcome).Inc()
}

// RecordSchedulerJob records a completed job's duration and outcome for family.
func RecordSchedulerJob(family, outcome string, duration time.Duration) {
	SchedulerJobDuration.WithLabelValues(family).Observe(duration.Seconds())
	SchedulerJobOutcome.WithLabelValues(family, outcome).Inc()
}

// UpdateSchedulerActiveJobs sets the registered-job gauge for family.
func UpdateSchedulerActiveJobs(family string, count int) {
	SchedulerActiveJobs.WithLabelValues(family).Set(float64(count))
}

// RecordChatDelivery increments the delivery counter for kind and outcome.
func RecordChatDelivery(kind, outcome string) {
	ChatDeliveries.WithLabelValues(kind, outcome).Inc()
}

// RecordChatParseFailure increments the parse-failure counter.
func RecordChatParseFailure() {
	ChatParseFailures.Inc()
}
