package redirect

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/audit"
)

// defaultMaxTracking bounds the in-memory tracking log.
const defaultMaxTracking = 1000

// TrackingEntry records one served redirect.
type TrackingEntry struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Type      Type      `json:"type"`
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `json:"ip,omitempty"`
}

// HandlerConfig carries the optional collaborators of a [Handler].
type HandlerConfig struct {
	// MaxTrackingEntries bounds the tracking log; oldest entries are evicted
	// first. Zero means the default of 1000.
	MaxTrackingEntries int

	// Metrics, when set, counts served redirects.
	Metrics *shopgate.Metrics

	// Audit, when set, receives one event per served redirect.
	Audit *audit.Dispatcher
}

// Handler evaluates redirect rules in descending priority order and serves
// the first match.
type Handler struct {
	rules       []Rule
	maxTracking int
	metrics     *shopgate.Metrics
	audit       *audit.Dispatcher

	mu  sync.Mutex
	log []TrackingEntry
}

// NewHandler validates the rules and freezes them into priority order.
func NewHandler(cfg HandlerConfig, rules ...Rule) (*Handler, error) {
	for i := range rules {
		if err := rules[i].validate(); err != nil {
			return nil, err
		}
	}

	ordered := append([]Rule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	maxTracking := cfg.MaxTrackingEntries
	if maxTracking <= 0 {
		maxTracking = defaultMaxTracking
	}

	return &Handler{
		rules:       ordered,
		maxTracking: maxTracking,
		metrics:     cfg.Metrics,
		audit:       cfg.Audit,
	}, nil
}

// Match returns the highest-priority rule applying to the request, or nil.
func (h *Handler) Match(r *http.Request) *Rule {
	for i := range h.rules {
		if h.rules[i].matches(r) {
			return &h.rules[i]
		}
	}
	return nil
}

// Redirect serves the rule's redirect for the request: resolves the target,
// optionally re-attaches the original query and appends tracking parameters,
// sets the X-Redirect-* and Cache-Control headers, and records the entry.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request, rule *Rule) {
	from := r.URL.Path
	target := rule.destination(r)

	if dest, err := url.Parse(target); err == nil {
		query := dest.Query()
		if rule.PreserveQuery {
			for name, values := range r.URL.Query() {
				if query.Get(name) == "" {
					for _, v := range values {
						query.Add(name, v)
					}
				}
			}
		}
		if rule.AddTracking {
			query.Set("redirected", "true")
			query.Set("from", from)
			query.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		}
		dest.RawQuery = query.Encode()
		target = dest.String()
	}

	header := w.Header()
	header.Set("X-Redirect-From", from)
	header.Set("X-Redirect-To", target)
	header.Set("X-Redirect-Type", string(rule.Type))
	if rule.Type == Permanent {
		header.Set("Cache-Control", "public, max-age=86400")
	} else {
		header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}

	h.track(TrackingEntry{
		Timestamp: time.Now(),
		From:      from,
		To:        target,
		Type:      rule.Type,
		UserAgent: r.UserAgent(),
		IP:        shopgate.ClientIPFromContext(r.Context()),
	})

	h.metrics.Inc(shopgate.MetricRedirectServed)
	h.audit.Emit(r.Context(), audit.Event{
		Timestamp: time.Now(),
		Type:      audit.EventRedirect,
		IP:        shopgate.ClientIPFromContext(r.Context()),
		Path:      from,
		Success:   true,
		Metadata:  map[string]string{"to": target, "type": string(rule.Type)},
	})

	http.Redirect(w, r, target, rule.Type.Status())
}

func (h *Handler) track(entry TrackingEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log = append(h.log, entry)
	if overflow := len(h.log) - h.maxTracking; overflow > 0 {
		h.log = append(h.log[:0], h.log[overflow:]...)
	}
}

// TrackingLog returns a copy of the recorded redirects, oldest first.
func (h *Handler) TrackingLog() []TrackingEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TrackingEntry(nil), h.log...)
}

// Middleware wraps next: matching requests are redirected, everything else
// falls through.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rule := h.Match(r); rule != nil {
			h.Redirect(w, r, rule)
			return
		}
		next.ServeHTTP(w, r)
	})
}
