package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopkit/shopgate"
)

type metricsSource interface {
	MetricsSnapshot() shopgate.Snapshot
	AuditDropped() uint64
}

type counterDef struct {
	ID   shopgate.MetricID
	Name string
	Help string
}

var counterDefs = []counterDef{
	{shopgate.MetricLoginSuccess, "shopgate_login_success_total", "Successful logins."},
	{shopgate.MetricLoginFailure, "shopgate_login_failure_total", "Rejected logins."},
	{shopgate.MetricSessionCreated, "shopgate_session_created_total", "Minted sessions."},
	{shopgate.MetricSessionInvalidated, "shopgate_session_invalidated_total", "Explicit logouts."},
	{shopgate.MetricSessionExpired, "shopgate_session_expired_total", "Sessions found expired on read."},
	{shopgate.MetricAuthDenied, "shopgate_auth_denied_total", "Auth middleware rejections."},
	{shopgate.MetricGuestBlocked, "shopgate_guest_blocked_total", "Guest middleware rejections."},
	{shopgate.MetricRateLimitHit, "shopgate_rate_limit_hit_total", "Requests rejected by the rate limiter."},
	{shopgate.MetricValidationFailed, "shopgate_validation_failed_total", "Validation middleware rejections."},
	{shopgate.MetricRedirectServed, "shopgate_redirect_served_total", "Responses produced by the redirect engine."},
}

// PrometheusExporter renders gateway counters in text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter reading from the given gateway.
func NewPrometheusExporter(gw *shopgate.Gateway) *PrometheusExporter {
	return &PrometheusExporter{source: gw}
}

// NewPrometheusExporterFromSource creates an exporter from a custom source,
// for tests and embedders.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler serving the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes all counters in Prometheus text exposition format.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()

	var b strings.Builder
	b.Grow(4096)

	for _, def := range counterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	writeCounter(&b, "shopgate_audit_dropped_total",
		"Dropped audit events due to dispatcher backpressure.", p.source.AuditDropped())

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}
