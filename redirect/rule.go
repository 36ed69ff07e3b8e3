package redirect

import (
	"errors"
	"net/http"
	"regexp"
)

// Type selects the HTTP status of a served redirect.
type Type string

const (
	// Permanent serves 301 Moved Permanently with a cacheable response.
	Permanent Type = "permanent"
	// Temporary serves 302 Found with caching disabled.
	Temporary Type = "temporary"
)

// Status returns the HTTP status code for the type. Unknown types behave
// as [Temporary].
func (t Type) Status() int {
	if t == Permanent {
		return http.StatusMovedPermanently
	}
	return http.StatusFound
}

// Conditions narrows when a rule applies. All configured fields must match
// for the rule to fire; an empty Conditions matches every request.
type Conditions struct {
	// UserAgent must match the request's User-Agent header.
	UserAgent *regexp.Regexp

	// Referer must match the request's Referer header.
	Referer *regexp.Regexp

	// QueryParams maps parameter names to exact required values.
	QueryParams map[string]string

	// Headers maps header names to exact required values.
	Headers map[string]string
}

func (c *Conditions) match(r *http.Request) bool {
	if c == nil {
		return true
	}
	if c.UserAgent != nil && !c.UserAgent.MatchString(r.UserAgent()) {
		return false
	}
	if c.Referer != nil && !c.Referer.MatchString(r.Referer()) {
		return false
	}
	if len(c.QueryParams) > 0 {
		query := r.URL.Query()
		for name, want := range c.QueryParams {
			if query.Get(name) != want {
				return false
			}
		}
	}
	for name, want := range c.Headers {
		if r.Header.Get(name) != want {
			return false
		}
	}
	return true
}

// Rule is one redirect definition. Exactly one of Pattern and Regex selects
// the source path, and exactly one of Destination and DestinationFunc
// produces the target.
type Rule struct {
	// Pattern matches the request path literally.
	Pattern string

	// Regex matches the request path when Pattern is empty.
	Regex *regexp.Regexp

	// Destination is the literal redirect target.
	Destination string

	// DestinationFunc computes the target from the request when Destination
	// is empty.
	DestinationFunc func(r *http.Request) string

	// Type selects 301 vs 302. Zero value behaves as Temporary.
	Type Type

	// PreserveQuery re-attaches the original query string to the target.
	PreserveQuery bool

	// AddTracking appends redirected/from/timestamp query parameters.
	AddTracking bool

	// Conditions further gates the rule; nil means path match is enough.
	Conditions *Conditions

	// Priority orders evaluation, highest first. Ties keep definition order.
	Priority int
}

func (rule *Rule) validate() error {
	if rule.Pattern == "" && rule.Regex == nil {
		return errors.New("redirect rule needs a pattern or a regex")
	}
	if rule.Pattern != "" && rule.Regex != nil {
		return errors.New("redirect rule cannot have both pattern and regex")
	}
	if rule.Destination == "" && rule.DestinationFunc == nil {
		return errors.New("redirect rule needs a destination")
	}
	if rule.Destination != "" && rule.DestinationFunc != nil {
		return errors.New("redirect rule cannot have both destination forms")
	}
	return nil
}

// matches reports whether the rule applies to the request: path first, then
// every configured condition.
func (rule *Rule) matches(r *http.Request) bool {
	path := r.URL.Path
	if rule.Pattern != "" {
		if path != rule.Pattern {
			return false
		}
	} else if !rule.Regex.MatchString(path) {
		return false
	}
	return rule.Conditions.match(r)
}

// destination resolves the redirect target for the request.
func (rule *Rule) destination(r *http.Request) string {
	if rule.DestinationFunc != nil {
		return rule.DestinationFunc(r)
	}
	return rule.Destination
}
