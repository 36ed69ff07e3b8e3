// Package redirect implements a priority-ordered, condition-gated redirect
// engine. Rules match on a literal path or a regular expression plus an
// optional AND-combined condition set (user agent, referer, query params,
// headers); the highest-priority matching rule produces a 301 or 302 with
// optional query preservation and tracking parameters. Served redirects are
// recorded in a bounded in-memory tracking log.
package redirect
