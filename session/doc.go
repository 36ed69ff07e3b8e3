// Package session stores gateway sessions keyed by opaque bearer tokens.
//
// Expiry is absolute from creation: reads refresh LastActivity as an
// informational field but never extend ExpiresAt. Expired entries are
// deleted lazily on the read that discovers them, so a token observed as
// expired once stays gone.
package session
