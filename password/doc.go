// Package password hashes and verifies credentials with argon2id, encoded
// in the PHC string format so parameters travel with the hash.
package password
