package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const tokenRandomSize = 24

// tokenRawSize is 8 bytes of creation time plus the random body. The
// timestamp prefix makes issued tokens unique even across identical random
// draws; the random body makes them unguessable.
const tokenRawSize = 8 + tokenRandomSize

// NewSessionToken returns a fresh opaque bearer token: base64url over a
// millisecond creation timestamp and 24 random bytes.
func NewSessionToken() (string, error) {
	var raw [tokenRawSize]byte

	binary.BigEndian.PutUint64(raw[:8], uint64(time.Now().UnixMilli()))
	if _, err := rand.Read(raw[8:]); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidateSessionToken rejects strings that cannot be an issued token
// before any store lookup happens.
func ValidateSessionToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return err
	}
	if len(raw) != tokenRawSize {
		return errors.New("invalid session token size")
	}
	return nil
}
