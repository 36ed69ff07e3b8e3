package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Binary layout, version 1:
//
//	byte    version
//	str     userID, email, role   (uint16 length prefix each)
//	uint16  permission count, then length-prefixed permission names
//	int64   createdAt, expiresAt, lastActivity (big endian)
//
// The token is the store key and is never part of the payload.
const sessionRecordVersionV1 = 1

const maxFieldLen = 65535

var errCorruptRecord = errors.New("corrupt session record")

// Encode serializes a session for the Redis store.
func Encode(sess *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionRecordVersionV1)

	for _, field := range []string{sess.UserID, sess.Email, sess.Role} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	if len(sess.Permissions) > maxFieldLen {
		return nil, errors.New("too many permissions")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(sess.Permissions))); err != nil {
		return nil, err
	}
	for _, p := range sess.Permissions {
		if err := writeString(&buf, p); err != nil {
			return nil, err
		}
	}

	for _, ts := range []int64{sess.CreatedAt, sess.ExpiresAt, sess.LastActivity} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode deserializes a session payload. The caller fills in Token from the
// store key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errCorruptRecord
	}
	if version != sessionRecordVersionV1 {
		return nil, errors.New("unsupported session record version")
	}

	sess := &Session{}
	if sess.UserID, err = readString(reader); err != nil {
		return nil, errCorruptRecord
	}
	if sess.Email, err = readString(reader); err != nil {
		return nil, errCorruptRecord
	}
	if sess.Role, err = readString(reader); err != nil {
		return nil, errCorruptRecord
	}

	var permCount uint16
	if err := binary.Read(reader, binary.BigEndian, &permCount); err != nil {
		return nil, errCorruptRecord
	}
	if permCount > 0 {
		sess.Permissions = make([]string, 0, permCount)
		for i := 0; i < int(permCount); i++ {
			p, err := readString(reader)
			if err != nil {
				return nil, errCorruptRecord
			}
			sess.Permissions = append(sess.Permissions, p)
		}
	}

	for _, dst := range []*int64{&sess.CreatedAt, &sess.ExpiresAt, &sess.LastActivity} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, errCorruptRecord
		}
	}

	if reader.Len() != 0 {
		return nil, errCorruptRecord
	}

	return sess, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > maxFieldLen {
		return errors.New("session field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
