// Package signer authenticates session records with a key bound to the
// machine. The key is derived from a hardware identifier on every start and
// is never written to disk.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/haukened/lockin/internal/lockin/domain"
)

const (
	keySalt       = "lockin-session-salt"
	keyIterations = 100000
	keyLen        = 32

	// encodingVersion prefixes the canonical encoding so a future layout
	// change can never verify against an old tag.
	encodingVersion = "lockin-session-v1"
)

// ErrNoHardwareID is returned when no usable machine identifier exists.
var ErrNoHardwareID = errors.New("no hardware identifier available")

// DeriveKey stretches a hardware identifier into a Machine Key.
func DeriveKey(hardwareID string) ([]byte, error) {
	id := strings.TrimSpace(hardwareID)
	if id == "" {
		return nil, ErrNoHardwareID
	}
	return pbkdf2.Key([]byte(id), []byte(keySalt), keyIterations, keyLen, sha256.New), nil
}

// Signer produces and checks session tags with a fixed key.
type Signer struct {
	key []byte
}

// New returns a Signer for key. The key is copied.
func New(key []byte) *Signer {
	return &Signer{key: append([]byte(nil), key...)}
}

// Sign returns the hex-encoded HMAC-SHA256 tag over the session's signed
// fields. The Signature field itself is not covered.
func (s *Signer) Sign(sess domain.Session) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(CanonicalEncoding(sess))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag and compares it in constant time.
func (s *Signer) Verify(sess domain.Session) bool {
	got, err := hex.DecodeString(sess.Signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(CanonicalEncoding(sess))
	return hmac.Equal(got, mac.Sum(nil))
}

// CanonicalEncoding serializes the signed fields in a fixed layout. Every
// string is length-prefixed and lists carry their element count, so no two
// distinct sessions share an encoding. List order is significant.
func CanonicalEncoding(sess domain.Session) []byte {
	var b []byte
	b = appendString(b, encodingVersion)
	b = appendString(b, sess.Profile)
	b = binary.BigEndian.AppendUint64(b, uint64(sess.Start.UTC().UnixNano()))
	b = binary.BigEndian.AppendUint64(b, uint64(sess.DurationSeconds))
	b = appendList(b, sess.Domains)
	b = appendList(b, sess.Apps)
	return b
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendList(b []byte, items []string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(items)))
	for _, it := range items {
		b = appendString(b, it)
	}
	return b
}
