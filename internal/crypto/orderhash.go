// Package crypto provides key management, order hashing, and secp256k1
// signing for the oddsdesk order pipeline.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// positionIDLen is the byte length every position identifier must decode
	// to. The on-chain verifier rejects any other length, so we reject before
	// hashing.
	positionIDLen = 32

	// saltLen is the fixed big-endian width the salt is padded to in the
	// canonical encoding.
	saltLen = 16
)

// OrderFields carries the seven order fields covered by the signature, in the
// byte layout the on-chain verifier expects. GivePositionID is the token the
// maker gives up, TakePositionID the token the maker receives.
type OrderFields struct {
	Maker          string
	GivePositionID string
	TakePositionID string
	GiveAmount     uint64
	TakeAmount     uint64
	Salt           string // numeric string
	Expiration     uint64 // block height
}

// OrderDigest deterministically serializes the order fields and returns the
// hex-encoded SHA-256 digest to be signed.
//
// Canonical layout, concatenated in order:
//
//	len(maker) (1 byte) || maker (utf-8)
//	givePositionID (32 bytes) || takePositionID (32 bytes)
//	giveAmount (8 bytes BE)   || takeAmount (8 bytes BE)
//	salt (16 bytes BE)        || expiration (8 bytes BE)
//
// The salt must be a purely numeric string and each position id must decode
// to exactly 32 bytes; both are validated before any hashing happens.
func OrderDigest(f OrderFields) (string, error) {
	if f.Maker == "" {
		return "", fmt.Errorf("crypto: order digest: maker must not be empty")
	}
	if len(f.Maker) > 255 {
		return "", fmt.Errorf("crypto: order digest: maker address too long (%d bytes)", len(f.Maker))
	}

	saltBytes, err := encodeSalt(f.Salt)
	if err != nil {
		return "", err
	}

	giveID, err := decodePositionID(f.GivePositionID)
	if err != nil {
		return "", fmt.Errorf("crypto: order digest: give position: %w", err)
	}
	takeID, err := decodePositionID(f.TakePositionID)
	if err != nil {
		return "", fmt.Errorf("crypto: order digest: take position: %w", err)
	}

	buf := make([]byte, 0, 1+len(f.Maker)+2*positionIDLen+8+8+saltLen+8)
	buf = append(buf, byte(len(f.Maker)))
	buf = append(buf, f.Maker...)
	buf = append(buf, giveID...)
	buf = append(buf, takeID...)
	buf = binary.BigEndian.AppendUint64(buf, f.GiveAmount)
	buf = binary.BigEndian.AppendUint64(buf, f.TakeAmount)
	buf = append(buf, saltBytes...)
	buf = binary.BigEndian.AppendUint64(buf, f.Expiration)

	digest := sha256.Sum256(buf)
	return hex.EncodeToString(digest[:]), nil
}

// NewSalt returns a fresh numeric-string salt derived from the current
// timestamp. Uniqueness is the requirement here, not unpredictability: the
// salt only distinguishes otherwise-identical orders.
func NewSalt() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// encodeSalt validates that salt is a purely numeric string and returns its
// fixed-width big-endian encoding.
func encodeSalt(salt string) ([]byte, error) {
	if salt == "" {
		return nil, fmt.Errorf("crypto: order digest: salt must not be empty")
	}
	for _, r := range salt {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("crypto: order digest: salt %q is not a numeric string", salt)
		}
	}

	n, ok := new(big.Int).SetString(salt, 10)
	if !ok {
		return nil, fmt.Errorf("crypto: order digest: salt %q is not a numeric string", salt)
	}
	b := n.Bytes()
	if len(b) > saltLen {
		return nil, fmt.Errorf("crypto: order digest: salt %q exceeds %d bytes", salt, saltLen)
	}
	padded := make([]byte, saltLen)
	copy(padded[saltLen-len(b):], b)
	return padded, nil
}

// decodePositionID hex-decodes a position identifier (with or without the 0x
// prefix) and enforces the exact 32-byte length.
func decodePositionID(id string) ([]byte, error) {
	raw := strings.TrimPrefix(id, "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", id, err)
	}
	if len(b) != positionIDLen {
		return nil, fmt.Errorf("position id %q decodes to %d bytes, want %d", id, len(b), positionIDLen)
	}
	return b, nil
}
