package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testGiveID = strings.Repeat("ab", 32)
	testTakeID = "0x" + strings.Repeat("cd", 32)
)

func baseFields() OrderFields {
	return OrderFields{
		Maker:          "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7",
		GivePositionID: testGiveID,
		TakePositionID: testTakeID,
		GiveAmount:     2_000_000,
		TakeAmount:     1_200_000,
		Salt:           "1699999999000000000",
		Expiration:     4_102_444_800,
	}
}

func TestOrderDigestDeterministic(t *testing.T) {
	f := baseFields()

	first, err := OrderDigest(f)
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := OrderDigest(f)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestOrderDigestFieldSensitivity(t *testing.T) {
	base, err := OrderDigest(baseFields())
	require.NoError(t, err)

	mutations := map[string]func(*OrderFields){
		"maker":       func(f *OrderFields) { f.Maker = "SP000000000000000000002Q6VF78" },
		"give amount": func(f *OrderFields) { f.GiveAmount++ },
		"take amount": func(f *OrderFields) { f.TakeAmount++ },
		"salt":        func(f *OrderFields) { f.Salt = "42" },
		"expiration":  func(f *OrderFields) { f.Expiration++ },
		"positions swapped": func(f *OrderFields) {
			f.GivePositionID, f.TakePositionID = f.TakePositionID, f.GivePositionID
		},
	}
	for name, mutate := range mutations {
		f := baseFields()
		mutate(&f)
		got, err := OrderDigest(f)
		require.NoError(t, err, name)
		require.NotEqual(t, base, got, "mutating %s must change the digest", name)
	}
}

func TestOrderDigestHexPrefixInsensitive(t *testing.T) {
	f := baseFields()
	withPrefix, err := OrderDigest(f)
	require.NoError(t, err)

	f.GivePositionID = "0x" + testGiveID
	f.TakePositionID = strings.TrimPrefix(testTakeID, "0x")
	withoutPrefix, err := OrderDigest(f)
	require.NoError(t, err)

	require.Equal(t, withPrefix, withoutPrefix)
}

func TestOrderDigestRejectsBadSalt(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"hex":        "0xdeadbeef",
		"signed":     "-42",
		"fractional": "1.5",
		"whitespace": " 42",
		"alphabetic": "notasalt",
		"over 16B":   strings.Repeat("9", 40),
	}
	for name, salt := range cases {
		f := baseFields()
		f.Salt = salt
		_, err := OrderDigest(f)
		require.Error(t, err, name)
	}
}

func TestOrderDigestRejectsBadPositionIDs(t *testing.T) {
	cases := map[string]string{
		"too short": strings.Repeat("ab", 31),
		"too long":  strings.Repeat("ab", 33),
		"not hex":   strings.Repeat("zz", 32),
		"empty":     "",
	}
	for name, id := range cases {
		f := baseFields()
		f.GivePositionID = id
		_, err := OrderDigest(f)
		require.Error(t, err, "give: %s", name)

		f = baseFields()
		f.TakePositionID = id
		_, err = OrderDigest(f)
		require.Error(t, err, "take: %s", name)
	}
}

func TestOrderDigestRejectsBadMaker(t *testing.T) {
	f := baseFields()
	f.Maker = ""
	_, err := OrderDigest(f)
	require.Error(t, err)

	f.Maker = strings.Repeat("S", 256)
	_, err = OrderDigest(f)
	require.Error(t, err)
}

func TestNewSaltIsNumeric(t *testing.T) {
	salt := NewSalt()
	require.NotEmpty(t, salt)
	for _, r := range salt {
		require.True(t, r >= '0' && r <= '9', "salt %q contains non-digit %q", salt, r)
	}

	// A fresh salt must be usable as-is.
	f := baseFields()
	f.Salt = salt
	_, err := OrderDigest(f)
	require.NoError(t, err)
}
