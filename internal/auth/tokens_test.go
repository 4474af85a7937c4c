package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	codec := NewTokenCodec(testSecret)

	for _, id := range []uint{1, 42, 1 << 30} {
		token, err := codec.Issue(id)
		require.NoError(t, err)
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "+")

		got, ok := codec.Verify(token)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		valid   bool
		status  TokenStatus
	}{
		{"fresh", 0, true, TokenValid},
		{"just under max age", 599 * time.Second, true, TokenValid},
		{"exactly max age", 600 * time.Second, true, TokenValid},
		{"within the last second", 600*time.Second + 500*time.Millisecond, true, TokenValid},
		{"just over max age", 601 * time.Second, false, TokenExpired},
		{"long expired", 24 * time.Hour, false, TokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := newClock()
			codec := NewTokenCodec(testSecret, WithClock(clock.Now))

			token, err := codec.Issue(7)
			require.NoError(t, err)

			clock.Advance(tt.elapsed)
			id, ok := codec.Verify(token)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, uint(7), id)
			}
			_, status := codec.Inspect(token)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestTokenCodec_ExpiryWithSubsecondIssueTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		status  TokenStatus
	}{
		{"599.2s", 599*time.Second + 200*time.Millisecond, TokenValid},
		{"600.05s", 600*time.Second + 50*time.Millisecond, TokenValid},
		{"600.2s crosses into the next second", 600*time.Second + 200*time.Millisecond, TokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 900_000_000, time.UTC)}
			codec := NewTokenCodec(testSecret, WithClock(clock.Now))

			token, err := codec.Issue(5)
			require.NoError(t, err)

			clock.Advance(tt.elapsed)
			_, status := codec.Inspect(token)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestTokenCodec_MaxAgeAppliesAtVerification(t *testing.T) {
	t.Parallel()
	clock := newClock()
	issuer := NewTokenCodec(testSecret, WithClock(clock.Now))
	token, err := issuer.Issue(3)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	strict := NewTokenCodec(testSecret, WithClock(clock.Now), WithMaxAge(time.Minute))

	_, status := strict.Inspect(token)
	assert.Equal(t, TokenExpired, status)
}

func TestTokenCodec_AnyByteChangeIsRejected(t *testing.T) {
	t.Parallel()
	codec := NewTokenCodec(testSecret)
	token, err := codec.Issue(99)
	require.NoError(t, err)

	for i := range token {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, ok := codec.Verify(tampered)
		assert.False(t, ok, "tampered byte %d accepted", i)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	t.Parallel()
	token, err := NewTokenCodec(testSecret).Issue(5)
	require.NoError(t, err)

	_, ok := NewTokenCodec("another-secret-of-sufficient-length").Verify(token)
	assert.False(t, ok)
}

func TestTokenCodec_WrongPurpose(t *testing.T) {
	t.Parallel()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "5",
		Audience:  jwt.ClaimStrings{"CONFIRM_EMAIL"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, status := NewTokenCodec(testSecret).Inspect(token)
	assert.Equal(t, TokenMalformed, status)
}

func TestTokenCodec_RejectsUnsignedAndGarbage(t *testing.T) {
	t.Parallel()
	codec := NewTokenCodec(testSecret)

	now := time.Now()
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		Audience:  jwt.ClaimStrings{ResetPurpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-number",
		Audience:  jwt.ClaimStrings{ResetPurpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for _, token := range []string{"", "abc", "a.b.c", strings.Repeat(".", 10), unsigned, badSubject} {
		assert.NotPanics(t, func() {
			id, ok := codec.Verify(token)
			assert.False(t, ok)
			assert.Zero(t, id)
		})
	}
}

func TestTokenCodec_EmptySecret(t *testing.T) {
	t.Parallel()
	codec := NewTokenCodec("")
	_, err := codec.Issue(1)
	assert.Error(t, err)
	_, ok := codec.Verify("x.y.z")
	assert.False(t, ok)
}

func TestTokenStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "valid", TokenValid.String())
	assert.Equal(t, "expired", TokenExpired.String())
	assert.Equal(t, "malformed", TokenMalformed.String())
}
