package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedforward/feedforward/pkg/token"
)

const testSecret = "test-secret-at-least-32-chars-long!!"

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires secret", func(t *testing.T) {
		t.Parallel()

		_, err := token.New("")
		assert.ErrorIs(t, err, token.ErrMissingSecret)
	})
}

func TestService_IssueVerify(t *testing.T) {
	t.Parallel()

	svc, err := token.New(testSecret)
	require.NoError(t, err)

	t.Run("round trip returns subject", func(t *testing.T) {
		t.Parallel()

		tok, err := svc.Issue("user-42", token.PurposeSession, time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		subject, err := svc.Verify(tok, token.PurposeSession)
		require.NoError(t, err)
		assert.Equal(t, "user-42", subject)
	})

	t.Run("expired token fails with ErrTokenExpired", func(t *testing.T) {
		t.Parallel()

		tok, err := svc.Issue("user-42", token.PurposeSession, -time.Minute)
		require.NoError(t, err)

		_, err = svc.Verify(tok, token.PurposeSession)
		assert.ErrorIs(t, err, token.ErrTokenExpired)
	})

	t.Run("tampered token fails with ErrTokenInvalid", func(t *testing.T) {
		t.Parallel()

		tok, err := svc.Issue("user-42", token.PurposeSession, time.Hour)
		require.NoError(t, err)

		// Flip one character in every position of the payload segment;
		// each mutation must be rejected as invalid, never as expired.
		parts := strings.Split(tok, ".")
		require.Len(t, parts, 3)
		payload := []byte(parts[1])
		for i := range payload {
			mutated := make([]byte, len(payload))
			copy(mutated, payload)
			if mutated[i] == 'A' {
				mutated[i] = 'B'
			} else {
				mutated[i] = 'A'
			}

			_, err := svc.Verify(parts[0]+"."+string(mutated)+"."+parts[2], token.PurposeSession)
			assert.ErrorIs(t, err, token.ErrTokenInvalid)
		}
	})

	t.Run("wrong purpose fails", func(t *testing.T) {
		t.Parallel()

		tok, err := svc.Issue("user-42", token.PurposeEmailVerify, time.Hour)
		require.NoError(t, err)

		_, err = svc.Verify(tok, token.PurposeSession)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		t.Parallel()

		other, err := token.New("another-secret-that-is-32-chars-long")
		require.NoError(t, err)

		tok, err := svc.Issue("user-42", token.PurposeSession, time.Hour)
		require.NoError(t, err)

		_, err = other.Verify(tok, token.PurposeSession)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("garbage fails", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Verify("not-a-token", token.PurposeSession)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})
}
