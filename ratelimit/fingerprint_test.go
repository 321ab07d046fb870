package ratelimit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	decode := func(s string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(s), &v))
		return v
	}

	t.Run("key order does not matter at any depth", func(t *testing.T) {
		a, err := Fingerprint(decode(`{"content":"hi","embeds":[{"title":"t","color":1}]}`))
		require.NoError(t, err)
		b, err := Fingerprint(decode(`{"embeds":[{"color":1,"title":"t"}],"content":"hi"}`))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("raw messages are canonicalized too", func(t *testing.T) {
		a, err := Fingerprint(map[string]json.RawMessage{"embeds": json.RawMessage(`[{"b":2,"a":1}]`)})
		require.NoError(t, err)
		b, err := Fingerprint(map[string]json.RawMessage{"embeds": json.RawMessage(`[{"a":1, "b":2}]`)})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("array order matters", func(t *testing.T) {
		a, _ := Fingerprint(decode(`{"embeds":[1,2]}`))
		b, _ := Fingerprint(decode(`{"embeds":[2,1]}`))
		assert.NotEqual(t, a, b)
	})

	t.Run("different content differs", func(t *testing.T) {
		a, _ := Fingerprint(decode(`{"content":"a"}`))
		b, _ := Fingerprint(decode(`{"content":"b"}`))
		assert.NotEqual(t, a, b)
	})

	t.Run("large numbers keep their spelling", func(t *testing.T) {
		a, _ := Fingerprint(map[string]json.RawMessage{"n": json.RawMessage(`12345678901234567890`)})
		b, _ := Fingerprint(map[string]json.RawMessage{"n": json.RawMessage(`12345678901234567891`)})
		assert.NotEqual(t, a, b)
	})

	t.Run("unavailable", func(t *testing.T) {
		_, err := Fingerprint(nil)
		assert.ErrorIs(t, err, ErrFingerprintUnavailable)

		_, err = Fingerprint(map[string]any{"c": make(chan int)})
		assert.ErrorIs(t, err, ErrFingerprintUnavailable)
	})
}
