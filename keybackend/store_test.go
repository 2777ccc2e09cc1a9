package keybackend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/keybackend"
)

func TestNewSecretStore_MergesSources(t *testing.T) {
	t.Parallel()

	path := writeKeysFile(t, "keys.json", `[{"access_key": "SHARED", "secret_key": "from-file"}]`)

	store, err := keybackend.NewSecretStore(keybackend.KeysConfig{
		Inline: []keybackend.KeyPair{
			{AccessKey: "INLINE", SecretKey: "inline-secret"},
			{AccessKey: "SHARED", SecretKey: "from-inline"},
			{AccessKey: "", SecretKey: "skipped"},
		},
		Pairs: "ENV:env-secret, SHARED:from-pairs",
		File:  path,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	secret, err := store.Lookup("INLINE")
	require.NoError(t, err)
	assert.Equal(t, "inline-secret", secret)

	secret, err = store.Lookup("ENV")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", secret)

	secret, err = store.Lookup("SHARED")
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)
}

func TestNewSecretStore_EmptyConfig(t *testing.T) {
	t.Parallel()

	store, err := keybackend.NewSecretStore(keybackend.KeysConfig{})
	require.NoError(t, err)

	_, err = store.Lookup("anything")
	assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)
	assert.ErrorIs(t, err, docvault.ErrUnauthorized)
}

func TestNewSecretStore_Errors(t *testing.T) {
	t.Parallel()

	_, err := keybackend.NewSecretStore(keybackend.KeysConfig{File: "/nonexistent/keys.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read keys file")

	_, err = keybackend.NewSecretStore(keybackend.KeysConfig{Pairs: "no-colon-here"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected access:secret")
	assert.ErrorIs(t, err, keybackend.ErrInvalidKeyPair)
}

func TestParsePairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", input: "", want: map[string]string{}},
		{name: "single", input: "AK:SK", want: map[string]string{"AK": "SK"}},
		{name: "secret with colon", input: "AK:S:K", want: map[string]string{"AK": "S:K"}},
		{name: "blank entries skipped", input: " ,AK:SK, ", want: map[string]string{"AK": "SK"}},
		{name: "missing secret", input: "AK:", wantErr: true},
		{name: "missing access", input: ":SK", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := keybackend.ParsePairs(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, keybackend.ErrInvalidKeyPair)
				assert.NotContains(t, err.Error(), "SK")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
