package keybackend

import (
	"fmt"
	"strings"
)

// KeysConfig lists where access keys come from. All sources are merged;
// later sources win on duplicate access keys: inline, then pairs, then file.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline"`
	// Pairs is a comma separated "access:secret" list, convenient for a single
	// environment variable on hosted platforms.
	Pairs string `mapstructure:"pairs"`
	File  string `mapstructure:"file"`
}

// NewSecretStore builds a MapSecretStore from every configured source.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys := make(map[string]string)

	for _, p := range cfg.Inline {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	pairs, err := ParsePairs(cfg.Pairs)
	if err != nil {
		return nil, err
	}
	for k, v := range pairs {
		keys[k] = v
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return NewMapSecretStore(keys), nil
}

// ParsePairs parses "access:secret,access2:secret2". Blank entries are skipped.
func ParsePairs(s string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		access, secret, ok := strings.Cut(entry, ":")
		if !ok || access == "" || secret == "" {
			return nil, fmt.Errorf("parse key pair %q: expected access:secret: %w", redact(entry), ErrInvalidKeyPair)
		}
		keys[access] = secret
	}
	return keys, nil
}

func redact(entry string) string {
	access, _, _ := strings.Cut(entry, ":")
	return access + ":***"
}
