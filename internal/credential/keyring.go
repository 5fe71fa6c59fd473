// Package credential keeps the community API token in the OS keyring,
// so it never sits next to the config file in plain text.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "escale"
	tokenKey    = "api-token"
)

// openKeyring returns the keyring holding escale's credentials. The
// file backend comes last so an encrypted fallback exists on headless
// setups without a native secret service.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/escale/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("escale-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Token retrieves the stored API token.
func Token() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey)
	if err != nil {
		return "", fmt.Errorf("reading API token: %w", err)
	}
	return string(item.Data), nil
}

// SetToken stores the API token, replacing any previous one.
func SetToken(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Set(keyring.Item{Key: tokenKey, Data: []byte(token)}); err != nil {
		return fmt.Errorf("storing API token: %w", err)
	}
	return nil
}

// DeleteToken removes the stored API token.
func DeleteToken() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(tokenKey); err != nil {
		return fmt.Errorf("deleting API token: %w", err)
	}
	return nil
}
