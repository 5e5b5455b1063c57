package secrets

import (
	"fmt"
	"os"

	"filippo.io/age"

	"github.com/gish1337/alm-agent/internal/config"
)

// DecryptConfigValues walks the secret-bearing fields of a loaded config
// and replaces ENC[age:...] blobs with their plaintext. The identity is
// loaded lazily: a config with no encrypted values never touches the key
// file, so a missing key is only an error when something needs it.
func DecryptConfigValues(cfg *config.Config, keyPath string) error {
	var identity *age.X25519Identity

	decrypt := func(v string) (string, error) {
		if !IsEncrypted(v) {
			return v, nil
		}
		if identity == nil {
			var err error
			identity, err = LoadIdentity(keyPath)
			if err != nil {
				return "", fmt.Errorf("load age identity: %w", err)
			}
		}
		return Decrypt(v, identity)
	}

	for name, p := range cfg.Models.Providers {
		apiKey, err := decrypt(p.Auth.APIKey)
		if err != nil {
			return fmt.Errorf("provider %s api_key: %w", name, err)
		}
		token, err := decrypt(p.Auth.Token)
		if err != nil {
			return fmt.Errorf("provider %s token: %w", name, err)
		}
		p.Auth.APIKey = apiKey
		p.Auth.Token = token
		cfg.Models.Providers[name] = p
	}

	return nil
}

// HasKey reports whether an age key file exists at path.
func HasKey(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
