package keystore

import (
	"crypto/ecdsa"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// LoadKeyFile reads and decrypts a keystore file.
func LoadKeyFile(path string, password string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keystore file")
	}

	var keystoreJSON KeystoreJSON
	if err := json.Unmarshal(raw, &keystoreJSON); err != nil {
		return nil, errors.Wrap(err, "failed to parse keystore file")
	}

	return DecryptKey(&keystoreJSON, password)
}

// WriteKeyFile encrypts key and writes it to path, readable by the owner only.
func WriteKeyFile(path string, key *ecdsa.PrivateKey, password string, params ScryptParams) error {
	keystoreJSON, err := EncryptKey(key, password, params)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(keystoreJSON, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal keystore JSON")
	}

	//nolint:mnd // owner read/write only
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrap(err, "failed to write keystore file")
	}

	return nil
}
