package keystore

import (
	"crypto/ecdsa"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// DecryptKey decrypts a keystore v3 signing key.
func DecryptKey(keystoreJSON *KeystoreJSON, password string) (*ecdsa.PrivateKey, error) {
	if keystoreJSON.Version != version {
		return nil, errors.Wrapf(ErrUnsupported, "version %d", keystoreJSON.Version)
	}
	if keystoreJSON.Crypto.Cipher != cipherName || keystoreJSON.Crypto.KDF != kdfName {
		return nil, errors.Wrapf(ErrUnsupported, "cipher=%s kdf=%s", keystoreJSON.Crypto.Cipher, keystoreJSON.Crypto.KDF)
	}

	salt, err := hex.DecodeString(keystoreJSON.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	//nolint:varnamelen // iv is a common abbreviation for initialization vector
	iv, err := hex.DecodeString(keystoreJSON.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("failed to decode IV: %w", err)
	}

	ciphertext, err := hex.DecodeString(keystoreJSON.Crypto.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	expectedMAC, err := hex.DecodeString(keystoreJSON.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MAC: %w", err)
	}

	derivedKey, err := scrypt.Key(
		[]byte(password),
		salt,
		keystoreJSON.Crypto.KDFParams.N,
		keystoreJSON.Crypto.KDFParams.R,
		keystoreJSON.Crypto.KDFParams.P,
		keystoreJSON.Crypto.KDFParams.DKLen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	mac := calculateMAC(derivedKey[16:32], ciphertext)
	if subtle.ConstantTimeCompare(mac, expectedMAC) != 1 {
		return nil, ErrInvalidPassword
	}

	// CTR mode is symmetric
	plaintext, err := encryptAES128CTR(derivedKey[:16], iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}

	key, err := crypto.ToECDSA(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "keystore does not hold a valid key")
	}

	return key, nil
}
