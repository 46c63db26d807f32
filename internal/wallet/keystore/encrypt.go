package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// EncryptKey encrypts a signing key into keystore v3 format.
//
//nolint:varnamelen // iv is a common abbreviation for initialization vector
func EncryptKey(key *ecdsa.PrivateKey, password string, params ScryptParams) (*KeystoreJSON, error) {
	//nolint:mnd // 32 is the standard salt size for scrypt
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	//nolint:mnd // 16 is the standard IV size for AES-128-CTR
	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	// first 16 bytes for AES-128
	ciphertext, err := encryptAES128CTR(derivedKey[:16], iv, crypto.FromECDSA(key))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key: %w", err)
	}

	keystoreJSON := &KeystoreJSON{
		Address: hex.EncodeToString(crypto.PubkeyToAddress(key.PublicKey).Bytes()),
		Version: version,
		ID:      uuid.New().String(),
	}

	keystoreJSON.Crypto.Ciphertext = hex.EncodeToString(ciphertext)
	keystoreJSON.Crypto.CipherParams.IV = hex.EncodeToString(iv)
	keystoreJSON.Crypto.Cipher = cipherName
	keystoreJSON.Crypto.KDF = kdfName
	keystoreJSON.Crypto.KDFParams.DKLen = params.DKLen
	keystoreJSON.Crypto.KDFParams.Salt = hex.EncodeToString(salt)
	keystoreJSON.Crypto.KDFParams.N = params.N
	keystoreJSON.Crypto.KDFParams.R = params.R
	keystoreJSON.Crypto.KDFParams.P = params.P
	keystoreJSON.Crypto.MAC = hex.EncodeToString(calculateMAC(derivedKey[16:32], ciphertext))

	return keystoreJSON, nil
}

//nolint:varnamelen // iv is a common abbreviation for initialization vector
func encryptAES128CTR(key []byte, iv []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(ciphertext, plaintext)

	return ciphertext, nil
}

// calculateMAC is Keccak-256(derivedKey[16:32] ++ ciphertext).
func calculateMAC(key []byte, ciphertext []byte) []byte {
	return crypto.Keccak256(key, ciphertext)
}
