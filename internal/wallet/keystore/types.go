package keystore

import "github.com/pkg/errors"

var (
	// ErrInvalidPassword is returned when the MAC of a keystore does not match.
	ErrInvalidPassword = errors.New("invalid password: MAC mismatch")
	// ErrUnsupported is returned for keystores not using scrypt and aes-128-ctr.
	ErrUnsupported = errors.New("unsupported keystore")
)

const (
	version    = 3
	cipherName = "aes-128-ctr"
	kdfName    = "scrypt"
)

// KeystoreJSON is the Ethereum keystore v3 JSON structure.
//
//nolint:revive // KeystoreJSON is the standard name for Ethereum keystore JSON structure
type KeystoreJSON struct {
	Address string `json:"address"`
	Version int    `json:"version"`
	ID      string `json:"id"`
	Crypto  struct {
		Ciphertext   string `json:"ciphertext"`
		CipherParams struct {
			IV string `json:"iv"`
		} `json:"cipherparams"`
		Cipher    string `json:"cipher"`
		KDF       string `json:"kdf"`
		KDFParams struct {
			DKLen int    `json:"dklen"`
			Salt  string `json:"salt"`
			N     int    `json:"n"`
			R     int    `json:"r"`
			P     int    `json:"p"`
		} `json:"kdfparams"`
		MAC string `json:"mac"`
	} `json:"crypto"`
}

// ScryptParams defines scrypt KDF parameters
type ScryptParams struct {
	DKLen int // Derived key length (32 bytes)
	N     int // CPU/memory cost parameter
	R     int // Block size parameter
	P     int // Parallelization parameter
}

// DefaultScryptParams returns the standard scrypt parameters of keystore v3.
func DefaultScryptParams() ScryptParams {
	const (
		scryptDKLen = 32     // Derived key length (32 bytes)
		scryptN     = 262144 // CPU/memory cost parameter (2^18)
		scryptR     = 8      // Block size parameter
		scryptP     = 1      // Parallelization parameter
	)

	return ScryptParams{DKLen: scryptDKLen, N: scryptN, R: scryptR, P: scryptP}
}

// LightScryptParams trades strength for speed, as geth's light keystores do.
func LightScryptParams() ScryptParams {
	const (
		scryptN = 4096
		scryptP = 6
	)

	p := DefaultScryptParams()
	p.N = scryptN
	p.P = scryptP
	return p
}
