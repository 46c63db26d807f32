package keystore

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/wallet/keystore"
)

const (
	outFlag   = "out"
	lightFlag = "light"
)

var (
	ErrMissingKey      = errors.New("REBALANCER_PRIVATE_KEY must be set")
	ErrMissingPassword = errors.New("REBALANCER_KEYSTORE_PASSWORD must be set")
)

func New() *cobra.Command {
	var (
		out   string
		light bool
	)

	cmd := &cobra.Command{
		Use:   "keystore",
		Short: "Encrypts the signing key into a keystore file",
		Long: `Reads REBALANCER_PRIVATE_KEY and REBALANCER_KEYSTORE_PASSWORD and writes an
encrypted v3 keystore. The password is prompted for when unset and stdin is
a terminal. Point REBALANCER_KEYSTORE_FILE at the result and
unset REBALANCER_PRIVATE_KEY afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromViper(config.NewViper())
			if cfg.KeystorePassword == "" {
				password, err := promptPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				cfg.KeystorePassword = password
			}
			return runKeystore(cmd.OutOrStdout(), cfg, out, light)
		},
	}

	cmd.Flags().StringVar(&out, outFlag, "keystore.json", "path of the keystore file to write")
	cmd.Flags().BoolVar(&light, lightFlag, false, "use light scrypt parameters")

	return cmd
}

// promptPassword returns an empty password when stdin is not a terminal.
func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(w, "Keystore password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}

	return string(password), nil
}

func runKeystore(w io.Writer, cfg config.Rebalancer, out string, light bool) error {
	if cfg.PrivateKey == "" {
		return ErrMissingKey
	}
	if cfg.KeystorePassword == "" {
		return ErrMissingPassword
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return errors.Wrap(err, "failed to parse private key")
	}

	params := keystore.DefaultScryptParams()
	if light {
		params = keystore.LightScryptParams()
	}

	if err := keystore.WriteKeyFile(out, key, cfg.KeystorePassword, params); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote keystore for %s to %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex(), out)

	return nil
}
