package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github/chapool/cctp-rebalancer/internal/config"
)

type flagBinding struct {
	name  string
	key   string
	usage string
	kind  string
}

var rebalanceFlags = []flagBinding{
	{"chains", config.KeyChains, "comma separated chain names, e.g. sepolia,polygonAmoy", "string"},
	{"chains-file", config.KeyChainsFile, "TOML file replacing the built-in chain handles", "string"},
	{"targets", config.KeyTargets, "comma separated target percentages in chain order, e.g. 40,30,30", "string"},
	{"threshold", config.KeyThreshold, "deviation in percent that triggers rebalancing", "string"},
	{"interval", config.KeyInterval, "delay between cycles", "duration"},
	{"dry-run", config.KeyDryRun, "plan and report without sending transactions", "bool"},
	{"once", config.KeyOnce, "run a single cycle and exit", "bool"},
	{"listen", config.KeyListen, "HTTP listen address, empty disables the server", "string"},
}

// BindRebalanceFlags registers the cycle flags on cmd and binds them to v.
// Only flags named in names are registered; no names registers all.
// Defaults come from v, so flags override environment which overrides
// defaults.
func BindRebalanceFlags(cmd *cobra.Command, v *viper.Viper, names ...string) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	fs := cmd.Flags()
	for _, f := range rebalanceFlags {
		if len(names) > 0 && !wanted[f.name] {
			continue
		}

		switch f.kind {
		case "bool":
			fs.Bool(f.name, v.GetBool(f.key), f.usage)
		case "duration":
			fs.Duration(f.name, v.GetDuration(f.key), f.usage)
		default:
			fs.String(f.name, v.GetString(f.key), f.usage)
		}

		if err := v.BindPFlag(f.key, fs.Lookup(f.name)); err != nil {
			panic(err)
		}
	}
}
