package repo

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

const (
	AppName = "AxiomRelay"

	// CfgFileName is the default config name
	CfgFileName = "config.toml"

	genesisCfgFileName = "genesis.toml"

	// defaultRepoRoot is the path to the default config dir location.
	defaultRepoRoot = "~/.axiom-relay"

	// rootPathEnvVar is the environment variable used to change the path root.
	rootPathEnvVar = "AXIOM_RELAY_PATH"

	envPrefix = "AXIOM_RELAY"

	genesisEnvPrefix = "AXIOM_RELAY_GENESIS"

	pidFileName = "running.pid"

	LogsDirName = "logs"
)

const (
	KVStorageTypeMemory = "memory"
	KVStorageTypePebble = "pebble"
	KVStorageCacheSize  = 16
	KVStorageSync       = true

	DefaultChainID = 1356

	// DefaultFixedLockPeriod is how long a fee sponsor's collateral stays locked after lock()
	DefaultFixedLockPeriod = 24 * 60 * 60

	// DefaultMinimumUnstakeDelay is the minimum delay accepted by stake() in delay mode
	DefaultMinimumUnstakeDelay = 24 * 60 * 60
)

var (
	DefaultAccountBalance = new(big.Int).Mul(big.NewInt(10000000), big.NewInt(params.Ether))
)
