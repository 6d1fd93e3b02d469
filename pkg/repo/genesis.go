package repo

import (
	"math/big"
	"os"
	"path"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type GenesisConfig struct {
	// Admin owns the genesis tokens and price feeds
	Admin      string              `mapstructure:"admin" toml:"admin"`
	Balances   []*GenesisBalance   `mapstructure:"balances" toml:"balances"`
	Tokens     []*GenesisToken     `mapstructure:"tokens" toml:"tokens"`
	PriceFeeds []*GenesisPriceFeed `mapstructure:"price_feeds" toml:"price_feeds"`
	// Accounts are smart accounts materialized at genesis
	Accounts []*GenesisAccount `mapstructure:"accounts" toml:"accounts"`
}

type GenesisAccount struct {
	Owner     string   `mapstructure:"owner" toml:"owner"`
	Guardians []string `mapstructure:"guardians" toml:"guardians"`
	Balance   string   `mapstructure:"balance" toml:"balance"`
}

type GenesisBalance struct {
	Address string `mapstructure:"address" toml:"address"`
	Balance string `mapstructure:"balance" toml:"balance"`
}

type GenesisToken struct {
	Address  string            `mapstructure:"address" toml:"address"`
	Name     string            `mapstructure:"name" toml:"name"`
	Symbol   string            `mapstructure:"symbol" toml:"symbol"`
	Decimals uint8             `mapstructure:"decimals" toml:"decimals"`
	Holders  []*GenesisBalance `mapstructure:"holders" toml:"holders"`
}

type GenesisPriceFeed struct {
	Address string         `mapstructure:"address" toml:"address"`
	Rates   []*GenesisRate `mapstructure:"rates" toml:"rates"`
}

type GenesisRate struct {
	Token    string `mapstructure:"token" toml:"token"`
	Answer   string `mapstructure:"answer" toml:"answer"`
	Decimals uint8  `mapstructure:"decimals" toml:"decimals"`
}

const (
	defaultAdmin     = "0xc7F999b83Af6DF9e67d0a37Ee7e900bF38b3D013"
	defaultToken     = "0x00000000000000000000000000000000000a0001"
	defaultPriceFeed = "0x00000000000000000000000000000000000b0001"
)

func DefaultGenesisConfig() *GenesisConfig {
	return &GenesisConfig{
		Admin: defaultAdmin,
		Balances: []*GenesisBalance{
			{Address: defaultAdmin, Balance: DefaultAccountBalance.String()},
		},
		Tokens: []*GenesisToken{
			{
				Address:  defaultToken,
				Name:     "Relay Fee Token",
				Symbol:   "RFT",
				Decimals: 18,
				Holders: []*GenesisBalance{
					{Address: defaultAdmin, Balance: DefaultAccountBalance.String()},
				},
			},
		},
		PriceFeeds: []*GenesisPriceFeed{
			{
				Address: defaultPriceFeed,
				Rates: []*GenesisRate{
					{Token: defaultToken, Answer: "1", Decimals: 0},
				},
			},
		},
	}
}

func (g *GenesisConfig) Validate() error {
	if !common.IsHexAddress(g.Admin) {
		return errors.Errorf("invalid genesis admin address %q", g.Admin)
	}
	for _, b := range g.Balances {
		if err := b.validate(); err != nil {
			return errors.Wrap(err, "invalid genesis balance")
		}
	}
	tokenAddrs := lo.Map(g.Tokens, func(t *GenesisToken, _ int) string {
		return common.HexToAddress(t.Address).Hex()
	})
	if len(lo.Uniq(tokenAddrs)) != len(tokenAddrs) {
		return errors.New("duplicate genesis token address")
	}
	for _, t := range g.Tokens {
		if !common.IsHexAddress(t.Address) {
			return errors.Errorf("invalid genesis token address %q", t.Address)
		}
		for _, h := range t.Holders {
			if err := h.validate(); err != nil {
				return errors.Wrapf(err, "invalid holder of token %s", t.Symbol)
			}
		}
	}
	for _, f := range g.PriceFeeds {
		if !common.IsHexAddress(f.Address) {
			return errors.Errorf("invalid genesis price feed address %q", f.Address)
		}
		for _, r := range f.Rates {
			if _, ok := new(big.Int).SetString(r.Answer, 10); !ok {
				return errors.Errorf("invalid rate answer %q for token %s", r.Answer, r.Token)
			}
		}
	}
	for _, a := range g.Accounts {
		if !common.IsHexAddress(a.Owner) {
			return errors.Errorf("invalid genesis account owner %q", a.Owner)
		}
		for _, guardian := range a.Guardians {
			if !common.IsHexAddress(guardian) || common.HexToAddress(guardian) == common.HexToAddress(a.Owner) {
				return errors.Errorf("invalid guardian %q of genesis account owned by %s", guardian, a.Owner)
			}
		}
		if a.Balance != "" {
			if err := (&GenesisBalance{Address: a.Owner, Balance: a.Balance}).validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *GenesisBalance) validate() error {
	if !common.IsHexAddress(b.Address) {
		return errors.Errorf("invalid address %q", b.Address)
	}
	v, ok := new(big.Int).SetString(b.Balance, 10)
	if !ok || v.Sign() < 0 {
		return errors.Errorf("invalid balance %q of %s", b.Balance, b.Address)
	}
	return nil
}

// BalanceValue parses the decimal balance, Validate must be called first
func (b *GenesisBalance) BalanceValue() *big.Int {
	v, _ := new(big.Int).SetString(b.Balance, 10)
	return v
}

func LoadGenesisConfig(repoRoot string) (*GenesisConfig, error) {
	genesis, err := func() (*GenesisConfig, error) {
		genesis := DefaultGenesisConfig()
		cfgPath := path.Join(repoRoot, genesisCfgFileName)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := os.MkdirAll(repoRoot, 0755); err != nil {
				return nil, errors.Wrap(err, "failed to build default genesis config")
			}

			if err := writeConfigWithEnv(cfgPath, genesis); err != nil {
				return nil, errors.Wrap(err, "failed to build default genesis config")
			}
		} else {
			if err := readConfigFromFile(cfgPath, genesis); err != nil {
				return nil, err
			}
		}
		return genesis, genesis.Validate()
	}()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load genesis config")
	}
	return genesis, nil
}
