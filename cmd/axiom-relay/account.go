package main

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/axiomesh/axiom-relay/cmd/axiom-relay/common"
	"github.com/axiomesh/axiom-relay/internal/app"
)

var accountCMD = &cli.Command{
	Name:  "account",
	Usage: "Inspect smart accounts in the local ledger, the relay must not be running",
	Subcommands: []*cli.Command{
		{
			Name:      "info",
			Usage:     "Show balance, nonce, guardians and fee sponsor stake of an address",
			ArgsUsage: "<address>",
			Action:    accountInfo,
		},
		{
			Name:      "sender-address",
			Usage:     "Show the account address an initCode creates",
			ArgsUsage: "<init code hex>",
			Action:    senderAddress,
		},
	},
}

func openRelay(ctx *cli.Context) (*app.Relay, error) {
	r, err := common.PrepareRepo(ctx)
	if err != nil {
		return nil, err
	}
	appCtx, cancel := context.WithCancel(ctx.Context)
	relay, err := app.NewRelay(r, appCtx, cancel)
	if err != nil {
		cancel()
		return nil, err
	}
	return relay, nil
}

func accountInfo(ctx *cli.Context) error {
	if ctx.NArg() != 1 || !ethcommon.IsHexAddress(ctx.Args().First()) {
		return errors.New("an address is required")
	}
	addr := ethcommon.HexToAddress(ctx.Args().First())

	relay, err := openRelay(ctx)
	if err != nil {
		return err
	}
	defer relay.Stop()

	nonce, err := relay.GetNonce(addr)
	if err != nil {
		return err
	}
	guardians, err := relay.GetGuardians(addr)
	if err != nil {
		return err
	}
	entry, err := relay.GetStake(addr)
	if err != nil {
		return err
	}
	return common.Pretty(map[string]any{
		"address":   addr,
		"balance":   relay.GetBalance(addr),
		"nonce":     nonce,
		"guardians": guardians,
		"stake":     entry,
	})
}

func senderAddress(ctx *cli.Context) error {
	initCode, err := hexutil.Decode(ctx.Args().First())
	if err != nil {
		return errors.Wrap(err, "invalid init code")
	}

	relay, err := openRelay(ctx)
	if err != nil {
		return err
	}
	defer relay.Stop()

	addr, err := relay.GetSenderAddress(initCode)
	if err != nil {
		return err
	}
	return common.Pretty(map[string]any{"sender": addr})
}
