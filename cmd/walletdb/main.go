// Command walletdb administers the wallet and guild document stores.
//
// The connection is configured from the environment (see package config) or
// from the YAML file given with --config. Documents are read and printed as
// MongoDB relaxed Extended JSON.
//
// # Example
//
// Hold the connection open and expose health checks:
//
//	MONGO_DB_PORT=27017 walletdb serve --health-addr :8081
//
// One-shot operations:
//
//	walletdb put wallet wallets '{"_id":"u1","user":"u1","publicKey":"PK1"}'
//	walletdb inc wallet wallets u1 balance=5
//	walletdb get wallet wallets u1
package main

import (
	"context"
	"fmt"
	"os"

	"goa.design/clue/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	return newRootCmd(newApp()).ExecuteContext(ctx)
}
