// Package cli wires the urfave/cli command surface this daemon runs
// with: sync, query and console subcommands over a resolver.Resolver.
// Grounded on the teacher's cli/server.go startServer(ctx *cli.Context)
// shape, generalized from a single "start the network server" command
// to this client's three operations (spec §6).
package cli

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	hnscli "github.com/hnsresolver/hns-spv/cli/console"
	"github.com/hnsresolver/hns-spv/pkg/config"
	"github.com/hnsresolver/hns-spv/pkg/query"
	"github.com/hnsresolver/hns-spv/pkg/resolver"
)

// New builds the top-level urfave/cli application.
func New(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "hnsspvd"
	app.Version = version
	app.Usage = "Handshake SPV light-client resolver"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file overriding the compiled-in defaults",
		},
	}
	app.Commands = []cli.Command{
		syncCommand(),
		queryCommand(),
		consoleCommand(),
	}
	return app
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.GlobalString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	return cfg.Logger.BuildLogger()
}

func openResolver(ctx *cli.Context) (*resolver.Resolver, *zap.Logger, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: build logger: %w", err)
	}
	r, err := resolver.Open(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: open resolver: %w", err)
	}
	return r, log, nil
}

func syncCommand() cli.Command {
	return cli.Command{
		Name:  "sync",
		Usage: "run one header-sync attempt against discovered peers",
		Action: func(ctx *cli.Context) error {
			r, _, err := openResolver(ctx)
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.Sync(context.Background())
			if err != nil {
				return err
			}
			if !result.Success {
				return cli.NewExitError(fmt.Sprintf("sync failed, best known network height %d", result.NetworkHeight), 1)
			}
			fmt.Printf("sync succeeded: network height %d\n", result.NetworkHeight)
			return nil
		},
	}
}

func queryCommand() cli.Command {
	return cli.Command{
		Name:      "query",
		Usage:     "resolve a single name hash against the current chain root",
		ArgsUsage: "<name-hash-hex>",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return cli.NewExitError("usage: hnsspvd query <name-hash-hex>", 1)
			}
			nameHash, err := parseHash(ctx.Args().First())
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}

			r, _, err := openResolver(ctx)
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.Query(context.Background(), nameHash)
			if err != nil {
				return err
			}
			printQueryResult(result)
			return nil
		},
	}
}

func consoleCommand() cli.Command {
	return cli.Command{
		Name:  "console",
		Usage: "start the interactive operator console",
		Action: func(ctx *cli.Context) error {
			r, log, err := openResolver(ctx)
			if err != nil {
				return err
			}
			defer r.Close()
			return hnscli.Run(r, log)
		},
	}
}

func parseHash(s string) ([32]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, fmt.Errorf("cli: decode name hash: %w", err)
	}
	if len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("cli: name hash must be 32 bytes, got %d", len(raw))
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}

func printQueryResult(result resolver.NameQueryResult) {
	switch result.Outcome {
	case query.OutcomeSuccess:
		fmt.Printf("found: %d records, %d-byte proof\n", len(result.Records), len(result.ProofBlob))
	case query.OutcomeNotFound:
		fmt.Println("not found")
	default:
		fmt.Println("error: insufficient evidence")
	}
}
