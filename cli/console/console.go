// Package console implements the operator debug shell: resolve, sync,
// peers and height commands over a running resolver.Resolver. Not
// named in spec.md, but a natural operator surface for a long-running
// resolver daemon (spec §9 supplemented feature), grounded on the
// teacher's cli/server.go urfave/cli command style and enriched with
// chzyer/readline + kballard/go-shellquote for line editing and
// argument splitting.
package console

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	shellquote "github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/query"
	"github.com/hnsresolver/hns-spv/pkg/resolver"
)

const prompt = "hns-spv> "

// Run starts the interactive console, reading lines until EOF or the
// user types "exit"/"quit".
func Run(r *resolver.Resolver, log *zap.Logger) error {
	rl, err := readline.New(prompt)
	if err != nil {
		return fmt.Errorf("console: start readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("console: read line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		if err := dispatch(r, args); err != nil {
			log.Warn("console command failed", zap.Strings("args", args), zap.Error(err))
			fmt.Println("error:", err)
		}
	}
}

func dispatch(r *resolver.Resolver, args []string) error {
	switch args[0] {
	case "sync":
		return runSync(r)
	case "peers":
		return runPeers(r)
	case "height":
		return runHeight(r)
	case "resolve":
		return runResolve(r, args[1:])
	case "help":
		printHelp()
		return nil
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
}

func runSync(r *resolver.Resolver) error {
	result, err := r.Sync(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("success=%v network_height=%d\n", result.Success, result.NetworkHeight)
	return nil
}

func runPeers(r *resolver.Resolver) error {
	peers := r.Peers()
	if len(peers) == 0 {
		fmt.Println("no verified peers")
		return nil
	}
	for _, addr := range peers {
		fmt.Println(addr)
	}
	return nil
}

func runHeight(r *resolver.Resolver) error {
	chainHeight, err := r.ChainHeight()
	if err != nil {
		return err
	}
	networkHeight, ok, err := r.NetworkHeight()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("chain_height=%d network_height=unknown\n", chainHeight)
		return nil
	}
	fmt.Printf("chain_height=%d network_height=%d\n", chainHeight, networkHeight)
	return nil
}

func runResolve(r *resolver.Resolver, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: resolve <name-hash-hex>")
	}
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("decode name hash: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("name hash must be 32 bytes, got %d", len(raw))
	}
	var nameHash [32]byte
	copy(nameHash[:], raw)

	result, err := r.Query(context.Background(), nameHash)
	if err != nil {
		return err
	}
	switch result.Outcome {
	case query.OutcomeSuccess:
		fmt.Printf("found: %d records, %d-byte proof\n", len(result.Records), len(result.ProofBlob))
	case query.OutcomeNotFound:
		fmt.Println("not found")
	default:
		fmt.Println("error: insufficient evidence")
	}
	return nil
}

func printHelp() {
	fmt.Println("commands: sync | peers | height | resolve <name-hash-hex> | exit")
}
