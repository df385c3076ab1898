// Command sbv verifies Ethereum block witness files: it re-executes each
// block against the partial state the witness reveals and checks the
// resulting state root against the one the header claims.
package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/sbv-go/sbv/chainspec"
	"github.com/sbv-go/sbv/engine/gethexec"
	"github.com/sbv-go/sbv/log"
	"github.com/sbv-go/sbv/verifier"
	"github.com/sbv-go/sbv/witness"
)

var (
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Value: "info",
		Usage: "log verbosity (debug, info, warn, error)",
	}
	forkFlag = &cli.StringFlag{
		Name:  "fork",
		Usage: "force this fork active from genesis on every chain",
	}
	chunkFlag = &cli.BoolFlag{
		Name:  "chunk",
		Usage: "treat the witness files as one contiguous chunk",
	}
	parallelFlag = &cli.IntFlag{
		Name:  "parallel",
		Value: 1,
		Usage: "number of blocks verified concurrently",
	}
)

func main() {
	app := &cli.App{
		Name:  "sbv",
		Usage: "stateless block verifier",
		Flags: []cli.Flag{logLevelFlag, forkFlag},
		Commands: []*cli.Command{
			runFileCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runFileCommand() *cli.Command {
	return &cli.Command{
		Name:      "run-file",
		Usage:     "verify one or more block witness files",
		ArgsUsage: "<witness.json>...",
		Flags:     []cli.Flag{chunkFlag, parallelFlag},
		Action:    runFile,
	}
}

func runFile(ctx *cli.Context) error {
	log.SetDefault(log.New(log.LevelFromString(ctx.String("log-level"))))
	logger := log.Default().Module("sbv")

	if ctx.NArg() == 0 {
		return cli.Exit("run-file: no witness files given", 2)
	}
	witnesses := make([]*witness.BlockWitness, ctx.NArg())
	for i, path := range ctx.Args().Slice() {
		w, err := witness.ReadFile(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("read %s: %v", path, err), 2)
		}
		witnesses[i] = w
	}

	v, err := newVerifier(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if ctx.Bool("chunk") {
		result, err := v.VerifyChunk(witnesses)
		if err != nil {
			return cli.Exit(fmt.Sprintf("chunk verification failed: %v", err), 1)
		}
		logger.Info("chunk verified",
			"blocks", len(witnesses),
			"last_block", result.BlockNumber,
			"gas_used", result.GasUsed,
			"post_state_root", result.PostStateRoot.Hex())
		return nil
	}

	if err := verifyAll(v, witnesses, ctx.Int("parallel"), logger); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func newVerifier(ctx *cli.Context) (*verifier.Verifier, error) {
	var opts []chainspec.Option
	if name := ctx.String("fork"); name != "" {
		fork, err := chainspec.ParseFork(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chainspec.WithForkOverride(fork))
	}
	return verifier.New(chainspec.NewProvider(opts...), gethexec.New()), nil
}

// verifyAll checks each witness independently, up to parallel at a time.
// Every failure is reported; the first one becomes the exit error.
func verifyAll(v *verifier.Verifier, witnesses []*witness.BlockWitness, parallel int, logger *log.Logger) error {
	if parallel < 1 {
		parallel = 1
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	jobs := make(chan *witness.BlockWitness)
	for range parallel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range jobs {
				result, err := v.VerifyBlock(w)
				if err != nil {
					logger.Error("block verification failed", "number", w.Number(), "err", err)
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("block %d: %w", w.Number(), err)
					}
					mu.Unlock()
					continue
				}
				logger.Info("block verified",
					"number", result.BlockNumber,
					"gas_used", result.GasUsed,
					"post_state_root", result.PostStateRoot.Hex())
			}
		}()
	}
	for _, w := range witnesses {
		jobs <- w
	}
	close(jobs)
	wg.Wait()
	return firstErr
}
