package ctl

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/bingo/internal/password"
)

// readPassword берет пароль из PasswordEnv, иначе спрашивает интерактивно
func (c *Ctl) readPassword() (string, error) {
	if pw := c.getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	pw, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if pw == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return pw, nil
}

func (c *Ctl) runHash(ctx context.Context) error {
	pw, err := c.readPassword()
	if err != nil {
		return err
	}

	record, err := c.hasher.Hash(ctx, pw)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	c.io.Println(record)
	return nil
}

func (c *Ctl) runVerify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: verify <record>", ErrUsage)
	}
	record := args[0]

	pw, err := c.readPassword()
	if err != nil {
		return err
	}

	ok, err := c.hasher.Verify(ctx, pw, record)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !ok {
		return ErrNoMatch
	}

	c.io.Println("OK")
	if c.hasher.NeedsRehash(record) {
		c.io.Println("Record uses outdated settings or pepper and will be rehashed on next login")
	}
	return nil
}

func (c *Ctl) runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	samples := fs.Int("n", 5, "number of samples")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	opts := c.hasher.Options()
	c.io.Printf("Algorithm: %s, memory: %d KiB, time: %d, threads: %d\n",
		opts.Algorithm, opts.MemoryCost, opts.TimeCost, opts.Threads)

	res, err := password.Bench(ctx, c.hasher, *samples)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	c.io.Printf("Samples: %d\n", res.Samples)
	c.io.Printf("Hash:    %s\n", res.AvgHash)
	c.io.Printf("Verify:  %s\n", res.AvgVerify)
	return nil
}
