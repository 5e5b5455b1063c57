package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gish1337/alm-agent/internal/config"
	"github.com/gish1337/alm-agent/internal/secrets"
)

// NewSecretsCommand returns the secrets subcommand.
func NewSecretsCommand() *cli.Command {
	return &cli.Command{
		Name:  "secrets",
		Usage: "Manage encrypted config values",
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "Generate the age key pair (no-op when it exists)",
				Action: func(_ context.Context, _ *cli.Command) error {
					path := secrets.KeyPath()
					if err := secrets.GenerateIdentity(path); err != nil {
						return err
					}
					fmt.Printf("Key ready at %s\n", path)
					return nil
				},
			},
			{
				Name:      "encrypt",
				Usage:     "Encrypt a value into an ENC[age:...] blob for config.jsonc",
				ArgsUsage: "<value>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "Also write the blob to .env under this variable name",
					},
				},
				Action: runSecretsEncrypt,
			},
		},
	}
}

func runSecretsEncrypt(_ context.Context, cmd *cli.Command) error {
	value := cmd.Args().First()
	if value == "" {
		return fmt.Errorf("usage: alm secrets encrypt <value>")
	}

	keyPath := secrets.KeyPath()
	if err := secrets.GenerateIdentity(keyPath); err != nil {
		return err
	}
	identity, err := secrets.LoadIdentity(keyPath)
	if err != nil {
		return err
	}

	blob, err := secrets.Encrypt(value, identity.Recipient())
	if err != nil {
		return err
	}

	if envKey := cmd.String("env"); envKey != "" {
		if err := secrets.SetEntry(config.DotenvPath(), envKey, blob); err != nil {
			return fmt.Errorf("write .env entry: %w", err)
		}
		fmt.Printf("Wrote %s to %s\n", envKey, config.DotenvPath())
		return nil
	}

	fmt.Println(blob)
	return nil
}
