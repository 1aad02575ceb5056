package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/config"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "whitelist-merkle",
		Usage: "Merkle commitments over account whitelists",
		Description: `Builds a merkle root over an ordered list of account identifiers and an
inclusion proof for every account, for publishing to an on-chain verifier.

Identifiers are hex strings of up to 32 bytes. Each is right-padded with zeros
to 32 bytes and hashed to form its leaf; the order of the list fixes the leaf
indices and therefore the root.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{config.EnvWhitelistConfigFile},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvWhitelistVerbose},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Commitment store: none, memory, badger or redis",
				EnvVars: []string{config.EnvWhitelistPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvWhitelistDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvWhitelistRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvWhitelistRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvWhitelistRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvWhitelistRedisKeyPrefix},
			},
		},
		Commands: []*cli.Command{
			generateCommand(),
			verifyCommand(),
			showCommand(),
			listCommand(),
		},
	}
}

func hashFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "hash-algorithm",
			Usage:   "Hash function, one of " + joinAlgorithms(),
			EnvVars: []string{config.EnvWhitelistHashAlgorithm},
		},
		&cli.StringFlag{
			Name:    "hash-key",
			Usage:   "Hex key for keyed BLAKE2b-256",
			EnvVars: []string{config.EnvWhitelistHashKey},
		},
	}
}

func rootFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "root",
		Usage: "0x-prefixed merkle root of a stored commitment (defaults to the active root)",
	}
}

func joinAlgorithms() string {
	return strings.Join(hasher.SupportedAlgorithms(), ", ")
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Build a commitment over a whitelist and write it with all proofs",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "addresses",
				Aliases: []string{"a"},
				Usage:   "Comma separated account identifiers, in leaf order",
				EnvVars: []string{config.EnvWhitelistAddresses},
			},
			&cli.StringFlag{
				Name:  "addresses-file",
				Usage: "File of account identifiers separated by commas or newlines",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (defaults to merkle_data_<date>.json)",
				EnvVars: []string{config.EnvWhitelistOutput},
			},
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "Write the commitment to stdout instead of a file",
			},
			&cli.StringFlag{
				Name:    "package-id",
				Usage:   "On-chain package id recorded in the output",
				EnvVars: []string{config.EnvWhitelistPackageID},
			},
			&cli.StringFlag{
				Name:    "token-config",
				Usage:   "On-chain token config object id recorded in the output",
				EnvVars: []string{config.EnvWhitelistTokenConfig},
			},
			&cli.BoolFlag{
				Name:  "activate",
				Usage: "Mark the new root as active in the commitment store",
			},
		}, hashFlags()...),
		Action: runGenerate,
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a commitment file, or one account against a stored commitment",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Commitment JSON file written by generate",
			},
			rootFlag(),
			&cli.StringFlag{
				Name:  "address",
				Usage: "Verify only this account's proof",
			},
		}, hashFlags()...),
		Action: runVerify,
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print a stored commitment, or one account's proof",
		Flags: []cli.Flag{
			rootFlag(),
			&cli.StringFlag{
				Name:  "address",
				Usage: "Print only this account's proof",
			},
		},
		Action: runShow,
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List stored commitments",
		Action: runList,
	}
}
