package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/config"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/logger"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence/store"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/whitelist"
)

// loadConfig reads the config file, if any, and applies flag and env overrides.
func loadConfig(c *cli.Context) (*config.WhitelistConfig, error) {
	cfg := &config.WhitelistConfig{}
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadConfigFile(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("addresses") {
		cfg.Addresses = config.ParseAddressList(c.String("addresses"))
	}
	if path := c.String("addresses-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read addresses file %s", path)
		}
		cfg.Addresses = config.ParseAddressList(string(data))
	}
	if c.IsSet("hash-algorithm") {
		cfg.HashAlgorithm = c.String("hash-algorithm")
	}
	if c.IsSet("hash-key") {
		cfg.HashKey = c.String("hash-key")
	}
	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("package-id") || c.IsSet("token-config") {
		if cfg.ContractInfo == nil {
			cfg.ContractInfo = &types.ContractInfo{}
		}
		if c.IsSet("package-id") {
			cfg.ContractInfo.PackageID = c.String("package-id")
		}
		if c.IsSet("token-config") {
			cfg.ContractInfo.TokenConfig = c.String("token-config")
		}
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}

	applyPersistenceFlags(c, cfg)
	return cfg, nil
}

func applyPersistenceFlags(c *cli.Context, cfg *config.WhitelistConfig) {
	if cfg.Persistence == nil {
		cfg.Persistence = &config.PersistenceConfig{}
	}
	p := cfg.Persistence

	if c.IsSet("persistence-type") {
		p.Type = config.PersistenceType(c.String("persistence-type"))
	}
	if c.IsSet("data-path") {
		p.DataPath = c.String("data-path")
	}
	if c.IsSet("redis-address") || c.IsSet("redis-password") || c.IsSet("redis-db") || c.IsSet("redis-key-prefix") {
		if p.Redis == nil {
			p.Redis = &config.RedisConfig{}
		}
		if c.IsSet("redis-address") {
			p.Redis.Address = c.String("redis-address")
		}
		if c.IsSet("redis-password") {
			p.Redis.Password = c.String("redis-password")
		}
		if c.IsSet("redis-db") {
			p.Redis.DB = c.Int("redis-db")
		}
		if c.IsSet("redis-key-prefix") {
			p.Redis.KeyPrefix = c.String("redis-key-prefix")
		}
	}
}

func newLogger(cfg *config.WhitelistConfig) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// openStore opens the configured store. It fails when persistence is disabled.
func openStore(cfg *config.WhitelistConfig, l *zap.Logger) (persistence.ICommitmentPersistence, error) {
	s, err := store.NewPersistence(cfg.Persistence, l)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("no commitment store configured, set --persistence-type")
	}
	return s, nil
}

// hasherFor picks the configured hasher, falling back to the algorithm the
// commitment records when none was configured.
func hasherFor(cfg *config.WhitelistConfig, c *types.Commitment) (hasher.Hasher, error) {
	if cfg.HashAlgorithm == "" && c != nil {
		cfg.HashAlgorithm = c.HashAlgorithm
	}
	h, err := cfg.NewHasher()
	if err != nil {
		return nil, fmt.Errorf("invalid hash configuration: %w", err)
	}
	return h, nil
}

func parseRoot(s string) (common.Hash, error) {
	var root common.Hash
	if err := root.UnmarshalText([]byte(s)); err != nil {
		return common.Hash{}, fmt.Errorf("invalid root %q: %w", s, err)
	}
	return root, nil
}

// loadStoredCommitment loads the commitment named by --root, or the active one.
func loadStoredCommitment(c *cli.Context, s persistence.ICommitmentPersistence) (*types.Commitment, error) {
	var root common.Hash
	var err error
	if r := c.String("root"); r != "" {
		if root, err = parseRoot(r); err != nil {
			return nil, err
		}
	} else {
		if root, err = s.GetActiveRoot(); err != nil {
			return nil, err
		}
		if root == (common.Hash{}) {
			return nil, fmt.Errorf("no active root, pass --root")
		}
	}

	commitment, err := s.LoadCommitment(root)
	if err != nil {
		return nil, err
	}
	if commitment == nil {
		return nil, fmt.Errorf("commitment %s not found", root.Hex())
	}
	return commitment, nil
}

func writeJSON(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func runGenerate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	h, err := cfg.NewHasher()
	if err != nil {
		return fmt.Errorf("invalid hash configuration: %w", err)
	}

	s, err := store.NewPersistence(cfg.Persistence, l)
	if err != nil {
		return err
	}
	if s == nil && c.Bool("activate") {
		return fmt.Errorf("--activate requires a commitment store")
	}
	if s != nil {
		defer func() { _ = s.Close() }()
	}

	commitment, err := whitelist.NewGenerator(h, l).Generate(c.Context, cfg.Addresses, cfg.ContractInfo)
	if err != nil {
		return err
	}

	if c.Bool("stdout") {
		if err := writeJSON(c, commitment); err != nil {
			return err
		}
	} else {
		path := cfg.OutputPath
		if path == "" {
			path = config.DefaultOutputFile(commitment.CreatedAt)
		}
		data, err := json.MarshalIndent(commitment, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode commitment: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write commitment to %s", path)
		}
		l.Sugar().Infow("Wrote commitment", "path", path, "root", commitment.Root.Hex())
	}

	if s == nil {
		return nil
	}
	if err := s.SaveCommitment(commitment); err != nil {
		return err
	}
	if c.Bool("activate") {
		if err := s.SetActiveRoot(commitment.Root); err != nil {
			return err
		}
	}
	l.Sugar().Infow("Stored commitment", "root", commitment.Root.Hex(), "active", c.Bool("activate"))
	return nil
}

func runVerify(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	var commitment *types.Commitment
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read commitment file %s", path)
		}
		if commitment, err = persistence.UnmarshalCommitment(data); err != nil {
			return errors.Wrapf(err, "failed to parse commitment file %s", path)
		}
	} else {
		s, err := openStore(cfg, l)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if commitment, err = loadStoredCommitment(c, s); err != nil {
			return err
		}
	}

	h, err := hasherFor(cfg, commitment)
	if err != nil {
		return err
	}

	if addr := c.String("address"); addr != "" {
		proof, err := whitelist.FindProof(commitment, addr)
		if err != nil {
			return err
		}
		if err := whitelist.VerifyAccountProof(h, proof, commitment.Root); err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.App.Writer, "OK %s index %d root %s\n", proof.AccountID, proof.Index, commitment.Root.Hex())
		return err
	}

	if err := whitelist.VerifyCommitment(c.Context, h, commitment); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "OK root %s addresses %d\n", commitment.Root.Hex(), len(commitment.Addresses))
	return err
}

func runShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	s, err := openStore(cfg, l)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	commitment, err := loadStoredCommitment(c, s)
	if err != nil {
		return err
	}

	if addr := c.String("address"); addr != "" {
		proof, err := whitelist.FindProof(commitment, addr)
		if err != nil {
			return err
		}
		return writeJSON(c, proof)
	}
	return writeJSON(c, commitment)
}

func runList(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	s, err := openStore(cfg, l)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	commitments, err := s.ListCommitments()
	if err != nil {
		return err
	}
	active, err := s.GetActiveRoot()
	if err != nil {
		return err
	}

	for _, commitment := range commitments {
		marker := ""
		if commitment.Root == active {
			marker = "\t(active)"
		}
		if _, err := fmt.Fprintf(c.App.Writer, "%s\t%s\t%d%s\n",
			commitment.Root.Hex(), commitment.CreatedAt.Format(time.RFC3339), commitment.TotalAddresses, marker); err != nil {
			return err
		}
	}
	return nil
}
