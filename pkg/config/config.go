package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/leaf"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

// Environment variable names for the whitelist tool
const (
	EnvWhitelistConfigFile      = "WHITELIST_CONFIG_FILE"
	EnvWhitelistAddresses       = "WHITELIST_ADDRESSES"
	EnvWhitelistHashAlgorithm   = "WHITELIST_HASH_ALGORITHM"
	EnvWhitelistHashKey         = "WHITELIST_HASH_KEY"
	EnvWhitelistOutput          = "WHITELIST_OUTPUT"
	EnvWhitelistPackageID       = "WHITELIST_PACKAGE_ID"
	EnvWhitelistTokenConfig     = "WHITELIST_TOKEN_CONFIG"
	EnvWhitelistPersistenceType = "WHITELIST_PERSISTENCE_TYPE"
	EnvWhitelistDataPath        = "WHITELIST_DATA_PATH"
	EnvWhitelistRedisAddress    = "WHITELIST_REDIS_ADDRESS"
	EnvWhitelistRedisPassword   = "WHITELIST_REDIS_PASSWORD"
	EnvWhitelistRedisDB         = "WHITELIST_REDIS_DB"
	EnvWhitelistRedisKeyPrefix  = "WHITELIST_REDIS_KEY_PREFIX"
	EnvWhitelistVerbose         = "WHITELIST_VERBOSE"
)

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeNone   PersistenceType = "none"
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// DefaultOutputFile returns the output file name used when none is configured.
func DefaultOutputFile(t time.Time) string {
	return fmt.Sprintf("merkle_data_%s.json", t.Format("2006-01-02"))
}

// RedisConfig holds the redis connection settings for the commitment store
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// PersistenceConfig selects and configures the commitment store
type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"`
	Redis    *RedisConfig    `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// WhitelistConfig represents the complete configuration for a commitment run
type WhitelistConfig struct {
	// Ordered whitelist; order determines leaf indices
	Addresses []string `json:"addresses" yaml:"addresses"`

	// Hash identity, must match the on-chain verifier
	HashAlgorithm string `json:"hashAlgorithm" yaml:"hashAlgorithm"`
	HashKey       string `json:"hashKey,omitempty" yaml:"hashKey,omitempty"` // hex, keyed BLAKE2b only

	ContractInfo *types.ContractInfo `json:"contractInfo,omitempty" yaml:"contractInfo,omitempty"`

	OutputPath  string             `json:"outputPath" yaml:"outputPath"`
	Persistence *PersistenceConfig `json:"persistence,omitempty" yaml:"persistence,omitempty"`

	Verbose bool `json:"verbose" yaml:"verbose"`
}

// LoadConfigFile reads a YAML whitelist configuration.
func LoadConfigFile(path string) (*WhitelistConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML (or JSON, which is valid YAML) configuration bytes.
func ParseConfig(data []byte) (*WhitelistConfig, error) {
	cfg := &WhitelistConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ParseAddressList splits a comma or whitespace separated address list.
func ParseAddressList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// HashKeyBytes decodes the configured hash key.
func (c *WhitelistConfig) HashKeyBytes() ([]byte, error) {
	if c.HashKey == "" {
		return nil, nil
	}
	key := c.HashKey
	if !strings.HasPrefix(key, "0x") {
		key = "0x" + key
	}
	return hexutil.Decode(key)
}

// NewHasher builds the hasher selected by the configuration.
func (c *WhitelistConfig) NewHasher() (hasher.Hasher, error) {
	key, err := c.HashKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("invalid hash key: %w", err)
	}
	return hasher.New(c.HashAlgorithm, key)
}

// Validate validates the whitelist configuration
func (c *WhitelistConfig) Validate() error {
	var allErrors field.ErrorList

	addrPath := field.NewPath("addresses")
	if len(c.Addresses) == 0 {
		allErrors = append(allErrors, field.Required(addrPath, "at least one address is required"))
	}
	for i, addr := range c.Addresses {
		if _, err := leaf.CanonicalBytes(addr); err != nil {
			allErrors = append(allErrors, field.Invalid(addrPath.Index(i), addr, err.Error()))
		}
	}

	if _, err := c.NewHasher(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("hashAlgorithm"), c.HashAlgorithm, err.Error()))
	}

	if c.ContractInfo != nil {
		infoPath := field.NewPath("contractInfo")
		if c.ContractInfo.PackageID != "" {
			if _, err := leaf.CanonicalBytes(c.ContractInfo.PackageID); err != nil {
				allErrors = append(allErrors, field.Invalid(infoPath.Child("packageId"), c.ContractInfo.PackageID, err.Error()))
			}
		}
		if c.ContractInfo.TokenConfig != "" {
			if _, err := leaf.CanonicalBytes(c.ContractInfo.TokenConfig); err != nil {
				allErrors = append(allErrors, field.Invalid(infoPath.Child("tokenConfig"), c.ContractInfo.TokenConfig, err.Error()))
			}
		}
	}

	if c.Persistence != nil {
		allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// Validate validates a standalone persistence configuration
func (p *PersistenceConfig) Validate() error {
	if errs := p.validate(field.NewPath("persistence")); len(errs) > 0 {
		return errs.ToAggregate()
	}
	return nil
}

func (p *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	switch p.Type {
	case "", PersistenceTypeNone, PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if p.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if p.Redis == nil || p.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "redis address is required for redis persistence"))
		} else if p.Redis.DB < 0 || p.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), p.Redis.DB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), p.Type,
			[]string{string(PersistenceTypeNone), string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis)}))
	}

	return allErrors
}
