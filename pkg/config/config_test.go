package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

const testConfigYAML = `
addresses:
  - "0xb181882764a2cfae461879e032fe05d6ed980a50a26dead8a10f4df26c0bf6af"
  - "0x6ea24779ec54ffab9f0ac53495026533a3c06ed37d5c50b2b2ee2589150d74ee"
hashAlgorithm: blake2b-256
contractInfo:
  packageId: "0xab93dcf01d5ab66e17cc46b654c4727c232e7b18cb189d8ec66645e8e0915c26"
  tokenConfig: "0x49999a2b85c7fb6e6b8ab2b2238f30095d5d0dfff8f5e5d7d3718e1896bd865b"
outputPath: out.json
persistence:
  type: badger
  dataPath: /tmp/whitelist
`

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Addresses, 2)
	assert.Equal(t, "blake2b-256", cfg.HashAlgorithm)
	assert.Equal(t, "out.json", cfg.OutputPath)
	require.NotNil(t, cfg.ContractInfo)
	assert.True(t, strings.HasPrefix(cfg.ContractInfo.PackageID, "0xab93"))
	require.NotNil(t, cfg.Persistence)
	assert.Equal(t, PersistenceTypeBadger, cfg.Persistence.Type)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := ParseConfig([]byte("addresses: [unterminated"))
	require.Error(t, err)
}

func TestParseAddressList(t *testing.T) {
	got := ParseAddressList("0x01, 0x02\n0x03\t 0x04,,")
	require.Equal(t, []string{"0x01", "0x02", "0x03", "0x04"}, got)
	require.Empty(t, ParseAddressList(" , "))
}

func TestValidate(t *testing.T) {
	valid := func() *WhitelistConfig {
		return &WhitelistConfig{
			Addresses:     []string{"0x01", "0x02"},
			HashAlgorithm: hasher.AlgorithmBlake2b256,
		}
	}

	testCases := []struct {
		name    string
		mutate  func(c *WhitelistConfig)
		wantErr string
	}{
		{"valid", func(c *WhitelistConfig) {}, ""},
		{"no addresses", func(c *WhitelistConfig) { c.Addresses = nil }, "addresses"},
		{"bad address", func(c *WhitelistConfig) { c.Addresses[1] = "0xabc" }, "addresses[1]"},
		{"long address", func(c *WhitelistConfig) { c.Addresses[0] = "0x" + strings.Repeat("ab", 33) }, "addresses[0]"},
		{"bad algorithm", func(c *WhitelistConfig) { c.HashAlgorithm = "md5" }, "hashAlgorithm"},
		{"keyed", func(c *WhitelistConfig) { c.HashKey = "0x00112233" }, ""},
		{"bad key", func(c *WhitelistConfig) { c.HashKey = "0xzz" }, "hashAlgorithm"},
		{"bad package id", func(c *WhitelistConfig) {
			c.ContractInfo = &types.ContractInfo{PackageID: "nothex"}
		}, "contractInfo.packageId"},
		{"badger without path", func(c *WhitelistConfig) {
			c.Persistence = &PersistenceConfig{Type: PersistenceTypeBadger}
		}, "persistence.dataPath"},
		{"redis without address", func(c *WhitelistConfig) {
			c.Persistence = &PersistenceConfig{Type: PersistenceTypeRedis}
		}, "persistence.redis.address"},
		{"redis bad db", func(c *WhitelistConfig) {
			c.Persistence = &PersistenceConfig{Type: PersistenceTypeRedis, Redis: &RedisConfig{Address: "localhost:6379", DB: 16}}
		}, "persistence.redis.db"},
		{"unknown persistence", func(c *WhitelistConfig) {
			c.Persistence = &PersistenceConfig{Type: "postgres"}
		}, "persistence.type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewHasher(t *testing.T) {
	cfg := &WhitelistConfig{HashAlgorithm: "keccak256"}
	h, err := cfg.NewHasher()
	require.NoError(t, err)
	require.Equal(t, hasher.AlgorithmKeccak256, h.Name())

	cfg = &WhitelistConfig{HashKey: "00112233"}
	h, err = cfg.NewHasher()
	require.NoError(t, err)
	require.Equal(t, hasher.AlgorithmKeyedBlake2b256, h.Name())
}

func TestDefaultOutputFile(t *testing.T) {
	require.Equal(t, "merkle_data_2025-03-04.json", DefaultOutputFile(time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)))
}
