package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("reads values from config.yaml", func(t *testing.T) {
		home := t.TempDir()
		content := `
wallet:
  keyfile: "/tmp/other-key.json"
logger:
  verbosity: "debug"
rpcProvider: "http://localhost:8545"
networkId: 31337
registry:
  addresses:
    31337: "0xB7f8BC63BbcaD18155201308C8f3540b07f84F5e"
  pollInterval: 15s
tx:
  pollInterval: 1s
  confirmTimeout: 90s
enumerator:
  maxProbe: 500
watch:
  listenPort: 9190
`
		err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(content), 0644)
		require.NoError(t, err)

		cfg, err := LoadConfig(home)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/other-key.json", cfg.Wallet.Keyfile)
		assert.Equal(t, "debug", cfg.Logger.Verbosity)
		assert.Equal(t, "http://localhost:8545", cfg.RpcProvider)
		assert.Equal(t, uint64(31337), cfg.NetworkID)
		assert.Equal(t, "0xB7f8BC63BbcaD18155201308C8f3540b07f84F5e", cfg.Registry.Addresses[31337])
		assert.Equal(t, 15*time.Second, cfg.Registry.PollInterval)
		assert.Equal(t, 1*time.Second, cfg.Tx.PollInterval)
		assert.Equal(t, 90*time.Second, cfg.Tx.ConfirmTimeout)
		assert.Equal(t, uint64(500), cfg.Enumerator.MaxProbe)
		assert.Equal(t, 9190, cfg.Watch.ListenPort)
	})

	t.Run("writes the template on first run", func(t *testing.T) {
		home := t.TempDir()

		cfg, err := LoadConfig(home)
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(home, "config.yaml"))
		assert.Equal(t, uint64(31337), cfg.NetworkID)
		assert.Equal(t, "http://127.0.0.1:8545", cfg.RpcProvider)
	})

	t.Run("applies defaults for omitted fields", func(t *testing.T) {
		home := t.TempDir()
		err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("networkId: 1\n"), 0644)
		require.NoError(t, err)

		cfg, err := LoadConfig(home)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(home, "key.json"), cfg.Wallet.Keyfile)
		assert.Equal(t, "info", cfg.Logger.Verbosity)
		assert.Equal(t, DefaultTxPollInterval, cfg.Tx.PollInterval)
		assert.Equal(t, DefaultConfirmTimeout, cfg.Tx.ConfirmTimeout)
		assert.Equal(t, uint64(DefaultMaxProbe), cfg.Enumerator.MaxProbe)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		home := t.TempDir()
		err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("::not yaml"), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(home)
		assert.Error(t, err)
	})
}
