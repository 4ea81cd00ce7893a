package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

const sampleTOML = `
data_dir = "data"

[network]
listen_addr = "/ip4/0.0.0.0/tcp/8115"
p2p_port = 8115
rpc_port = 8114
max_inbound = 125
max_outbound = 30

[chain]
spec_path = "specs/dev.toml"

[tx_pool]
max_mem_bytes = 180000000
max_ancestors = 25

[logging]
filter = "info"
target = "stdout"
`

func TestLoadUnmarshalsTOML(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ckb.toml"), []byte(sampleTOML), 0o644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Network.P2PPort != 8115 {
		t.Fatalf("expected p2p_port 8115, got %d", cfg.Network.P2PPort)
	}
	if cfg.Logging.Filter != "info" {
		t.Fatalf("expected default logging filter \"info\", got %q", cfg.Logging.Filter)
	}
}

func TestLoadAppliesCKBLogOverride(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ckb.toml"), []byte(sampleTOML), 0o644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}
	t.Setenv("CKB_LOG", "debug")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Filter != "debug" {
		t.Fatalf("expected CKB_LOG to override the filter to \"debug\", got %q", cfg.Logging.Filter)
	}
}
