// Package config loads the node's TOML configuration file via viper into
// a nested, mapstructure-tagged struct, then applies the CKB_LOG
// environment override to the logging filter.
package config

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/pkg/utils"
	"github.com/spf13/viper"
)

// Config is the unified configuration for a ckb node.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr"`
		P2PPort        int      `mapstructure:"p2p_port"`
		RPCPort        int      `mapstructure:"rpc_port"`
		MaxInbound     int      `mapstructure:"max_inbound"`
		MaxOutbound    int      `mapstructure:"max_outbound"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers"`
		ReservedPeers  []string `mapstructure:"reserved_peers"`
	} `mapstructure:"network"`

	Chain struct {
		SpecPath      string `mapstructure:"spec_path"`
		SkipSpecCheck bool   `mapstructure:"skip_spec_check"`
		OverwriteSpec bool   `mapstructure:"overwrite_spec"`
	} `mapstructure:"chain"`

	TxPool struct {
		MaxMemBytes  uint64 `mapstructure:"max_mem_bytes"`
		MaxAncestors uint64 `mapstructure:"max_ancestors"`
		MinRBFRate   uint64 `mapstructure:"min_rbf_rate"`
	} `mapstructure:"tx_pool"`

	Logging struct {
		Filter string `mapstructure:"filter"`
		Target string `mapstructure:"target"` // file | stdout | both
	} `mapstructure:"logging"`
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// Load reads ckb.toml from dir (the -C working directory) and merges the
// CKB_LOG environment override.
func Load(dir string) (*Config, error) {
	viper.SetConfigName("ckb")
	viper.SetConfigType("toml")
	viper.AddConfigPath(dir)
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, fmt.Sprintf("unmarshal config from %s", dir))
	}

	if override := utils.EnvOrDefault("CKB_LOG", ""); override != "" {
		AppConfig.Logging.Filter = override
	}

	return &AppConfig, nil
}
