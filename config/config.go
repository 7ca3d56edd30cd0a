// Package config defines the node's recognized configuration options (§6),
// adapted from the teacher's node/defaults.go constant-block convention
// into a single loadable struct.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CredRule names the credibility rule the node applies when accepting L2
// blocks; opaque to the CSM itself, carried through to the engine.
type CredRule string

const (
	CredRuleDefault CredRule = "default"
)

// Config carries every option the specification names in §6.
type Config struct {
	PollDurationMs   uint64   `json:"poll_duration_ms"`
	FinalityDepth    uint64   `json:"finality_depth"`
	L1FollowDistance uint64   `json:"l1_follow_distance"`
	HorizonL1Height  uint64   `json:"horizon_l1_height"`
	GenesisL1Height  uint64   `json:"genesis_l1_height"`
	BlockTime        uint64   `json:"block_time"`
	CredRule         CredRule `json:"cred_rule"`

	DataDir    string `json:"data_dir"`
	RPCAddr    string `json:"rpc_addr"`
	AllowAdmin bool   `json:"allow_admin"`

	// KafkaBrokers and KafkaTopic configure the action-bus publisher;
	// publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string `json:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic"`

	// MySQLDSN configures the finalized-block read model; the mirror is
	// disabled when empty.
	MySQLDSN string `json:"mysql_dsn"`

	// RedisAddr and RedisTTL configure the L1Status cache; the cache is
	// disabled when RedisAddr is empty.
	RedisAddr string        `json:"redis_addr"`
	RedisTTL  time.Duration `json:"redis_ttl"`
}

// Default returns the node's built-in defaults, the analogue of the
// teacher's node/defaults.go constants.
func Default() Config {
	return Config{
		PollDurationMs:   2000,
		FinalityDepth:    6,
		L1FollowDistance: 6,
		BlockTime:        2,
		CredRule:         CredRuleDefault,
		DataDir:          defaultDataDir(),
		RPCAddr:          "127.0.0.1:9650",
		RedisTTL:         30 * time.Second,
	}
}

// defaultDataDir places the node's database under the user's home
// directory, adapted from the teacher's node/defaults.go
// DefaultDataDir/homeDir (minus the Windows/darwin P2P-node-specific
// subpaths this node has no use for).
func defaultDataDir() string {
	dirname := filepath.Base(os.Args[0])
	if dirname == "" {
		dirname = "csmnode"
	}
	home := homeDir()
	if home == "" {
		return ""
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", strings.ToUpper(dirname))
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Roaming", strings.ToUpper(dirname))
	}
	return filepath.Join(home, "."+dirname)
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// PollInterval converts PollDurationMs into a time.Duration for the
// writer pipeline.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollDurationMs) * time.Millisecond
}
