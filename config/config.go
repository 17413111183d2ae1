package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sisu-network/proposal-relay/utils"
)

const (
	ActionTransfer = "transfer"
	ActionNone     = "none"

	// Environment variable holding the hex private key of the target chain sender.
	PrivateKeyEnv = "RELAY_PRIVATE_KEY"

	DefaultPollLimit    = 3
	DefaultPollInterval = 10_000 // ms
	DefaultQueueSize    = 100
	DefaultRpcTimeout   = 30_000 // ms
	DefaultServerPort   = 25456

	DefaultDaoAddress    = "0xA6E782af1b182329282CC67f1ce0f4680030E12F"
	DefaultTokenAddress  = "0x63A0bfd6a5cdCF446ae12135E2CD86b908659568"
	DefaultTargetChainId = 11155420
)

type ChainConfig struct {
	Chain           string   `toml:"chain"`
	ChainId         int64    `toml:"chain_id"`
	Rpcs            []string `toml:"rpcs"`
	UseExternalRpcs bool     `toml:"use_external_rpcs"`
	RpcTimeout      int      `toml:"rpc_timeout"` // ms
}

// Source is the chain where the DAO emits accepted proposal events.
type Source struct {
	ChainConfig

	DaoAddress   string `toml:"dao_address"`
	PollInterval int    `toml:"poll_interval"` // ms
	PollLimit    int    `toml:"poll_limit"`
}

// Target is the chain where tokens are transferred.
type Target struct {
	ChainConfig

	TokenAddress string `toml:"token_address"`
	PrivateKey   string `toml:"-"`
}

type Relay struct {
	DbHost     string `toml:"db_host"`
	DbPort     int    `toml:"db_port"`
	DbUsername string `toml:"db_username"`
	DbPassword string `toml:"db_password"`
	DbSchema   string `toml:"db_schema"`
	InMemory   bool   `toml:"in_memory"`

	ServerPort int `toml:"server_port"`

	// Downstream action run for every decoded event: "transfer" or "none".
	Action    string `toml:"action"`
	QueueSize int    `toml:"queue_size"`

	Source Source `toml:"source"`
	Target Target `toml:"target"`
}

// Load reads a toml config file, loads .env (if any) and fills default values.
func Load(path string) (*Relay, error) {
	cfg := &Relay{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config file %s: %w", path, err)
	}

	// .env is optional.
	_ = godotenv.Load()
	cfg.Target.PrivateKey = strings.TrimPrefix(os.Getenv(PrivateKeyEnv), "0x")

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Relay) SetDefaults() {
	if c.Action == "" {
		c.Action = ActionTransfer
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.ServerPort == 0 {
		c.ServerPort = DefaultServerPort
	}
	if c.DbHost == "" {
		c.InMemory = true
	}

	if c.Source.DaoAddress == "" {
		c.Source.DaoAddress = DefaultDaoAddress
	}
	if c.Source.PollInterval <= 0 {
		c.Source.PollInterval = DefaultPollInterval
	}
	if c.Source.PollLimit <= 0 {
		c.Source.PollLimit = DefaultPollLimit
	}
	if c.Source.ChainId == 0 {
		c.Source.ChainId = utils.GetChainIntFromId(c.Source.Chain).Int64()
	}
	if c.Source.RpcTimeout <= 0 {
		c.Source.RpcTimeout = DefaultRpcTimeout
	}

	if c.Target.TokenAddress == "" {
		c.Target.TokenAddress = DefaultTokenAddress
	}
	if c.Target.ChainId == 0 {
		c.Target.ChainId = utils.GetChainIntFromId(c.Target.Chain).Int64()
	}
	if c.Target.ChainId == 0 {
		c.Target.ChainId = DefaultTargetChainId
	}
	if c.Target.RpcTimeout <= 0 {
		c.Target.RpcTimeout = DefaultRpcTimeout
	}
}

func (c *Relay) Validate() error {
	if len(c.Source.Rpcs) == 0 {
		return fmt.Errorf("source chain %s has no rpc", c.Source.Chain)
	}

	switch c.Action {
	case ActionNone:
	case ActionTransfer:
		if len(c.Target.Rpcs) == 0 {
			return fmt.Errorf("target chain %s has no rpc", c.Target.Chain)
		}
		if c.Target.PrivateKey == "" {
			return fmt.Errorf("%s is not set", PrivateKeyEnv)
		}
	default:
		return fmt.Errorf("unknown action %s", c.Action)
	}

	return nil
}
