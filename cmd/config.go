package cmd

import (
	"fmt"
	"os"
	"time"

	solana_chainlink "chainlink-consumer/solana"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	devnetRpcEndpoint = "https://api.devnet.solana.com"
	defaultIDLPath    = "../target/idl/solana_chainlink.json"
	defaultWalletPath = "~/.config/solana/id.json"
)

// Config is everything one run needs. Values are resolved in order of precedence:
// flags, environment, the YAML config file, then defaults.
type Config struct {
	RpcEndpoint      string        `yaml:"rpc_endpoint"`
	WalletPath       string        `yaml:"wallet"`
	IDLPath          string        `yaml:"idl"`
	ProgramID        string        `yaml:"program_id"`
	Feed             string        `yaml:"feed"`
	ChainlinkProgram string        `yaml:"chainlink_program"`
	Commitment       string        `yaml:"commitment"`
	Timeout          time.Duration `yaml:"timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	Space            int           `yaml:"space"`
	SkipPreflight    bool          `yaml:"skip_preflight"`
	SkipFeedCheck    bool          `yaml:"skip_feed_check"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
}

// defaultWallet is the Solana CLI keypair under the user's home directory.
func defaultWallet() string {
	path, err := solana_chainlink.DefaultWalletPath()
	if err != nil {
		return defaultWalletPath
	}
	return path
}

// DefaultConfig returns the devnet defaults.
func DefaultConfig() Config {
	return Config{
		RpcEndpoint:      devnetRpcEndpoint,
		WalletPath:       defaultWallet(),
		IDLPath:          defaultIDLPath,
		Feed:             solana_chainlink.DefaultFeed.String(),
		ChainlinkProgram: solana_chainlink.ChainlinkProgramID.String(),
		Commitment:       "confirmed",
		Timeout:          solana_chainlink.DefaultConfirmTimeout,
		PollInterval:     solana_chainlink.DefaultPollInterval,
		Space:            solana_chainlink.DefaultAccountSpace,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// loadConfigFile overlays the YAML file at path onto cfg.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the Anchor provider environment onto cfg.
func applyEnv(cfg *Config, getenv func(string) string) {
	if heliusApiKey := getenv("HELIUS_API_KEY"); heliusApiKey != "" {
		cfg.RpcEndpoint = fmt.Sprintf("https://devnet.helius-rpc.com/?api-key=%s", heliusApiKey)
	}
	if url := getenv("ANCHOR_PROVIDER_URL"); url != "" {
		cfg.RpcEndpoint = url
	}
	if wallet := getenv("ANCHOR_WALLET"); wallet != "" {
		cfg.WalletPath = wallet
	}
	if feed := getenv("CHAINLINK_FEED"); feed != "" {
		cfg.Feed = feed
	}
}

// applyFlags overlays every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}

	str("rpc", &cfg.RpcEndpoint)
	str("wallet", &cfg.WalletPath)
	str("idl", &cfg.IDLPath)
	str("program", &cfg.ProgramID)
	str("feed", &cfg.Feed)
	str("chainlink-program", &cfg.ChainlinkProgram)
	str("commitment", &cfg.Commitment)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	boolean("skip-preflight", &cfg.SkipPreflight)
	boolean("skip-feed-check", &cfg.SkipFeedCheck)
	if err == nil && flags.Changed("timeout") {
		cfg.Timeout, err = flags.GetDuration("timeout")
	}
	if err == nil && flags.Changed("space") {
		cfg.Space, err = flags.GetInt("space")
	}
	return err
}

// resolveConfig builds the Config for cmd from defaults, the optional YAML file, the
// environment and the flags.
func resolveConfig(cmd *cobra.Command, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return cfg, err
	}
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg, getenv)

	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to read flags: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads .env from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, promptStyle.Render("Info: loaded environment from .env"))
	}
}

// Validate checks the values that do not depend on the network.
func (c Config) Validate() error {
	if c.RpcEndpoint == "" {
		return fmt.Errorf("rpc endpoint is not set")
	}
	if _, err := solana_chainlink.ParseCommitment(c.Commitment); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Space < 0 {
		return fmt.Errorf("space must not be negative, got %d", c.Space)
	}
	return nil
}

// ClientOptions maps the config onto the client's tunables.
func (c Config) ClientOptions() (solana_chainlink.ClientOptions, error) {
	commitment, err := solana_chainlink.ParseCommitment(c.Commitment)
	if err != nil {
		return solana_chainlink.ClientOptions{}, err
	}
	return solana_chainlink.ClientOptions{
		Commitment:     commitment,
		PollInterval:   c.PollInterval,
		ConfirmTimeout: c.Timeout,
		SkipPreflight:  c.SkipPreflight,
	}, nil
}
