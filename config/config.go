// Package config loads the bridge configuration from defaults, a TOML file,
// a .env file and EVMBRIDGE_* environment variables, in that order.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/felt"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/joho/godotenv"
	"github.com/naoina/toml"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "EVMBRIDGE_"

type Config struct {
	// Native ledger JSON-RPC endpoint, or "memory" for the in-process devnet
	NativeRPC string

	// Felt addresses as 0x-prefixed hex
	InterpreterAddress string
	AccountClassHash   string `toml:",omitempty"`
	NativeTokenAddress string

	ChainID           uint64
	MaxFee            string
	LossyByteDecoding bool
	FanOutLimit       int

	HTTPPort          int
	LogLevel          string
	LogModules        string `toml:",omitempty"`
	TelemetryEndpoint string `toml:",omitempty"`

	// LevelDB directory for resolved native accounts; empty disables it
	AccountCacheDir string `toml:",omitempty"`
}

// Defaults leaves InterpreterAddress empty; it has to be configured.
var Defaults = Config{
	NativeRPC:          "http://localhost:5050/rpc",
	NativeTokenAddress: bridge.DefaultNativeToken.String(),
	ChainID:            1263227476,
	MaxFee:             bridge.DefaultMaxFee.String(),
	FanOutLimit:        bridge.DefaultFanOutLimit,
	HTTPPort:           8545,
	LogLevel:           "info",
}

// TOML keys use the Go field names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadFile overlays the TOML file onto cfg.
func LoadFile(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func stringVar(field func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intVar(field func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

var envVars = []envVar{
	{"NATIVE_RPC", stringVar(func(c *Config) *string { return &c.NativeRPC })},
	{"INTERPRETER_ADDRESS", stringVar(func(c *Config) *string { return &c.InterpreterAddress })},
	{"ACCOUNT_CLASS_HASH", stringVar(func(c *Config) *string { return &c.AccountClassHash })},
	{"NATIVE_TOKEN_ADDRESS", stringVar(func(c *Config) *string { return &c.NativeTokenAddress })},
	{"CHAIN_ID", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return err
		}
		c.ChainID = n
		return nil
	}},
	{"MAX_FEE", stringVar(func(c *Config) *string { return &c.MaxFee })},
	{"LOSSY_BYTE_DECODING", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.LossyByteDecoding = b
		return nil
	}},
	{"FAN_OUT_LIMIT", intVar(func(c *Config) *int { return &c.FanOutLimit })},
	{"HTTP_PORT", intVar(func(c *Config) *int { return &c.HTTPPort })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.LogLevel })},
	{"LOG_MODULES", stringVar(func(c *Config) *string { return &c.LogModules })},
	{"TELEMETRY_ENDPOINT", stringVar(func(c *Config) *string { return &c.TelemetryEndpoint })},
	{"ACCOUNT_CACHE_DIR", stringVar(func(c *Config) *string { return &c.AccountCacheDir })},
}

// LoadEnv overlays EVMBRIDGE_* variables onto cfg. Values found in envFile
// (when it exists) are used for variables not set in the process
// environment. The process environment is not modified.
func LoadEnv(cfg *Config, envFile string) error {
	dotenv := map[string]string{}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			vars, err := godotenv.Read(envFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", envFile, err)
			}
			dotenv = vars
		}
	}
	for _, ev := range envVars {
		key := EnvPrefix + ev.name
		v, ok := os.LookupEnv(key)
		if !ok {
			v, ok = dotenv[key]
		}
		if !ok || v == "" {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		log.Debug(log.ConfigMonitoring, "config from environment", "key", key)
	}
	return nil
}

// Validate checks required fields and that every felt parses.
func (c *Config) Validate() error {
	if c.NativeRPC == "" {
		return errors.New("NativeRPC is required")
	}
	if c.InterpreterAddress == "" {
		return errors.New("InterpreterAddress is required")
	}
	if c.FanOutLimit < 0 {
		return fmt.Errorf("FanOutLimit %d is negative", c.FanOutLimit)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTPPort %d out of range", c.HTTPPort)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	_, err := c.BridgeConfig()
	return err
}

// BridgeConfig converts c into the bridge client configuration.
func (c *Config) BridgeConfig() (bridge.Config, error) {
	var out bridge.Config
	fields := []struct {
		name     string
		value    string
		dst      *felt.Felt
		required bool
	}{
		{"InterpreterAddress", c.InterpreterAddress, &out.InterpreterAddress, true},
		{"AccountClassHash", c.AccountClassHash, &out.AccountClassHash, false},
		{"NativeTokenAddress", c.NativeTokenAddress, &out.NativeTokenAddress, false},
		{"MaxFee", c.MaxFee, &out.MaxFee, false},
	}
	for _, f := range fields {
		if f.value == "" {
			if f.required {
				return bridge.Config{}, fmt.Errorf("%s is required", f.name)
			}
			continue
		}
		v, err := felt.FromHex(f.value)
		if err != nil {
			return bridge.Config{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	out.ChainID = c.ChainID
	out.LossyByteDecoding = c.LossyByteDecoding
	out.FanOutLimit = c.FanOutLimit
	return out, nil
}
