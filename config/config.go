package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/domino14/connect4/board"
)

const (
	ConfigDebug             = "debug"
	ConfigCPUProfile        = "cpu-profile"
	ConfigMemProfile        = "mem-profile"
	ConfigBoardWidth        = "board-width"
	ConfigBoardHeight       = "board-height"
	ConfigTTableSize        = "ttable-size"
	ConfigTTableMemFraction = "ttable-mem-fraction"
	ConfigBookPath          = "book-path"
	ConfigBenchWorkers      = "bench-workers"
	ConfigSolverLogPath     = "solver-log-path"
	ConfigFile              = "config"
)

// defaultTableSize matches negamax.DefaultTableSize. It is repeated here so
// that config does not depend on the solver.
const defaultTableSize = 8388593

type Config struct {
	viper.Viper
}

// DefaultConfig returns a config with every default set and nothing read
// from flags, the environment or files.
func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
	c.SetDefault(ConfigBoardWidth, board.Standard.Width)
	c.SetDefault(ConfigBoardHeight, board.Standard.Height)
	c.SetDefault(ConfigTTableSize, defaultTableSize)
	c.SetDefault(ConfigTTableMemFraction, 0.25)
	c.SetDefault(ConfigBookPath, "")
	c.SetDefault(ConfigBenchWorkers, 0)
	c.SetDefault(ConfigSolverLogPath, "")
}

// FlagSet returns the command-line flags understood by Load. Callers may add
// their own flags before passing it to LoadFlags.
func FlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigCPUProfile, "", "file to write a CPU profile to")
	fs.String(ConfigMemProfile, "", "file to write a memory profile to")
	fs.Int(ConfigBoardWidth, board.Standard.Width, "number of columns")
	fs.Int(ConfigBoardHeight, board.Standard.Height, "number of rows")
	fs.Int(ConfigTTableSize, defaultTableSize, "transposition table buckets per solver")
	fs.Float64(ConfigTTableMemFraction, 0.25, "fraction of system memory the bench may give to transposition tables")
	fs.String(ConfigBookPath, "", "sqlite file with solved positions")
	fs.Int(ConfigBenchWorkers, 0, "bench solver goroutines (0 picks a number from memory and CPUs)")
	fs.String(ConfigSolverLogPath, "", "file to write a YAML log of every solver probe to")
	fs.String(ConfigFile, "", "config file (yaml, toml or json)")
	return fs
}

// Load parses args, then layers CONNECT4_* environment variables and an
// optional config file under them.
func (c *Config) Load(args []string) error {
	fs := FlagSet("connect4")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.LoadFlags(fs)
}

// LoadFlags is Load for an already parsed flag set.
func (c *Config) LoadFlags(fs *pflag.FlagSet) error {
	c.Viper = *viper.New()
	c.setDefaults()
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.SetEnvPrefix("connect4")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if cfgFile := c.GetString(ConfigFile); cfgFile != "" {
		c.SetConfigFile(cfgFile)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
		log.Debug().Str("file", c.ConfigFileUsed()).Msg("read-config-file")
	}
	return nil
}

// Dims builds the configured board size.
func (c *Config) Dims() (*board.Dims, error) {
	return board.NewDims(c.GetInt(ConfigBoardWidth), c.GetInt(ConfigBoardHeight))
}

// SanitizedSettings is every setting, safe to log.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}
