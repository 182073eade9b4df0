// Package config loads and saves assembler-wide defaults from a TOML file,
// exactly as the teacher's config/config.go does for the emulator: a
// Config struct with toml tags, a DefaultConfig constructor, Load/LoadFrom
// and Save/SaveTo, and an XDG-ish per-OS config path helper. CLI flags
// passed to cmd/asmx override whatever is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds assembler-wide defaults.
type Config struct {
	// Assembler settings: the CPU backend and source dialect used when
	// none is given on the command line or in a CPU directive.
	Assembler struct {
		DefaultCPU    string `toml:"default_cpu"`
		CaseSensitive bool   `toml:"case_sensitive"`
		MaxPasses     int    `toml:"max_passes"`
	} `toml:"assembler"`

	// Listing settings: column layout for the listing writer.
	Listing struct {
		Enabled        bool `toml:"enabled"`
		AddressColumn  int  `toml:"address_column"`
		BytesColumn    int  `toml:"bytes_column"`
		SourceColumn   int  `toml:"source_column"`
		BytesPerLine   int  `toml:"bytes_per_line"`
		ShowSymbolList bool `toml:"show_symbol_list"`
	} `toml:"listing"`

	// Diagnostics settings: verbosity of the warning/error reporter.
	Diagnostics struct {
		WarningsAsErrors bool   `toml:"warnings_as_errors"`
		Quiet            bool   `toml:"quiet"`
		MaxDiagnostics   int    `toml:"max_diagnostics"`
		SuggestFixes     bool   `toml:"suggest_fixes"`
		NumberFormat     string `toml:"number_format"` // hex, dec, both
	} `toml:"diagnostics"`

	// Output settings: default object file format and base address.
	Output struct {
		Format     string `toml:"format"` // bin, ihex, srec, trsdos, trscassette
		BaseAddr   string `toml:"base_addr"`
		SRecordLen int    `toml:"srecord_length"`
	} `toml:"output"`

	// Formatter settings: column layout for the fmtsrc reformatter.
	Formatter struct {
		InstructionColumn int  `toml:"instruction_column"`
		OperandColumn     int  `toml:"operand_column"`
		CommentColumn     int  `toml:"comment_column"`
		AlignOperands     bool `toml:"align_operands"`
		AlignComments     bool `toml:"align_comments"`
	} `toml:"formatter"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assembler.DefaultCPU = "6502"
	cfg.Assembler.CaseSensitive = false
	cfg.Assembler.MaxPasses = 2

	cfg.Listing.Enabled = false
	cfg.Listing.AddressColumn = 0
	cfg.Listing.BytesColumn = 8
	cfg.Listing.SourceColumn = 32
	cfg.Listing.BytesPerLine = 8
	cfg.Listing.ShowSymbolList = true

	cfg.Diagnostics.WarningsAsErrors = false
	cfg.Diagnostics.Quiet = false
	cfg.Diagnostics.MaxDiagnostics = 200
	cfg.Diagnostics.SuggestFixes = true
	cfg.Diagnostics.NumberFormat = "hex"

	cfg.Output.Format = "bin"
	cfg.Output.BaseAddr = "0x0000"
	cfg.Output.SRecordLen = 32

	cfg.Formatter.InstructionColumn = 8
	cfg.Formatter.OperandColumn = 16
	cfg.Formatter.CommentColumn = 40
	cfg.Formatter.AlignOperands = true
	cfg.Formatter.AlignComments = true

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\asmx\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "asmx")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/asmx/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "asmx")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file is
// not an error: it yields the default configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
