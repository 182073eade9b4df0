package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Assembler defaults
	if cfg.Assembler.DefaultCPU != "6502" {
		t.Errorf("Expected DefaultCPU=6502, got %s", cfg.Assembler.DefaultCPU)
	}
	if cfg.Assembler.MaxPasses != 2 {
		t.Errorf("Expected MaxPasses=2, got %d", cfg.Assembler.MaxPasses)
	}

	// Listing defaults
	if cfg.Listing.BytesPerLine != 8 {
		t.Errorf("Expected BytesPerLine=8, got %d", cfg.Listing.BytesPerLine)
	}
	if !cfg.Listing.ShowSymbolList {
		t.Error("Expected ShowSymbolList=true")
	}

	// Diagnostics defaults
	if cfg.Diagnostics.NumberFormat != "hex" {
		t.Errorf("Expected NumberFormat=hex, got %s", cfg.Diagnostics.NumberFormat)
	}
	if cfg.Diagnostics.MaxDiagnostics != 200 {
		t.Errorf("Expected MaxDiagnostics=200, got %d", cfg.Diagnostics.MaxDiagnostics)
	}

	// Output defaults
	if cfg.Output.Format != "bin" {
		t.Errorf("Expected Format=bin, got %s", cfg.Output.Format)
	}

	// Formatter defaults
	if cfg.Formatter.InstructionColumn != 8 {
		t.Errorf("Expected InstructionColumn=8, got %d", cfg.Formatter.InstructionColumn)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}

	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "asmx" && path != "config.toml" {
			t.Errorf("Expected path in asmx directory or fallback, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Assembler.DefaultCPU = "Z80"
	cfg.Assembler.CaseSensitive = true
	cfg.Listing.Enabled = true
	cfg.Listing.BytesPerLine = 16
	cfg.Output.Format = "ihex"

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Assembler.DefaultCPU != "Z80" {
		t.Errorf("Expected DefaultCPU=Z80, got %s", loaded.Assembler.DefaultCPU)
	}
	if !loaded.Assembler.CaseSensitive {
		t.Error("Expected CaseSensitive=true")
	}
	if !loaded.Listing.Enabled {
		t.Error("Expected Listing.Enabled=true")
	}
	if loaded.Listing.BytesPerLine != 16 {
		t.Errorf("Expected BytesPerLine=16, got %d", loaded.Listing.BytesPerLine)
	}
	if loaded.Output.Format != "ihex" {
		t.Errorf("Expected Format=ihex, got %s", loaded.Output.Format)
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Assembler.DefaultCPU != "6502" {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[assembler]
max_passes = "not a number"  # Invalid: should be int
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
