package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"annovis/internal/annotation"
	"annovis/internal/editor"
)

const configFile = ".annovisrc"

// History strategies.
const (
	HistoryMemory = "memory"
	HistoryCache  = "cache"
)

type Config struct {
	Workspace      string
	Project        string
	History        string
	AutosaveDelay  time.Duration
	MinBoxSize     float64
	KeypointRadius float64
	LogFile        string
	LogLevel       string
	Confirmations  bool
}

func DefaultConfig() *Config {
	return &Config{
		Project:        "default",
		History:        HistoryMemory,
		AutosaveDelay:  editor.DefaultAutosaveDelay,
		MinBoxSize:     editor.DefaultMinBoxSize,
		KeypointRadius: annotation.KeypointRadius,
		LogLevel:       "info",
		Confirmations:  true,
	}
}

// loadConfig reads ~/.annovisrc over the defaults. A missing file is not
// an error.
func loadConfig() (*Config, error) {
	config := DefaultConfig()
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config, nil
	}
	file, err := os.Open(filepath.Join(homeDir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := config.parse(file, homeDir); err != nil {
		return config, err
	}
	config.Validate()
	return config, nil
}

func (c *Config) parse(r io.Reader, homeDir string) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch strings.ToLower(key) {
		case "workspace", "workspace_dir":
			c.Workspace = expandPath(value, homeDir)
		case "project":
			c.Project = value
		case "history":
			c.History = strings.ToLower(value)
		case "autosave_ms", "autosave":
			ms, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("config line %d: autosave_ms: %w", lineNo, err)
			}
			c.AutosaveDelay = time.Duration(ms) * time.Millisecond
		case "min_box_size":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("config line %d: min_box_size: %w", lineNo, err)
			}
			c.MinBoxSize = v
		case "keypoint_radius":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("config line %d: keypoint_radius: %w", lineNo, err)
			}
			c.KeypointRadius = v
		case "log_file", "logfile":
			c.LogFile = expandPath(value, homeDir)
		case "log_level":
			c.LogLevel = strings.ToLower(value)
		case "confirmations", "confirm":
			c.Confirmations = strings.ToLower(value) == "true"
		}
	}
	return scanner.Err()
}

// Validate replaces out-of-range values with defaults.
func (c *Config) Validate() {
	def := DefaultConfig()
	if c.History != HistoryMemory && c.History != HistoryCache {
		c.History = def.History
	}
	if c.AutosaveDelay < 0 {
		c.AutosaveDelay = def.AutosaveDelay
	}
	if c.AutosaveDelay > 10*time.Second {
		c.AutosaveDelay = 10 * time.Second
	}
	if c.MinBoxSize <= 0 {
		c.MinBoxSize = def.MinBoxSize
	}
	if c.KeypointRadius <= 0 {
		c.KeypointRadius = def.KeypointRadius
	}
	if c.Project == "" {
		c.Project = def.Project
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = def.LogLevel
	}
}

// WorkspaceFor returns the configured workspace or, when unset, the
// directory holding the image.
func (c *Config) WorkspaceFor(imagePath string) string {
	if c.Workspace != "" {
		return c.Workspace
	}
	dir := filepath.Dir(imagePath)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func expandPath(value, homeDir string) string {
	if strings.HasPrefix(value, "~") {
		value = filepath.Join(homeDir, strings.TrimPrefix(value, "~"))
	}
	if !filepath.IsAbs(value) {
		if absPath, err := filepath.Abs(value); err == nil {
			value = absPath
		}
	}
	return value
}
