package config

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/banshee-data/pfcluster/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// maxFileSize bounds configuration files.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// decodeFile reads path from fsys and decodes it into v according to its
// extension: .json, .yaml/.yml or .toml. The same key names apply to every
// format.
func decodeFile(fsys fsutil.FileSystem, path string, v any) error {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return fmt.Errorf("config file must have .json, .yaml, .yml or .toml extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext {
	case ".json":
		err = json.Unmarshal(data, v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".toml":
		err = toml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return nil
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
