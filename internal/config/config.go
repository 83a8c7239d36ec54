package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// TablePath is where the host keeps this preprocessor's settings.
const TablePath = "preprocessor.protobuf"

type Config struct {
	Descriptor  string   `yaml:"proto_descriptor" json:"proto_descriptor" toml:"proto_descriptor"`
	Sources     []string `yaml:"proto_sources" json:"proto_sources" toml:"proto_sources"`
	ImportPaths []string `yaml:"import_paths" json:"import_paths" toml:"import_paths"`
	SourceRoot  string   `yaml:"proto_source_root" json:"proto_source_root" toml:"proto_source_root"`
	NestUnder   string   `yaml:"nest_under" json:"nest_under" toml:"nest_under"`
	URLRoot     string   `yaml:"proto_url_root" json:"proto_url_root" toml:"proto_url_root"`
	Mermaid     bool     `yaml:"mermaid" json:"mermaid" toml:"mermaid"`
	Pages       string   `yaml:"pages" json:"pages" toml:"pages"`
	Output      string   `yaml:"output" json:"output" toml:"output"`

	// Root is the directory relative paths resolve against.
	Root string `yaml:"-" json:"-" toml:"-"`
}

// envOverrides are read after the file so deployments can repoint a book
// without editing it.
type envOverrides struct {
	Descriptor string `envconfig:"PROTOBOOK_DESCRIPTOR"`
	URLRoot    string `envconfig:"PROTOBOOK_URL_ROOT"`
	NestUnder  string `envconfig:"PROTOBOOK_NEST_UNDER"`
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// MissingKeyError reports a required key absent from a configuration source.
type MissingKeyError struct {
	Key    string
	Source string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("expected `%s` key in %s", e.Key, e.Source)
}

// LoadConfig reads a standalone configuration file. YAML is the default;
// a `.toml` file is read as a book.toml and its preprocessor table used.
func LoadConfig(fs afero.Fs, path string, lookup LookupFunc) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	// 2. Load the config file
	file, err := afero.ReadFile(fs, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", abs, err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(abs), ".toml") {
		var doc struct {
			Preprocessor map[string]toml.Primitive `toml:"preprocessor"`
		}
		meta, err := toml.Decode(string(file), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", abs, err)
		}
		table, ok := doc.Preprocessor["protobuf"]
		if !ok {
			return nil, &MissingKeyError{Key: TablePath, Source: abs}
		}
		if err := meta.PrimitiveDecode(table, &cfg); err != nil {
			return nil, fmt.Errorf("invalid %s table in %s: %w", TablePath, abs, err)
		}
	} else if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", abs, err)
	}
	cfg.Root = filepath.Dir(abs)

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(abs); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromContext fills the configuration from the host context JSON, reading
// the `preprocessor.protobuf` table. Relative paths resolve against root.
func FromContext(raw []byte, root string, lookup LookupFunc) (*Config, error) {
	table := gjson.GetBytes(raw, "config."+TablePath)
	if !table.Exists() || !table.IsObject() {
		return nil, &MissingKeyError{Key: TablePath, Source: "book configuration"}
	}

	var cfg Config
	if err := json.Unmarshal([]byte(table.Raw), &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s table: %w", TablePath, err)
	}
	cfg.Root = root

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate("book configuration"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var env envOverrides
	if err := envconfig.Process("", &env, lookup); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}
	if env.Descriptor != "" {
		c.Descriptor = env.Descriptor
	}
	if env.URLRoot != "" {
		c.URLRoot = env.URLRoot
	}
	if env.NestUnder != "" {
		c.NestUnder = env.NestUnder
	}
	return nil
}

// Validate checks that a schema source is configured.
func (c *Config) Validate(source string) error {
	if c.Descriptor == "" && len(c.Sources) == 0 {
		return &MissingKeyError{Key: "proto_descriptor", Source: source}
	}
	return nil
}

// Resolve turns a configured path into an absolute one.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(filepath.Join(c.Root, path))
	if err != nil {
		return filepath.Join(c.Root, path)
	}
	return abs
}

// DescriptorPath is the absolute descriptor set location, or "".
func (c *Config) DescriptorPath() string {
	return c.Resolve(c.Descriptor)
}

// ImportDirs resolves the import paths used to compile Sources. The
// configuration root is used when none are given.
func (c *Config) ImportDirs() []string {
	if len(c.ImportPaths) == 0 {
		return []string{c.Resolve(".")}
	}
	dirs := make([]string, 0, len(c.ImportPaths))
	for _, p := range c.ImportPaths {
		dirs = append(dirs, c.Resolve(p))
	}
	return dirs
}

// URLRootTrimmed is the source link prefix without a trailing slash.
func (c *Config) URLRootTrimmed() string {
	return strings.TrimRight(c.URLRoot, "/")
}
