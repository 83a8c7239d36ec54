package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	root, err := filepath.Abs("book")
	require.NoError(t, err)
	path := filepath.Join(root, "protobook.yaml")
	require.NoError(t, afero.WriteFile(fs, path, []byte(`
proto_descriptor: build/set.pb
nest_under: Protocol
proto_url_root: https://example.com/proto/
mermaid: true
pages: src
output: out
`), 0o644))

	cfg, err := LoadConfig(fs, path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "build", "set.pb"), cfg.DescriptorPath())
	assert.Equal(t, "Protocol", cfg.NestUnder)
	assert.Equal(t, "https://example.com/proto", cfg.URLRootTrimmed())
	assert.True(t, cfg.Mermaid)
	assert.Equal(t, filepath.Join(root, "src"), cfg.Resolve(cfg.Pages))
	assert.Equal(t, []string{root}, cfg.ImportDirs())
}

func TestLoadConfig_BookTOML(t *testing.T) {
	fs := afero.NewMemMapFs()
	root, err := filepath.Abs("book")
	require.NoError(t, err)
	path := filepath.Join(root, "book.toml")
	require.NoError(t, afero.WriteFile(fs, path, []byte(`
[book]
title = "Demo"

[preprocessor.protobuf]
command = "protobook"
proto_sources = ["hello.proto"]
import_paths = ["proto", "/usr/include"]
`), 0o644))

	cfg, err := LoadConfig(fs, path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello.proto"}, cfg.Sources)
	assert.Equal(t, []string{filepath.Join(root, "proto"), "/usr/include"}, cfg.ImportDirs())
	assert.Equal(t, "", cfg.DescriptorPath())
}

func TestLoadConfig_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	root, err := filepath.Abs("book")
	require.NoError(t, err)

	t.Run("missing file names absolute path", func(t *testing.T) {
		_, err := LoadConfig(fs, filepath.Join(root, "absent.yaml"), noEnv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), filepath.Join(root, "absent.yaml"))
	})

	t.Run("no schema source", func(t *testing.T) {
		path := filepath.Join(root, "empty.yaml")
		require.NoError(t, afero.WriteFile(fs, path, []byte("nest_under: X\n"), 0o644))
		_, err := LoadConfig(fs, path, noEnv)
		var missing *MissingKeyError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "proto_descriptor", missing.Key)
	})

	t.Run("book.toml without table", func(t *testing.T) {
		path := filepath.Join(root, "book.toml")
		require.NoError(t, afero.WriteFile(fs, path, []byte("[book]\ntitle = \"x\"\n"), 0o644))
		_, err := LoadConfig(fs, path, noEnv)
		var missing *MissingKeyError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, TablePath, missing.Key)
	})
}

func TestFromContext(t *testing.T) {
	raw := []byte(`{
		"root": "/books/demo",
		"config": {"preprocessor": {"protobuf": {
			"proto_descriptor": "../demo/set.pb",
			"nest_under": "Protocol"
		}}},
		"renderer": "html",
		"mdbook_version": "0.4.40"
	}`)

	t.Run("reads table", func(t *testing.T) {
		cfg, err := FromContext(raw, "/books/demo", noEnv)
		require.NoError(t, err)
		assert.Equal(t, "/books/demo/set.pb", filepath.ToSlash(cfg.DescriptorPath()))
		assert.Equal(t, "Protocol", cfg.NestUnder)
		assert.False(t, cfg.Mermaid)
	})

	t.Run("environment overrides", func(t *testing.T) {
		cfg, err := FromContext(raw, "/books/demo", envOf(map[string]string{
			"PROTOBOOK_DESCRIPTOR":  "/abs/other.pb",
			"PROTOBOOK_URL_ROOT":    "https://src.example",
			"PROTOBOOK_NEST_UNDER":  "Reference",
			"PROTOBOOK_UNRELATED_X": "ignored",
		}))
		require.NoError(t, err)
		assert.Equal(t, "/abs/other.pb", cfg.DescriptorPath())
		assert.Equal(t, "https://src.example", cfg.URLRoot)
		assert.Equal(t, "Reference", cfg.NestUnder)
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := FromContext([]byte(`{"config": {"book": {}}}`), "/", noEnv)
		var missing *MissingKeyError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "expected `preprocessor.protobuf` key in book configuration", err.Error())
	})

	t.Run("missing descriptor", func(t *testing.T) {
		_, err := FromContext([]byte(`{"config": {"preprocessor": {"protobuf": {"nest_under": "x"}}}}`), "/", noEnv)
		require.EqualError(t, err, "expected `proto_descriptor` key in book configuration")
	})

	t.Run("descriptor must be a string", func(t *testing.T) {
		_, err := FromContext([]byte(`{"config": {"preprocessor": {"protobuf": {"proto_descriptor": 3}}}}`), "/", noEnv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid preprocessor.protobuf table")
	})
}
