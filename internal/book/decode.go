package book

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
)

// SupportedVersion is the host major.minor this preprocessor is built for.
const SupportedVersion = "0.4"

const schemaURL = "https://protobook.local/schema/input.schema.json"

//go:embed schema/input.schema.json
var inputSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(inputSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Decode reads the `[context, book]` pair the host writes to stdin. The
// payload is checked against the input schema before it is decoded.
func Decode(r io.Reader) (*Context, *Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read preprocessor input: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile input schema: %w", err)
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, nil, fmt.Errorf("preprocessor input is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, nil, fmt.Errorf("preprocessor input schema validation failed: %w", err)
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, nil, fmt.Errorf("failed to decode preprocessor input: %w", err)
	}

	var ctx Context
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to decode context: %w", err)
	}
	ctx.Raw = pair[0]

	var b Book
	if err := json.Unmarshal(pair[1], &b); err != nil {
		return nil, nil, fmt.Errorf("failed to decode book: %w", err)
	}
	return &ctx, &b, nil
}

// CheckVersion reports whether the host version shares the supported
// major.minor. Unparseable versions are reported as unsupported.
func CheckVersion(hostVersion string) bool {
	v := hostVersion
	if len(v) > 0 && v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return false
	}
	return semver.MajorMinor(v) == "v"+SupportedVersion
}
