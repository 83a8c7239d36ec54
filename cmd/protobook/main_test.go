package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *app {
	t.Helper()
	color.NoColor = true
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/book/proto/shop.proto": `syntax = "proto3";
package shop;
enum Kind { KIND_UNSPECIFIED = 0; }
message Item { Kind kind = 1; }
message Order { repeated Item items = 1; }
service Orders { rpc Place(Order) returns (Order); }
`,
		"/book/src/guide.md": "# Guide\n\nOrders hold [items](proto!(Item)).\n",
		"/book/protobook.yaml": "proto_sources: [shop.proto]\nimport_paths: [proto]\npages: src\noutput: out\n",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return &app{fs: fs, log: logrus.New()}
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSupports(t *testing.T) {
	_, _, err := run(t, testApp(t), "", "supports", "html")
	assert.NoError(t, err)

	_, _, err = run(t, testApp(t), "", "supports", "not-supported")
	assert.ErrorIs(t, err, errUnsupported)
}

func TestPreprocessCommand(t *testing.T) {
	input := `[{"root": "/book", "config": {"preprocessor": {"protobuf": {"proto_sources": ["shop.proto"], "import_paths": ["proto"]}}},
		"renderer": "html", "mdbook_version": "0.4.40"},
		{"sections": [{"Chapter": {"name": "Guide", "content": "[x](proto!(Order))", "number": [1], "sub_items": [], "path": "guide.md", "source_path": "guide.md", "parent_names": []}}], "__non_exhaustive": null}]`

	out, logs, err := run(t, testApp(t), input)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `{"sections":[`))
	assert.Contains(t, out, `<a href=\"/proto/shop.md#Order\" id=\"1.shop.Order\">x</a>`)
	assert.Contains(t, logs, "Linked pages")
}

func TestPreprocessCommand_Failure(t *testing.T) {
	input := `[{"root": "/book", "config": {"preprocessor": {"protobuf": {"proto_sources": ["shop.proto"], "import_paths": ["proto"]}}},
		"renderer": "html", "mdbook_version": "0.4.40"},
		{"sections": [{"Chapter": {"name": "Guide", "content": "[x](proto!(Ordr))", "path": "guide.md"}}]}]`

	out, _, err := run(t, testApp(t), input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No protobuf symbol matched your query `Ordr`")
	assert.Empty(t, out)
}

func TestBuildCommand(t *testing.T) {
	a := testApp(t)
	out, _, err := run(t, a, "", "build", "-c", "/book/protobook.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "2 pages written to /book/out")

	guide, err := afero.ReadFile(a.fs, "/book/out/guide.md")
	require.NoError(t, err)
	assert.Contains(t, string(guide), `id="1.shop.Item"`)
}

func TestUsagesCommand(t *testing.T) {
	out, _, err := run(t, testApp(t), "", "usages", "Kind", "-c", "/book/protobook.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, ".shop.Kind\n")
	assert.Contains(t, out, "used by (1)\n    .shop.Item\n")
	assert.Contains(t, out, "transitively used by (2)\n    .shop.Order\n    .shop.Orders::Place\n")
	assert.Contains(t, out, "cited in (0)")

	out, _, err = run(t, testApp(t), "", "usages", "Item", "-c", "/book/protobook.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "cited in (1)\n    Guide[1] /guide.md#1.shop.Item\n")
}

func TestLogLevelFlag(t *testing.T) {
	a := testApp(t)
	_, _, err := run(t, a, "", "--verbose", "supports", "html")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, a.log.GetLevel())
}
