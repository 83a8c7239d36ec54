package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/protobuf"
	"github.com/spf13/afero"

	"protobook/internal/ir"
)

// declarationKinds maps tree-sitter node types to the node type holding
// their name.
var declarationKinds = map[string]string{
	"message": "message_name",
	"enum":    "enum_name",
	"service": "service_name",
	"rpc":     "rpc_name",
}

// SourceLocator recovers declaration spans from `.proto` sources for
// descriptor sets compiled without SourceCodeInfo.
type SourceLocator struct {
	fs   afero.Fs
	root string
}

// NewSourceLocator reads sources relative to root.
func NewSourceLocator(fs afero.Fs, root string) *SourceLocator {
	return &SourceLocator{fs: fs, root: root}
}

// Locate parses one source file and returns spans keyed by local dotted
// name: `Outer.Inner`, `Color`, `Greeter`, `Greeter.SayHello`.
func (l *SourceLocator) Locate(file string) (map[string]ir.Source, error) {
	path := filepath.Join(l.root, filepath.FromSlash(file))
	sourceCode, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proto source %s: %w", path, err)
	}
	return LocateDeclarations(file, sourceCode)
}

// LocateDeclarations parses proto source code with tree-sitter.
func LocateDeclarations(file string, sourceCode []byte) (map[string]ir.Source, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(protobuf.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proto source %s: %w", file, err)
	}
	defer tree.Close()

	spans := make(map[string]ir.Source)
	collectDeclarations(tree.RootNode(), sourceCode, file, nil, spans)
	return spans, nil
}

func collectDeclarations(node *sitter.Node, sourceCode []byte, file string, scope []string, out map[string]ir.Source) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		nameType, ok := declarationKinds[child.Type()]
		if !ok {
			collectDeclarations(child, sourceCode, file, scope, out)
			continue
		}

		name := declarationName(child, nameType, sourceCode)
		if name == "" {
			continue
		}
		local := append(append([]string(nil), scope...), name)
		out[strings.Join(local, ".")] = ir.Source{
			File:        file,
			StartLine:   int(child.StartPoint().Row) + 1,
			StartColumn: int(child.StartPoint().Column),
			EndLine:     int(child.EndPoint().Row) + 1,
			EndColumn:   int(child.EndPoint().Column),
		}
		collectDeclarations(child, sourceCode, file, local, out)
	}
}

func declarationName(node *sitter.Node, nameType string, sourceCode []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == nameType {
			return strings.TrimSpace(child.Content(sourceCode))
		}
	}
	return ""
}
