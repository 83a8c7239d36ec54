package index

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/extractor"
	"protobook/internal/graph"
	"protobook/internal/ir"
	"protobook/internal/symbol"
)

// Index is the result of indexing one descriptor set: the entity tree
// grouped by package, the known packages and the seeded graph.
type Index struct {
	Packages   symbol.Packages
	Graph      *graph.Graph
	Namespaces []*ir.Namespace
	Files      int
}

// Namespace returns the namespace for a dotted package, or nil.
func (ix *Index) Namespace(pkg string) *ir.Namespace {
	for _, ns := range ix.Namespaces {
		if ns.Package == pkg {
			return ns
		}
	}
	return nil
}

// Indexer loads descriptor sets and orchestrates extraction.
type Indexer struct {
	fs      afero.Fs
	locator *extractor.SourceLocator
	log     logrus.FieldLogger
}

type Option func(*Indexer)

// WithSourceRoot enables the tree-sitter location fallback for descriptor
// files that carry no SourceCodeInfo.
func WithSourceRoot(root string) Option {
	return func(i *Indexer) {
		if root != "" {
			i.locator = extractor.NewSourceLocator(i.fs, root)
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(i *Indexer) { i.log = log }
}

// NewIndexer creates a new indexer reading from fs.
func NewIndexer(fs afero.Fs, opts ...Option) *Indexer {
	i := &Indexer{fs: fs, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// LoadDescriptorSet decodes a binary FileDescriptorSet, as written by
// `protoc --descriptor_set_out --include_source_info`.
func (i *Indexer) LoadDescriptorSet(path string) (*descriptorpb.FileDescriptorSet, error) {
	data, err := afero.ReadFile(i.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor set %s: %w", path, err)
	}

	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor set %s: %w", path, err)
	}
	return &set, nil
}

// CompileSources parses `.proto` files directly. Imports are included in
// dependency order, ahead of the files that import them.
func (i *Indexer) CompileSources(importPaths, files []string) (*descriptorpb.FileDescriptorSet, error) {
	parser := protoparse.Parser{
		ImportPaths:           importPaths,
		IncludeSourceCodeInfo: true,
		Accessor: func(filename string) (io.ReadCloser, error) {
			return i.fs.Open(filepath.Clean(filename))
		},
	}

	fds, err := parser.ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile proto sources: %w", err)
	}

	set := &descriptorpb.FileDescriptorSet{}
	seen := make(map[string]bool)
	var add func(fd *desc.FileDescriptor)
	add = func(fd *desc.FileDescriptor) {
		if seen[fd.GetName()] {
			return
		}
		seen[fd.GetName()] = true
		for _, dep := range fd.GetDependencies() {
			add(dep)
		}
		set.File = append(set.File, fd.AsFileDescriptorProto())
	}
	for _, fd := range fds {
		add(fd)
	}
	return set, nil
}

// Build indexes every file of the set in declaration order.
func (i *Indexer) Build(set *descriptorpb.FileDescriptorSet) (*Index, error) {
	packages := symbol.NewPackages()
	for _, fd := range set.GetFile() {
		packages.Add(fd.GetPackage())
	}

	g := graph.NewGraph()
	opts := []extractor.Option{extractor.WithLogger(i.log)}
	if i.locator != nil {
		opts = append(opts, extractor.WithLocator(i.locator))
	}
	ext := extractor.NewExtractor(packages, g, opts...)

	byPackage := make(map[string]*ir.Namespace)
	for _, fd := range set.GetFile() {
		file, err := ext.ExtractFile(fd)
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", fd.GetName(), err)
		}
		ns, ok := byPackage[file.Package]
		if !ok {
			ns = &ir.Namespace{Package: file.Package}
			byPackage[file.Package] = ns
		}
		ns.Files = append(ns.Files, file)
	}

	ix := &Index{Packages: packages, Graph: g, Files: len(set.GetFile())}
	for _, ns := range byPackage {
		ix.Namespaces = append(ix.Namespaces, ns)
	}
	sort.Slice(ix.Namespaces, func(a, b int) bool {
		return ix.Namespaces[a].Package < ix.Namespaces[b].Package
	})

	i.log.WithFields(logrus.Fields{
		"files":      ix.Files,
		"namespaces": len(ix.Namespaces),
		"symbols":    g.Len(),
	}).Info("Indexed descriptor set")

	return ix, nil
}
