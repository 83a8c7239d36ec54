package extractor

import (
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/ir"
)

// Field numbers from descriptor.proto, used to build SourceCodeInfo paths.
const (
	fileMessageTag   = 4
	fileEnumTag      = 5
	fileServiceTag   = 6
	messageFieldTag  = 2
	messageNestedTag = 3
	messageEnumTag   = 4
	messageOneofTag  = 8
	enumValueTag     = 2
	serviceMethodTag = 2
)

// fileContext indexes one file's SourceCodeInfo by path.
type fileContext struct {
	fd        *descriptorpb.FileDescriptorProto
	locations map[string]*descriptorpb.SourceCodeInfo_Location
	// fallback holds tree-sitter spans keyed by local dotted name, used
	// when the descriptor carries no SourceCodeInfo.
	fallback map[string]ir.Source
}

func newFileContext(fd *descriptorpb.FileDescriptorProto) *fileContext {
	c := &fileContext{fd: fd, locations: make(map[string]*descriptorpb.SourceCodeInfo_Location)}
	for _, loc := range fd.GetSourceCodeInfo().GetLocation() {
		key := pathKey(loc.GetPath())
		// The first location for a path is the declaration itself.
		if _, ok := c.locations[key]; !ok {
			c.locations[key] = loc
		}
	}
	return c
}

func (c *fileContext) hasSourceInfo() bool {
	return len(c.locations) > 0
}

func pathKey(path []int32) string {
	var sb strings.Builder
	for i, p := range path {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(p)))
	}
	return sb.String()
}

func extend(path []int32, elems ...int32) []int32 {
	out := make([]int32, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}

// describe returns the comments and span recorded for a declaration. The
// local name selects the tree-sitter fallback when no SourceCodeInfo exists.
func (c *fileContext) describe(path []int32, local, entity string) (ir.Comments, *ir.Source, error) {
	loc, ok := c.locations[pathKey(path)]
	if !ok {
		if src, found := c.fallback[local]; found && local != "" {
			return ir.Comments{}, &src, nil
		}
		return ir.Comments{}, nil, nil
	}

	comments := ir.Comments{
		Leading:         loc.GetLeadingComments(),
		Trailing:        loc.GetTrailingComments(),
		LeadingDetached: loc.GetLeadingDetachedComments(),
	}
	src, err := spanSource(c.fd.GetName(), loc.GetSpan())
	if err != nil {
		return comments, nil, structural(c.fd.GetName(), entity, "%v", err)
	}
	return comments, src, nil
}

type spanError struct {
	span []int32
}

func (e *spanError) Error() string {
	return "unexpected location span " + pathKey(e.span) + ": want 3 or 4 elements"
}

// spanSource converts a Location span ([line, col, endcol] or
// [line, col, endline, endcol], zero-based lines) into a Source.
func spanSource(file string, span []int32) (*ir.Source, error) {
	var src ir.Source
	switch len(span) {
	case 4:
		src = ir.Source{StartLine: int(span[0]), StartColumn: int(span[1]), EndLine: int(span[2]), EndColumn: int(span[3])}
	case 3:
		src = ir.Source{StartLine: int(span[0]), StartColumn: int(span[1]), EndLine: int(span[0]), EndColumn: int(span[2])}
	default:
		return nil, &spanError{span: span}
	}
	src.File = file
	src.StartLine++
	src.EndLine++
	return &src, nil
}
