package extractor

import (
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/graph"
	"protobook/internal/ir"
	"protobook/internal/symbol"
)

// Extractor walks descriptor files once, in declaration order, building the
// entity tree and recording type-usage edges into the shared graph.
type Extractor struct {
	packages symbol.Packages
	graph    *graph.Graph
	locator  *SourceLocator
	log      logrus.FieldLogger
}

type Option func(*Extractor)

// WithLocator enables the tree-sitter span fallback for files without
// SourceCodeInfo.
func WithLocator(l *SourceLocator) Option {
	return func(e *Extractor) { e.locator = l }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Extractor) { e.log = log }
}

// NewExtractor creates an extractor for a descriptor set declaring the given
// packages. Edges are written into g.
func NewExtractor(packages symbol.Packages, g *graph.Graph, opts ...Option) *Extractor {
	e := &Extractor{packages: packages, graph: g, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile converts one descriptor file into its entity tree.
func (e *Extractor) ExtractFile(fd *descriptorpb.FileDescriptorProto) (*ir.File, error) {
	c := newFileContext(fd)
	if !c.hasSourceInfo() && e.locator != nil {
		spans, err := e.locator.Locate(fd.GetName())
		if err != nil {
			e.log.WithError(err).WithField("file", fd.GetName()).Warn("Source fallback unavailable")
		} else {
			c.fallback = spans
		}
	}

	file := &ir.File{
		Name:    fd.GetName(),
		Package: fd.GetPackage(),
		Syntax:  fd.GetSyntax(),
	}
	if file.Syntax == "" {
		file.Syntax = "proto2"
	}

	for i, md := range fd.GetMessageType() {
		msg, err := e.extractMessage(c, md, []int32{fileMessageTag, int32(i)}, nil)
		if err != nil {
			return nil, err
		}
		file.Messages = append(file.Messages, msg)
	}

	for i, ed := range fd.GetEnumType() {
		en, err := e.extractEnum(c, ed, []int32{fileEnumTag, int32(i)}, nil)
		if err != nil {
			return nil, err
		}
		file.Enums = append(file.Enums, en)
	}

	for i, sd := range fd.GetService() {
		svc, err := e.extractService(c, sd, []int32{fileServiceTag, int32(i)})
		if err != nil {
			return nil, err
		}
		file.Services = append(file.Services, svc)
	}

	e.log.WithFields(logrus.Fields{
		"file":     file.Name,
		"package":  file.Package,
		"messages": len(file.Messages),
		"enums":    len(file.Enums),
		"services": len(file.Services),
	}).Debug("Extracted descriptor file")

	return file, nil
}

// fullName is the fully-qualified name of a declaration, `.pkg.Local`.
func fullName(pkg string, local []string) string {
	name := strings.Join(local, ".")
	if pkg == "" {
		return "." + name
	}
	return "." + pkg + "." + name
}

func (e *Extractor) link(c *fileContext, local []string) symbol.Link {
	return symbol.FromFQSL(fullName(c.fd.GetPackage(), local), e.packages)
}

func (e *Extractor) extractMessage(c *fileContext, md *descriptorpb.DescriptorProto, path []int32, parents []string) (*ir.Message, error) {
	local := append(append([]string(nil), parents...), md.GetName())
	entity := fullName(c.fd.GetPackage(), local)

	// Identity.
	msg := &ir.Message{
		Name:       md.GetName(),
		Link:       e.link(c, local),
		Deprecated: md.GetOptions().GetDeprecated(),
	}
	comments, src, err := c.describe(path, strings.Join(local, "."), entity)
	if err != nil {
		return nil, err
	}
	msg.Comments, msg.Source = comments, src
	if err := e.graph.Declare(msg.Link); err != nil {
		return nil, err
	}

	entries := mapEntries(entity, md)

	fields := make([]*ir.Field, 0, len(md.GetField()))
	for i, fd := range md.GetField() {
		field, err := e.extractField(c, fd, extend(path, messageFieldTag, int32(i)), msg.Link, entity, entries)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	// Edges.
	for _, field := range fields {
		if target, ok := field.Type.Target(); ok {
			if err := e.graph.AddUsage(target, graph.SymbolBacklink(field.Link)); err != nil {
				return nil, err
			}
		}
	}

	msg.Members, err = e.groupOneofs(c, md, path, entity, fields)
	if err != nil {
		return nil, err
	}

	for i, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			continue
		}
		child, err := e.extractMessage(c, nested, extend(path, messageNestedTag, int32(i)), local)
		if err != nil {
			return nil, err
		}
		msg.Messages = append(msg.Messages, child)
	}

	for i, ed := range md.GetEnumType() {
		en, err := e.extractEnum(c, ed, extend(path, messageEnumTag, int32(i)), local)
		if err != nil {
			return nil, err
		}
		msg.Enums = append(msg.Enums, en)
	}

	return msg, nil
}

// groupOneofs turns the flat field list into message members, placing each
// oneof where its first field was declared.
func (e *Extractor) groupOneofs(c *fileContext, md *descriptorpb.DescriptorProto, path []int32, entity string, fields []*ir.Field) ([]ir.Member, error) {
	members := make([]ir.Member, 0, len(fields))
	groups := make(map[int32]*ir.Oneof)

	for _, field := range fields {
		if field.OneofIndex == nil {
			members = append(members, ir.Member{Field: field})
			continue
		}

		idx := *field.OneofIndex
		group, ok := groups[idx]
		if !ok {
			if int(idx) >= len(md.GetOneofDecl()) || idx < 0 {
				return nil, structural(c.fd.GetName(), entity+"."+field.Name, "oneof index %d out of range", idx)
			}
			decl := md.GetOneofDecl()[idx]
			group = &ir.Oneof{Name: decl.GetName()}
			comments, src, err := c.describe(extend(path, messageOneofTag, idx), "", entity+"."+decl.GetName())
			if err != nil {
				return nil, err
			}
			group.Comments, group.Source = comments, src
			groups[idx] = group
			members = append(members, ir.Member{Oneof: group})
		}
		group.Fields = append(group.Fields, field)
	}

	return members, nil
}

func (e *Extractor) extractEnum(c *fileContext, ed *descriptorpb.EnumDescriptorProto, path []int32, parents []string) (*ir.Enum, error) {
	local := append(append([]string(nil), parents...), ed.GetName())
	entity := fullName(c.fd.GetPackage(), local)

	en := &ir.Enum{
		Name:       ed.GetName(),
		Link:       e.link(c, local),
		Deprecated: ed.GetOptions().GetDeprecated(),
	}
	comments, src, err := c.describe(path, strings.Join(local, "."), entity)
	if err != nil {
		return nil, err
	}
	en.Comments, en.Source = comments, src
	if err := e.graph.Declare(en.Link); err != nil {
		return nil, err
	}

	for i, vd := range ed.GetValue() {
		valueComments, _, err := c.describe(extend(path, enumValueTag, int32(i)), "", entity+"."+vd.GetName())
		if err != nil {
			return nil, err
		}
		en.Values = append(en.Values, ir.EnumValue{
			Name:       vd.GetName(),
			Number:     vd.GetNumber(),
			Deprecated: vd.GetOptions().GetDeprecated(),
			Comments:   valueComments,
		})
	}

	return en, nil
}

func (e *Extractor) extractService(c *fileContext, sd *descriptorpb.ServiceDescriptorProto, path []int32) (*ir.Service, error) {
	local := []string{sd.GetName()}
	entity := fullName(c.fd.GetPackage(), local)

	svc := &ir.Service{
		Name:       sd.GetName(),
		Link:       e.link(c, local),
		Deprecated: sd.GetOptions().GetDeprecated(),
	}
	comments, src, err := c.describe(path, sd.GetName(), entity)
	if err != nil {
		return nil, err
	}
	svc.Comments, svc.Source = comments, src
	if err := e.graph.Declare(svc.Link); err != nil {
		return nil, err
	}

	for i, md := range sd.GetMethod() {
		method, err := e.extractMethod(c, md, extend(path, serviceMethodTag, int32(i)), svc.Link, entity)
		if err != nil {
			return nil, err
		}
		svc.Methods = append(svc.Methods, method)
	}

	return svc, nil
}

func (e *Extractor) extractMethod(c *fileContext, md *descriptorpb.MethodDescriptorProto, path []int32, service symbol.Link, serviceEntity string) (*ir.Method, error) {
	entity := serviceEntity + symbol.PropertySeparator + md.GetName()

	// Identity.
	if md.GetInputType() == "" {
		return nil, structural(c.fd.GetName(), entity, "method has no request type")
	}
	if md.GetOutputType() == "" {
		return nil, structural(c.fd.GetName(), entity, "method has no response type")
	}
	method := &ir.Method{
		Name:            md.GetName(),
		Link:            service.WithProperty(md.GetName()),
		Request:         symbol.FromFQSL(md.GetInputType(), e.packages),
		Response:        symbol.FromFQSL(md.GetOutputType(), e.packages),
		ClientStreaming: md.GetClientStreaming(),
		ServerStreaming: md.GetServerStreaming(),
		Deprecated:      md.GetOptions().GetDeprecated(),
	}
	comments, src, err := c.describe(path, service.Symbol+"."+md.GetName(), entity)
	if err != nil {
		return nil, err
	}
	method.Comments, method.Source = comments, src
	if err := e.graph.Declare(method.Link); err != nil {
		return nil, err
	}

	// Edges.
	if err := e.graph.AddUsage(method.Request, graph.SymbolBacklink(method.Link)); err != nil {
		return nil, err
	}
	if err := e.graph.AddUsage(method.Response, graph.SymbolBacklink(method.Link)); err != nil {
		return nil, err
	}

	return method, nil
}
