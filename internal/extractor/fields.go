package extractor

import (
	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/ir"
	"protobook/internal/symbol"
)

// mapEntries indexes the synthetic map-entry messages nested in a message
// by their fully-qualified name.
func mapEntries(entity string, md *descriptorpb.DescriptorProto) map[string]*descriptorpb.DescriptorProto {
	entries := make(map[string]*descriptorpb.DescriptorProto)
	for _, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			entries[entity+"."+nested.GetName()] = nested
		}
	}
	return entries
}

func (e *Extractor) extractField(
	c *fileContext,
	fd *descriptorpb.FieldDescriptorProto,
	path []int32,
	owner symbol.Link,
	ownerEntity string,
	entries map[string]*descriptorpb.DescriptorProto,
) (*ir.Field, error) {
	entity := ownerEntity + symbol.PropertySeparator + fd.GetName()

	field := &ir.Field{
		Name:       fd.GetName(),
		Number:     fd.GetNumber(),
		Link:       owner.WithProperty(fd.GetName()),
		Repeated:   fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED,
		Required:   fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED,
		Deprecated: fd.GetOptions().GetDeprecated(),
	}

	switch {
	case fd.GetProto3Optional():
		field.Optional = true
	case fd.OneofIndex != nil:
		idx := fd.GetOneofIndex()
		field.OneofIndex = &idx
	case c.fd.GetSyntax() != "proto3" && fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL:
		field.Optional = true
	}

	if entry, ok := entries[fd.GetTypeName()]; ok && field.Repeated {
		typ, err := e.mapType(c, entry, entity)
		if err != nil {
			return nil, err
		}
		field.Type = typ
		field.Repeated = false
	} else {
		typ, err := e.fieldType(c, fd, entity)
		if err != nil {
			return nil, err
		}
		field.Type = typ
	}

	comments, src, err := c.describe(path, "", entity)
	if err != nil {
		return nil, err
	}
	field.Comments, field.Source = comments, src

	return field, nil
}

func (e *Extractor) fieldType(c *fileContext, fd *descriptorpb.FieldDescriptorProto, entity string) (ir.FieldType, error) {
	isRef := fd.Type == nil ||
		fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_MESSAGE ||
		fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_ENUM ||
		fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_GROUP

	if !isRef {
		return ir.FieldType{Kind: ir.ScalarType, Scalar: fd.GetType()}, nil
	}
	if fd.GetTypeName() == "" {
		return ir.FieldType{}, structural(c.fd.GetName(), entity, "field has no resolvable type name")
	}
	return ir.FieldType{Kind: ir.ReferenceType, Ref: symbol.FromFQSL(fd.GetTypeName(), e.packages)}, nil
}

func (e *Extractor) mapType(c *fileContext, entry *descriptorpb.DescriptorProto, entity string) (ir.FieldType, error) {
	var key, value *descriptorpb.FieldDescriptorProto
	for _, f := range entry.GetField() {
		switch f.GetNumber() {
		case 1:
			key = f
		case 2:
			value = f
		}
	}
	if key == nil || value == nil {
		return ir.FieldType{}, structural(c.fd.GetName(), entity, "map entry %s lacks key or value", entry.GetName())
	}

	keyType, err := e.fieldType(c, key, entity)
	if err != nil {
		return ir.FieldType{}, err
	}
	valueType, err := e.fieldType(c, value, entity)
	if err != nil {
		return ir.FieldType{}, err
	}
	return ir.FieldType{Kind: ir.MapType, Key: &keyType, Value: &valueType}, nil
}
