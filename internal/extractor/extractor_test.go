package extractor

import (
	"errors"
	"sort"
	"testing"

	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"protobook/internal/graph"
	"protobook/internal/ir"
	"protobook/internal/symbol"
)

const shopProto = `syntax = "proto3";

package shop.v1;

// An item for sale.
message Item {
  // Stock keeping unit.
  string sku = 1;
  Price price = 2; // Unit price.
  map<string, Price> regional = 3;
  optional string note = 4;

  oneof source {
    string warehouse = 5;
    Supplier supplier = 6;
  }

  message Supplier {
    string name = 1;
    Status status = 2;
  }

  enum Status {
    STATUS_UNSPECIFIED = 0;
    STATUS_RETIRED = 1 [deprecated = true];
  }

  int32 quantity = 7 [deprecated = true];
}

message Price {
  int64 cents = 1;
}

service Catalog {
  // Fetches one item.
  rpc GetItem(Price) returns (Item);
  rpc WatchItems(stream Price) returns (stream Item) {
    option deprecated = true;
  }
}
`

func compile(t *testing.T, sources map[string]string) []*descriptorpb.FileDescriptorProto {
	t.Helper()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	parser := protoparse.Parser{
		IncludeSourceCodeInfo: true,
		Accessor:              protoparse.FileContentsFromMap(sources),
	}
	fds, err := parser.ParseFiles(names...)
	require.NoError(t, err)

	out := make([]*descriptorpb.FileDescriptorProto, 0, len(fds))
	for _, fd := range fds {
		out = append(out, fd.AsFileDescriptorProto())
	}
	return out
}

func extract(t *testing.T, fd *descriptorpb.FileDescriptorProto, opts ...Option) (*ir.File, *graph.Graph) {
	t.Helper()
	g := graph.NewGraph()
	e := NewExtractor(symbol.NewPackages(fd.GetPackage()), g, opts...)
	file, err := e.ExtractFile(fd)
	require.NoError(t, err)
	return file, g
}

func TestExtractFile_Entities(t *testing.T) {
	fd := compile(t, map[string]string{"shop/v1/item.proto": shopProto})[0]
	file, _ := extract(t, fd)

	assert.Equal(t, "shop.v1", file.Package)
	assert.Equal(t, "proto3", file.Syntax)
	require.Len(t, file.Messages, 2)
	require.Len(t, file.Services, 1)

	item := file.Messages[0]
	t.Run("Identity", func(t *testing.T) {
		assert.Equal(t, "shop/v1", item.Link.Path)
		assert.Equal(t, "Item", item.Link.Symbol)
		assert.Equal(t, " An item for sale.\n", item.Comments.Leading)
		require.NotNil(t, item.Source)
		assert.Equal(t, "shop/v1/item.proto", item.Source.File)
		assert.Equal(t, 6, item.Source.StartLine)
	})

	t.Run("Oneof sits at its first field", func(t *testing.T) {
		require.Len(t, item.Members, 6)
		names := make([]string, 0, len(item.Members))
		for _, m := range item.Members {
			if m.Oneof != nil {
				names = append(names, "oneof "+m.Oneof.Name)
				continue
			}
			names = append(names, m.Field.Name)
		}
		assert.Equal(t, []string{"sku", "price", "regional", "note", "oneof source", "quantity"}, names)

		oneof := item.Members[4].Oneof
		require.Len(t, oneof.Fields, 2)
		assert.Equal(t, "warehouse", oneof.Fields[0].Name)
		assert.Len(t, item.Fields(), 7)
	})

	t.Run("Field details", func(t *testing.T) {
		sku := item.Members[0].Field
		assert.Equal(t, " Stock keeping unit.\n", sku.Comments.Leading)
		assert.Equal(t, "string", sku.Type.String())
		assert.Equal(t, ".shop.v1.Item::sku", sku.Link.FQSL())

		price := item.Members[1].Field
		assert.Equal(t, " Unit price.\n", price.Comments.Trailing)
		assert.Equal(t, ir.ReferenceType, price.Type.Kind)
		assert.Equal(t, ".shop.v1.Price", price.Type.String())

		regional := item.Members[2].Field
		assert.Equal(t, ir.MapType, regional.Type.Kind)
		assert.Equal(t, "map<string, .shop.v1.Price>", regional.Type.String())
		assert.False(t, regional.Repeated)

		note := item.Members[3].Field
		assert.True(t, note.Optional)
		assert.Nil(t, note.OneofIndex)

		assert.True(t, item.Members[5].Field.Deprecated)
	})

	t.Run("Nested declarations skip map entries", func(t *testing.T) {
		require.Len(t, item.Messages, 1)
		assert.Equal(t, "Item.Supplier", item.Messages[0].Link.Symbol)
		require.Len(t, item.Enums, 1)
		status := item.Enums[0]
		assert.Equal(t, "Item.Status", status.Link.Symbol)
		require.Len(t, status.Values, 2)
		assert.Equal(t, int32(1), status.Values[1].Number)
		assert.True(t, status.Values[1].Deprecated)
	})

	t.Run("Methods", func(t *testing.T) {
		catalog := file.Services[0]
		require.Len(t, catalog.Methods, 2)
		get := catalog.Methods[0]
		assert.Equal(t, ".shop.v1.Catalog::GetItem", get.Link.FQSL())
		assert.Equal(t, " Fetches one item.\n", get.Comments.Leading)
		assert.Equal(t, ".shop.v1.Price", get.Request.FQSL())
		assert.Equal(t, ".shop.v1.Item", get.Response.FQSL())

		watch := catalog.Methods[1]
		assert.True(t, watch.ClientStreaming)
		assert.True(t, watch.ServerStreaming)
		assert.True(t, watch.Deprecated)
	})
}

func TestExtractFile_Edges(t *testing.T) {
	fd := compile(t, map[string]string{"shop/v1/item.proto": shopProto})[0]
	_, g := extract(t, fd)

	price := symbol.New("shop.v1", "Price")
	item := symbol.New("shop.v1", "Item")

	t.Run("Every entity is declared", func(t *testing.T) {
		for _, fqsl := range []string{".shop.v1.Item", ".shop.v1.Item.Supplier", ".shop.v1.Item.Status", ".shop.v1.Price", ".shop.v1.Catalog", ".shop.v1.Catalog::GetItem"} {
			assert.True(t, g.Has(symbol.FromFQSL(fqsl, symbol.NewPackages("shop.v1"))), fqsl)
		}
		assert.False(t, g.Has(symbol.New("shop.v1", "Item.RegionalEntry")))
	})

	t.Run("Field and method usages in declaration order", func(t *testing.T) {
		var users []string
		for _, b := range g.Usages(price) {
			require.Equal(t, graph.KindSymbol, b.Kind)
			users = append(users, b.Symbol.FQSL())
		}
		assert.Equal(t, []string{
			".shop.v1.Item::price",
			".shop.v1.Item::regional",
			".shop.v1.Catalog::GetItem",
			".shop.v1.Catalog::WatchItems",
		}, users)
	})

	t.Run("Response edges", func(t *testing.T) {
		usages := g.Usages(item)
		require.Len(t, usages, 2)
		assert.Equal(t, "GetItem", usages[0].Symbol.Property)
	})

	t.Run("Nested targets", func(t *testing.T) {
		supplier := g.Usages(symbol.New("shop.v1", "Item.Supplier"))
		require.Len(t, supplier, 1)
		assert.Equal(t, ".shop.v1.Item::supplier", supplier[0].Symbol.FQSL())

		status := g.Usages(symbol.New("shop.v1", "Item.Status"))
		require.Len(t, status, 1)
		assert.Equal(t, ".shop.v1.Item.Supplier::status", status[0].Symbol.FQSL())
	})
}

func TestExtractFile_CrossPackage(t *testing.T) {
	fds := compile(t, map[string]string{
		"common/money.proto": `syntax = "proto3";
package common;
message Money { int64 units = 1; }
`,
		"billing/invoice.proto": `syntax = "proto3";
package billing.v2;
import "common/money.proto";
message Invoice { common.Money total = 1; }
`,
	})

	g := graph.NewGraph()
	e := NewExtractor(symbol.NewPackages("common", "billing.v2"), g)
	for _, fd := range fds {
		_, err := e.ExtractFile(fd)
		require.NoError(t, err)
	}

	usages := g.Usages(symbol.New("common", "Money"))
	require.Len(t, usages, 1)
	assert.Equal(t, "billing/v2", usages[0].Symbol.Path)
	assert.Equal(t, "Invoice", usages[0].Symbol.Symbol)
	assert.Equal(t, "total", usages[0].Symbol.Property)
}

func TestExtractFile_StructuralErrors(t *testing.T) {
	base := compile(t, map[string]string{"shop/v1/item.proto": shopProto})[0]

	t.Run("Method without request type", func(t *testing.T) {
		fd := proto.Clone(base).(*descriptorpb.FileDescriptorProto)
		fd.Service[0].Method[0].InputType = nil

		_, err := NewExtractor(symbol.NewPackages("shop.v1"), graph.NewGraph()).ExtractFile(fd)
		var structErr *StructuralError
		require.True(t, errors.As(err, &structErr))
		assert.Equal(t, ".shop.v1.Catalog::GetItem", structErr.Entity)
	})

	t.Run("Field without type name", func(t *testing.T) {
		fd := proto.Clone(base).(*descriptorpb.FileDescriptorProto)
		fd.MessageType[1].Field[0].Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()

		_, err := NewExtractor(symbol.NewPackages("shop.v1"), graph.NewGraph()).ExtractFile(fd)
		var structErr *StructuralError
		require.True(t, errors.As(err, &structErr))
		assert.Equal(t, ".shop.v1.Price::cents", structErr.Entity)
	})

	t.Run("Malformed span", func(t *testing.T) {
		fd := proto.Clone(base).(*descriptorpb.FileDescriptorProto)
		for _, loc := range fd.GetSourceCodeInfo().GetLocation() {
			if pathKey(loc.GetPath()) == "4,1" {
				loc.Span = []int32{1, 2}
			}
		}

		_, err := NewExtractor(symbol.NewPackages("shop.v1"), graph.NewGraph()).ExtractFile(fd)
		var structErr *StructuralError
		require.True(t, errors.As(err, &structErr))
		assert.Equal(t, ".shop.v1.Price", structErr.Entity)
	})
}

func TestSpanSource(t *testing.T) {
	src, err := spanSource("a.proto", []int32{2, 0, 14})
	require.NoError(t, err)
	assert.Equal(t, ir.Source{File: "a.proto", StartLine: 3, StartColumn: 0, EndLine: 3, EndColumn: 14}, *src)
	assert.Equal(t, "a.proto#L3", src.Href(""))

	src, err = spanSource("a.proto", []int32{2, 0, 8, 1})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/tree/main/a.proto#L3-L9", src.Href("https://example.com/tree/main/"))

	_, err = spanSource("a.proto", []int32{1, 2, 3, 4, 5})
	assert.Error(t, err)
}

func TestSourceLocator(t *testing.T) {
	source, err := afero.ReadFile(afero.NewOsFs(), "testdata/greeter.proto")
	require.NoError(t, err)

	t.Run("Declarations by local name", func(t *testing.T) {
		spans, err := LocateDeclarations("hello/greeter.proto", source)
		require.NoError(t, err)

		assert.Equal(t, 5, spans["HelloRequest"].StartLine)
		assert.Equal(t, 16, spans["HelloRequest"].EndLine)
		assert.Equal(t, 8, spans["HelloRequest.Meta"].StartLine)
		assert.Equal(t, 12, spans["HelloRequest.Kind"].StartLine)
		assert.Equal(t, 18, spans["HelloReply"].StartLine)
		assert.Equal(t, 22, spans["Greeter"].StartLine)
		assert.Equal(t, 23, spans["Greeter.SayHello"].StartLine)
		assert.Equal(t, "hello/greeter.proto", spans["Greeter"].File)
	})

	t.Run("Fallback for descriptors without source info", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/protos/hello/greeter.proto", source, 0o644))

		fd := compile(t, map[string]string{"hello/greeter.proto": string(source)})[0]
		fd.SourceCodeInfo = nil

		file, _ := extract(t, fd, WithLocator(NewSourceLocator(fs, "/protos")))
		require.NotNil(t, file.Messages[0].Source)
		assert.Equal(t, 5, file.Messages[0].Source.StartLine)
		require.NotNil(t, file.Services[0].Methods[0].Source)
		assert.Equal(t, 23, file.Services[0].Methods[0].Source.StartLine)
		assert.True(t, file.Messages[0].Comments.Empty())
	})

	t.Run("Missing source is not fatal", func(t *testing.T) {
		fd := compile(t, map[string]string{"hello/greeter.proto": string(source)})[0]
		fd.SourceCodeInfo = nil

		file, _ := extract(t, fd, WithLocator(NewSourceLocator(afero.NewMemMapFs(), "/nowhere")))
		assert.Nil(t, file.Messages[0].Source)
	})
}
