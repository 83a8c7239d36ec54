package generator

import "google.golang.org/protobuf/types/descriptorpb"

// Primitive describes how a scalar proto type maps onto generated code.
type Primitive struct {
	Proto      string
	Note       string
	Cpp        string
	JavaKotlin string
	Python     string
	Go         string
	Ruby       string
	CSharp     string
	PHP        string
	Dart       string
	Rust       string
}

// Languages lists the language columns in display order.
func (p Primitive) Languages() [][2]string {
	return [][2]string{
		{"C++", p.Cpp},
		{"Java/Kotlin", p.JavaKotlin},
		{"Python", p.Python},
		{"Go", p.Go},
		{"Ruby", p.Ruby},
		{"C#", p.CSharp},
		{"PHP", p.PHP},
		{"Dart", p.Dart},
		{"Rust", p.Rust},
	}
}

// Notes and language mappings follow the proto3 language guide. Notes and
// some cells carry inline HTML.
var primitives = map[descriptorpb.FieldDescriptorProto_Type]Primitive{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE: {Proto: "double", Cpp: "double", JavaKotlin: "double", Python: "float", Go: "float64", Ruby: "Float", CSharp: "double", PHP: "float", Dart: "double", Rust: "f64"},
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:  {Proto: "float", Cpp: "float", JavaKotlin: "float", Python: "float", Go: "float32", Ruby: "Float", CSharp: "float", PHP: "float", Dart: "double", Rust: "f32"},
	descriptorpb.FieldDescriptorProto_TYPE_INT32: {
		Proto: "int32", Note: "Uses variable-length encoding. Inefficient for encoding negative numbers – if your field is likely to have negative values, use sint32 instead.",
		Cpp: "int32", JavaKotlin: "int", Python: "int", Go: "int32", Ruby: "Fixnum or Bignum (as required)", CSharp: "int", PHP: "integer", Dart: "int", Rust: "i32",
	},
	descriptorpb.FieldDescriptorProto_TYPE_INT64: {
		Proto: "int64", Note: "Uses variable-length encoding. Inefficient for encoding negative numbers – if your field is likely to have negative values, use sint64 instead.",
		Cpp: "int64", JavaKotlin: "long", Python: "int/long<sup>[4]</sup>", Go: "int64", Ruby: "Bignum", CSharp: "long", PHP: "integer/string<sup>[6]</sup>", Dart: "Int64", Rust: "i64",
	},
	descriptorpb.FieldDescriptorProto_TYPE_UINT32: {
		Proto: "uint32", Note: "Uses variable-length encoding.",
		Cpp: "uint32", JavaKotlin: "int", Python: "int/long<sup>[4]</sup>", Go: "uint32", Ruby: "Fixnum or Bignum (as required)", CSharp: "uint", PHP: "integer", Dart: "int", Rust: "u32",
	},
	descriptorpb.FieldDescriptorProto_TYPE_UINT64: {
		Proto: "uint64", Note: "Uses variable-length encoding.",
		Cpp: "uint64", JavaKotlin: "long", Python: "int/long<sup>[4]</sup>", Go: "uint64", Ruby: "Bignum", CSharp: "ulong", PHP: "integer/string<sup>[6]</sup>", Dart: "Int64", Rust: "u64",
	},
	descriptorpb.FieldDescriptorProto_TYPE_SINT32: {
		Proto: "sint32", Note: "Uses variable-length encoding. Signed int value. These more efficiently encode negative numbers than regular int32s.",
		Cpp: "int32", JavaKotlin: "int", Python: "int", Go: "int32", Ruby: "Fixnum or Bignum (as required)", CSharp: "int", PHP: "integer", Dart: "int", Rust: "i32",
	},
	descriptorpb.FieldDescriptorProto_TYPE_SINT64: {
		Proto: "sint64", Note: "Uses variable-length encoding. Signed int value. These more efficiently encode negative numbers than regular int64s.",
		Cpp: "int64", JavaKotlin: "long", Python: "int/long<sup>[4]</sup>", Go: "int64", Ruby: "Bignum", CSharp: "long", PHP: "integer/string<sup>[6]</sup>", Dart: "Int64", Rust: "i64",
	},
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32: {
		Proto: "fixed32", Note: "Always four bytes. More efficient than uint32 if values are often greater than 2<sup>28</sup>.",
		Cpp: "uint32", JavaKotlin: "int", Python: "int/long<sup>[4]</sup>", Go: "uint32", Ruby: "Fixnum or Bignum (as required)", CSharp: "uint", PHP: "integer", Dart: "int", Rust: "u32",
	},
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64: {
		Proto: "fixed64", Note: "Always eight bytes. More efficient than uint64 if values are often greater than 2<sup>56</sup>.",
		Cpp: "uint64", JavaKotlin: "long", Python: "int/long<sup>[4]</sup>", Go: "uint64", Ruby: "Bignum", CSharp: "ulong", PHP: "integer/string<sup>[6]</sup>", Dart: "Int64", Rust: "u64",
	},
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: {
		Proto: "sfixed32", Note: "Always four bytes.",
		Cpp: "int32", JavaKotlin: "int", Python: "int", Go: "int32", Ruby: "Fixnum or Bignum (as required)", CSharp: "int", PHP: "integer", Dart: "int", Rust: "i32",
	},
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: {
		Proto: "sfixed64", Note: "Always eight bytes.",
		Cpp: "int64", JavaKotlin: "long", Python: "int/long<sup>[4]</sup>", Go: "int64", Ruby: "Bignum", CSharp: "long", PHP: "integer/string<sup>[6]</sup>", Dart: "Int64", Rust: "i64",
	},
	descriptorpb.FieldDescriptorProto_TYPE_BOOL: {Proto: "bool", Cpp: "bool", JavaKotlin: "boolean", Python: "bool", Go: "bool", Ruby: "TrueClass/FalseClass", CSharp: "bool", PHP: "boolean", Dart: "bool", Rust: "bool"},
	descriptorpb.FieldDescriptorProto_TYPE_STRING: {
		Proto: "string", Note: "A string must always contain UTF-8 encoded or 7-bit ASCII text, and cannot be longer than 2<sup>32</sup>.",
		Cpp: "string", JavaKotlin: "String", Python: "str/unicode<sup>[5]</sup>", Go: "string", Ruby: "String (UTF-8)", CSharp: "string", PHP: "string", Dart: "String", Rust: "ProtoString",
	},
	descriptorpb.FieldDescriptorProto_TYPE_BYTES: {
		Proto: "bytes", Note: "May contain any arbitrary sequence of bytes no longer than 2<sup>32</sup>.",
		Cpp: "string", JavaKotlin: "ByteString", Python: "str (Python 2)<br/>bytes (Python 3)", Go: "[]byte", Ruby: "String (ASCII-8BIT)", CSharp: "ByteString", PHP: "string", Dart: "List&lt;int&gt;", Rust: "ProtoBytes",
	},
}

// LookupPrimitive returns the mapping for a scalar type. Message, enum and
// group types have none.
func LookupPrimitive(t descriptorpb.FieldDescriptorProto_Type) (Primitive, bool) {
	p, ok := primitives[t]
	return p, ok
}
