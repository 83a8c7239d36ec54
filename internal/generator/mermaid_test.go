package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"protobook/internal/ir"
)

func TestMermaidGenerator_GenerateUsageDiagram(t *testing.T) {
	m := &MermaidGenerator{}

	diagram := m.GenerateUsageDiagram(sampleNamespace())
	assert.Equal(t, "```mermaid\n"+
		"graph LR\n"+
		"    greeter[\"Greeter\"]\n"+
		"    helloreply[\"HelloReply\"]\n"+
		"    hellorequest[\"HelloRequest\"]\n"+
		"    greeter -->|SayHello| hellorequest\n"+
		"    hellorequest -->|reply_to, labels| helloreply\n"+
		"    greeter -->|SayHello| helloreply\n"+
		"```\n", diagram)

	assert.Empty(t, m.GenerateUsageDiagram(&ir.Namespace{Package: "empty"}))
}

func TestSanitizeMermaidID(t *testing.T) {
	assert.Equal(t, "outer_inner", sanitizeMermaidID("Outer.Inner"))
	assert.Equal(t, "n_1abc", sanitizeMermaidID("1abc"))
	assert.Equal(t, "node", sanitizeMermaidID("  "))
}
