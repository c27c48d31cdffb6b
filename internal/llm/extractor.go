// Package llm - extractor.go provides generic LLM-based structured extraction prompts.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "InventoryItems")
	Description string        // System prompt preamble describing the extraction task
	ListKey     string        // When set, the output is {"<ListKey>": [ {fields...} ]}
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string   // JSON field name
	Type        string   // Type hint: "string", "integer", "number"
	Description string   // Description for the LLM
	Required    bool     // Whether this field is required
	Enum        []string // Allowed values, if restricted
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	indent := "  "
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	if schema.ListKey != "" {
		sb.WriteString(fmt.Sprintf("{\n  %q: [\n    {\n", schema.ListKey))
		indent = "      "
	} else {
		sb.WriteString("{\n")
	}
	for i, field := range schema.Fields {
		sb.WriteString(indent)
		sb.WriteString(describeField(field))
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	if schema.ListKey != "" {
		sb.WriteString("    }\n  ]\n}\n\n")
	} else {
		sb.WriteString("}\n\n")
	}

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text and attached documents, do not invent values.\n")
	sb.WriteString("- Use null for optional fields that are not present.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

func describeField(field SchemaField) string {
	typeHint := field.Type
	if typeHint == "" {
		typeHint = "string"
	}
	if len(field.Enum) > 0 {
		quoted := make([]string, len(field.Enum))
		for i, v := range field.Enum {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		typeHint = "one of " + strings.Join(quoted, " | ")
	}
	hint := fmt.Sprintf("%q: %s", field.Name, typeHint)
	if field.Required {
		hint += " (required)"
	}
	if field.Description != "" {
		hint += " // " + field.Description
	}
	return hint
}
