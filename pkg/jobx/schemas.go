package jobx

// Category names one job queue. Each category has its own payload schema
// and its own broker queue handle.
type Category string

const (
	CategoryDocumentProcessing  Category = "document-processing"
	CategoryEmbeddingGeneration Category = "embedding-generation"
	CategoryAnalysis            Category = "analysis"
)

// categorySchemas holds the JSON Schema each category's payload must
// satisfy before it is accepted by the broker.
var categorySchemas = map[Category]string{
	CategoryDocumentProcessing: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["userId", "documentId", "fileName", "mimeType", "fileContent"],
		"properties": {
			"userId":      {"type": "string", "minLength": 1},
			"documentId":  {"type": "string", "minLength": 1},
			"fileName":    {"type": "string", "minLength": 1},
			"mimeType":    {"type": "string", "minLength": 1},
			"fileContent": {"type": "string", "minLength": 1},
			"createdAt":   {"type": "string"}
		}
	}`,
	CategoryEmbeddingGeneration: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["userId", "documentId"],
		"properties": {
			"userId":     {"type": "string", "minLength": 1},
			"documentId": {"type": "string", "minLength": 1},
			"chunkIds":   {"type": "array", "items": {"type": "string"}}
		}
	}`,
	CategoryAnalysis: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["userId", "documentId", "analysisType"],
		"properties": {
			"userId":       {"type": "string", "minLength": 1},
			"documentId":   {"type": "string", "minLength": 1},
			"analysisType": {"type": "string", "enum": ["ingredient", "compliance", "formula"]}
		}
	}`,
}
