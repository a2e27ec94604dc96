package corpus

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
)

//go:embed default_corpus.json
var defaultCorpus []byte

// Schema returns the JSON-Schema a corpus file must satisfy.
func Schema() map[string]any {
	str := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"corrections", "vendors", "categories"},
		"properties": map[string]any{
			"corrections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"from", "to"},
					"properties": map[string]any{
						"from": str,
						"to":   map[string]any{"type": "string"},
					},
				},
			},
			"vendors": map[string]any{
				"type":  "array",
				"items": str,
			},
			"categories": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "keywords"},
					"properties": map[string]any{
						"name":     str,
						"keywords": map[string]any{"type": "array", "items": str},
					},
				},
			},
			"training": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"text", "category"},
					"properties": map[string]any{
						"text":     str,
						"category": str,
					},
				},
			},
		},
	}
}

var compiledSchema *jsonschema.Schema

func init() {
	b, err := json.Marshal(Schema())
	if err != nil {
		panic(fmt.Sprintf("corpus: marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("corpus.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("corpus: add schema: %v", err))
	}
	compiledSchema = compiler.MustCompile("corpus.json")
}

// Load reads a corpus document, validates it against Schema and builds a Registry.
func Load(r io.Reader) (*Registry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, common.NewAppError(common.CodeCorpusInvalid, "corpus is not valid JSON", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, common.NewAppError(common.CodeCorpusInvalid, "corpus does not match schema", err)
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, common.NewAppError(common.CodeCorpusInvalid, "decode corpus", err)
	}
	return NewRegistry(d)
}

// LoadFile loads a corpus from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the registry built from the embedded reference corpus.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultCorpus))
}

// Resolve loads path when set and falls back to the embedded corpus otherwise.
func Resolve(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
