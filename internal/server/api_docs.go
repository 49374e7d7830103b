package server

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec []byte

// apiDocs holds the embedded OpenAPI document in its raw and decoded forms.
type apiDocs struct {
	raw      []byte
	document map[string]any
}

func loadAPIDocs(raw []byte) (*apiDocs, error) {
	var document map[string]any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if _, ok := document["openapi"]; !ok {
		return nil, fmt.Errorf("parse openapi document: missing openapi version")
	}
	return &apiDocs{raw: raw, document: document}, nil
}

func mustLoadAPIDocs() *apiDocs {
	docs, err := loadAPIDocs(openAPISpec)
	if err != nil {
		panic(err)
	}
	return docs
}
