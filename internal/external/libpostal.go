//go:build cgo

// Package external adapts third-party address intelligence to the pipeline
// interfaces. The libpostal binding needs the C library at build time; a
// non-cgo build gets a stub that reports the classifier as unavailable.
package external

import (
	postal "github.com/openvenues/gopostal/parser"

	"github.com/address-normalizer/internal/parser"
)

// TokenClassifier adapts libpostal's statistical address parser to the
// pipeline's classifier interface
type TokenClassifier struct{}

// NewTokenClassifier creates the libpostal-backed classifier
func NewTokenClassifier() *TokenClassifier {
	return &TokenClassifier{}
}

// Classify runs libpostal over the text. Labels and values come back
// lowercased; the extractor re-anchors them against its input to recover
// casing.
func (c *TokenClassifier) Classify(text string) ([]parser.LabeledToken, error) {
	comps := postal.ParseAddress(text)
	spans := make([]parser.LabeledToken, 0, len(comps))
	for _, comp := range comps {
		spans = append(spans, parser.LabeledToken{Label: comp.Label, Text: comp.Value})
	}
	return spans, nil
}
