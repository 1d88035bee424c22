//go:build !cgo

// Package external adapts third-party address intelligence to the pipeline
// interfaces. The libpostal binding needs the C library at build time; a
// non-cgo build gets a stub that reports the classifier as unavailable.
package external

import (
	"errors"

	"github.com/address-normalizer/internal/parser"
)

// ErrClassifierUnavailable is returned by every Classify call in a build
// without cgo
var ErrClassifierUnavailable = errors.New("libpostal classifier requires a cgo build")

// TokenClassifier is the non-cgo placeholder for the libpostal classifier
type TokenClassifier struct{}

// NewTokenClassifier creates the placeholder classifier
func NewTokenClassifier() *TokenClassifier {
	return &TokenClassifier{}
}

// Classify always fails; the extractor folds the failure into an empty
// ambiguous result instead of propagating it
func (c *TokenClassifier) Classify(string) ([]parser.LabeledToken, error) {
	return nil, ErrClassifierUnavailable
}
