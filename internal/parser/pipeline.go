package parser

import (
	"time"

	"github.com/address-normalizer/internal/expand"
	"github.com/address-normalizer/internal/normalizer"
	"go.uber.org/zap"
)

// Status classifies how far a record got through the pipeline
type Status string

const (
	StatusNormalized  Status = "normalized"
	StatusAmbiguous   Status = "ambiguous"
	StatusNeedsReview Status = "needs_review"
	StatusUnparsed    Status = "unparsed"
)

// Result is the full outcome for one input string
type Result struct {
	Raw        string           `json:"raw"`
	Normalized string           `json:"normalized"`
	Address    CanonicalAddress `json:"address"`
	Status     Status           `json:"status"`
	Confidence float64          `json:"confidence"`
}

// Pipeline chains normalization, field extraction, and assembly. One
// instance is safe for concurrent use; every call is independent.
type Pipeline struct {
	normalizer *normalizer.TextNormalizer
	extractor  *AddressFieldExtractor
	assembler  *AddressAssembler
	logger     *zap.Logger

	// Configuration
	thresholdHigh   float64 // 0.9 - normalized
	thresholdMedium float64 // 0.6 - ambiguous
}

// NewPipeline wires the full normalization chain over the given classifier
// and lookup tables
func NewPipeline(classifier Classifier, table *expand.Table, states *expand.States, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		normalizer:      normalizer.NewTextNormalizer(table),
		extractor:       NewAddressFieldExtractor(classifier, table, logger),
		assembler:       NewAddressAssembler(states, logger),
		logger:          logger,
		thresholdHigh:   0.9,
		thresholdMedium: 0.6,
	}
}

// Tuning carries the deploy-tunable pipeline knobs. Zero values leave the
// corresponding default in place.
type Tuning struct {
	ThresholdHigh    float64
	ThresholdReview  float64
	StateMatchCutoff float64
}

// ApplyTuning overrides the pipeline defaults. Call before serving traffic;
// the knobs are not synchronized against concurrent NormalizeAddress calls.
func (p *Pipeline) ApplyTuning(t Tuning) {
	if t.ThresholdHigh > 0 {
		p.thresholdHigh = t.ThresholdHigh
	}
	if t.ThresholdReview > 0 {
		p.thresholdMedium = t.ThresholdReview
	}
	if t.StateMatchCutoff > 0 {
		p.assembler.matchCutoff = t.StateMatchCutoff
	}
}

// NormalizeAddress runs one raw address through the pipeline. It always
// returns a result; malformed input shows up as cleared fields, the
// ambiguous flag, and a low confidence, never as an error.
func (p *Pipeline) NormalizeAddress(raw string) *Result {
	start := time.Now()

	// 1. Normalize the raw text
	normalized := p.normalizer.Normalize(raw)

	// 2. Extract fields via the token classifier
	extraction := p.extractor.Extract(normalized)

	// 3. Assemble and validate the canonical address
	address := p.assembler.Assemble(extraction)

	// 4. Score and classify the outcome
	result := &Result{
		Raw:        raw,
		Normalized: normalized,
		Address:    address,
	}
	result.Confidence = p.score(extraction, address)
	p.determineStatus(result)

	p.logger.Debug("address normalization completed",
		zap.String("raw", raw),
		zap.Float64("confidence", result.Confidence),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", time.Since(start)))

	return result
}

// NormalizeAddresses runs the pipeline over a batch in order. Callers that
// want parallelism fan out per item instead.
func (p *Pipeline) NormalizeAddresses(raws []string) []*Result {
	results := make([]*Result, len(raws))
	for i, raw := range raws {
		results[i] = p.NormalizeAddress(raw)
	}
	p.logger.Info("normalized address batch", zap.Int("total", len(raws)))
	return results
}

// ConfidenceParts carries the per-dimension inputs to the confidence score
type ConfidenceParts struct {
	Completeness, Validity, Resolution float64
}

// CalculateConfidence collapses the parts into a single confidence value
func CalculateConfidence(parts ConfidenceParts) float64 {
	w := struct {
		CompletenessWeight, ValidityWeight, ResolutionWeight float64
	}{
		CompletenessWeight: 0.45, ValidityWeight: 0.30, ResolutionWeight: 0.25,
	}
	return w.CompletenessWeight*parts.Completeness +
		w.ValidityWeight*parts.Validity +
		w.ResolutionWeight*parts.Resolution
}

// score derives the confidence for one result: how many core fields were
// found, how many survived validation, and whether anything stayed ambiguous
func (p *Pipeline) score(extraction Extraction, address CanonicalAddress) float64 {
	fields := address.Fields
	populated := 0
	for _, value := range []string{fields.HouseNumber, fields.Street, fields.City, fields.State, fields.Postcode} {
		if value != "" {
			populated++
		}
	}
	completeness := float64(populated) / 5.0

	attempted, cleared := 0, 0
	pre, post := extraction.Fields, address.Fields
	for _, pair := range [][2]string{
		{pre.Postcode, post.Postcode},
		{pre.State, post.State},
		{pre.HouseNumber, post.HouseNumber},
	} {
		if pair[0] == "" {
			continue
		}
		attempted++
		if pair[1] == "" {
			cleared++
		}
	}
	validity := 1.0
	if attempted > 0 {
		validity = 1.0 - float64(cleared)/float64(attempted)
	}

	resolution := 1.0
	if address.Ambiguous {
		resolution = 0.0
	}

	return CalculateConfidence(ConfidenceParts{
		Completeness: completeness,
		Validity:     validity,
		Resolution:   resolution,
	})
}

// determineStatus assigns the review band for the result
func (p *Pipeline) determineStatus(result *Result) {
	if result.Confidence >= p.thresholdHigh {
		result.Status = StatusNormalized
	} else if result.Confidence >= p.thresholdMedium {
		result.Status = StatusAmbiguous
	} else {
		result.Status = StatusNeedsReview
	}

	if result.Address.Fields == (AddressFields{}) {
		result.Status = StatusUnparsed
	}
}
