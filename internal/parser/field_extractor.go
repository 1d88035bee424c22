package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/address-normalizer/internal/expand"
	"go.uber.org/zap"
)

// LabeledToken is one (label, text) pair returned by the token
// classification collaborator. Labels and text arrive lowercased.
type LabeledToken struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Classifier is the external token-classification collaborator. It may
// return zero, partial, or overlapping spans; it must never be trusted to
// cover the whole input.
type Classifier interface {
	Classify(text string) ([]LabeledToken, error)
}

// AddressFields holds the consolidated values for the fixed output field set.
// Empty strings mean the field was not found or was cleared.
type AddressFields struct {
	HouseNumber string `json:"housenumber,omitempty"`
	Street      string `json:"street,omitempty"`
	Unit        string `json:"unit,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
}

// Extraction is the outcome of one classification pass: the consolidated
// fields plus the ambiguity evidence collected while consolidating
type Extraction struct {
	Fields    AddressFields
	Ambiguous bool
	Notes     []string
}

// fieldKey identifies one slot of the fixed output field set
type fieldKey string

const (
	keyHouseNumber fieldKey = "housenumber"
	keyStreet      fieldKey = "street"
	keyUnit        fieldKey = "unit"
	keyCity        fieldKey = "city"
	keyState       fieldKey = "state"
	keyPostcode    fieldKey = "postcode"
)

// labelFold maps classifier labels onto the fixed output field set. Labels
// absent from the map are dropped unless their text reads as a unit
// designation.
var labelFold = map[string]fieldKey{
	"house_number": keyHouseNumber,
	"road":         keyStreet,
	"unit":         keyUnit,
	"level":        keyUnit,
	"city":         keyCity,
	"state":        keyState,
	"postcode":     keyPostcode,
}

// mergeableKeys may span several consecutive classifier tokens: multi-word
// street names, multi-word cities, house-number ranges. Unit, state, and
// postcode values are atomic, so a second span for them is a conflict.
var mergeableKeys = map[fieldKey]bool{
	keyHouseNumber: true,
	keyStreet:      true,
	keyCity:        true,
}

// fieldCandidate is one folded span waiting for consolidation
type fieldCandidate struct {
	key  fieldKey
	text string
}

// AddressFieldExtractor turns the classifier's labeled spans into
// AddressFields, resolving label collisions by keeping the first span and
// recording the rejected alternative.
type AddressFieldExtractor struct {
	classifier Classifier
	table      *expand.Table
	logger     *zap.Logger

	unitSuffixPattern *regexp.Regexp
	unitIdentPattern  *regexp.Regexp
}

// NewAddressFieldExtractor creates an extractor over the given classifier
func NewAddressFieldExtractor(classifier Classifier, table *expand.Table, logger *zap.Logger) *AddressFieldExtractor {
	e := &AddressFieldExtractor{
		classifier: classifier,
		table:      table,
		logger:     logger,
	}
	e.initializePatterns()
	return e
}

// initializePatterns compiles the span-splitting patterns
func (e *AddressFieldExtractor) initializePatterns() {
	e.unitSuffixPattern = regexp.MustCompile(`^([0-9]+)[-/ ]?([A-Za-z][A-Za-z0-9]*)$`)
	e.unitIdentPattern = regexp.MustCompile(`^#?[A-Za-z0-9][A-Za-z0-9-]{0,5}$`)
}

// Extract classifies the normalized string and consolidates the labeled
// spans into AddressFields. It never fails: classifier errors and unusable
// results come back as empty fields with the ambiguous flag set.
func (e *AddressFieldExtractor) Extract(normalized string) Extraction {
	if strings.TrimSpace(normalized) == "" {
		return Extraction{Ambiguous: true}
	}

	spans, err := e.classifier.Classify(normalized)
	if err != nil {
		e.logger.Warn("token classifier failed",
			zap.String("normalized", normalized),
			zap.Error(err))
		return Extraction{Ambiguous: true}
	}

	anchored := e.anchorSpans(normalized, spans)
	candidates := e.buildCandidates(anchored)
	if len(candidates) == 0 {
		e.logger.Debug("token classifier returned no usable labels",
			zap.String("normalized", normalized))
		return Extraction{Ambiguous: true}
	}

	values, ambiguous, notes := e.consolidate(candidates)
	if street, ok := values[keyStreet]; ok {
		values[keyStreet] = e.polishStreet(street)
	}

	return Extraction{
		Fields: AddressFields{
			HouseNumber: values[keyHouseNumber],
			Street:      values[keyStreet],
			Unit:        values[keyUnit],
			City:        values[keyCity],
			State:       values[keyState],
			Postcode:    values[keyPostcode],
		},
		Ambiguous: ambiguous,
		Notes:     notes,
	}
}

// anchorSpans recovers the original casing of each lowercased span by
// locating it in the normalized string. The scan advances a cursor so equal
// spans anchor to successive occurrences; spans that cannot be located keep
// the classifier's text.
func (e *AddressFieldExtractor) anchorSpans(normalized string, spans []LabeledToken) []LabeledToken {
	lower := strings.ToLower(normalized)
	out := make([]LabeledToken, 0, len(spans))
	cursor := 0
	for _, span := range spans {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}
		needle := strings.ToLower(text)
		if at := strings.Index(lower[cursor:], needle); at >= 0 {
			abs := cursor + at
			out = append(out, LabeledToken{Label: span.Label, Text: normalized[abs : abs+len(needle)]})
			cursor = abs + len(needle)
			continue
		}
		// Overlapping or out-of-order span, retry from the start
		if at := strings.Index(lower, needle); at >= 0 {
			out = append(out, LabeledToken{Label: span.Label, Text: normalized[at : at+len(needle)]})
			continue
		}
		out = append(out, LabeledToken{Label: span.Label, Text: text})
	}
	return out
}

// buildCandidates folds labels onto the fixed field set and splits compound
// spans: a letter suffix on the house number becomes a unit, and designator
// pairs embedded in the street move to unit candidates right after it
func (e *AddressFieldExtractor) buildCandidates(spans []LabeledToken) []fieldCandidate {
	out := make([]fieldCandidate, 0, len(spans))
	for _, span := range spans {
		key, ok := labelFold[strings.ToLower(span.Label)]
		if !ok {
			if e.looksLikeUnitSpan(span.Text) {
				out = append(out, fieldCandidate{key: keyUnit, text: span.Text})
			}
			continue
		}
		switch key {
		case keyHouseNumber:
			if m := e.unitSuffixPattern.FindStringSubmatch(span.Text); m != nil {
				out = append(out, fieldCandidate{key: keyHouseNumber, text: m[1]})
				out = append(out, fieldCandidate{key: keyUnit, text: strings.ToUpper(m[2])})
				continue
			}
			out = append(out, fieldCandidate{key: keyHouseNumber, text: span.Text})
		case keyStreet:
			street, units := e.splitStreetUnit(span.Text)
			if street != "" {
				out = append(out, fieldCandidate{key: keyStreet, text: street})
			}
			for _, unit := range units {
				out = append(out, fieldCandidate{key: keyUnit, text: unit})
			}
		default:
			out = append(out, fieldCandidate{key: key, text: span.Text})
		}
	}
	return out
}

// consolidate assigns candidates to fields in span order. The first span
// for a key wins; consecutive spans for a mergeable key join with a space;
// anything else is recorded as a dropped alternative.
func (e *AddressFieldExtractor) consolidate(candidates []fieldCandidate) (map[fieldKey]string, bool, []string) {
	values := make(map[fieldKey]string, len(candidates))
	var notes []string
	ambiguous := false
	lastKey := fieldKey("")
	for _, cand := range candidates {
		current, exists := values[cand.key]
		switch {
		case !exists:
			values[cand.key] = cand.text
		case mergeableKeys[cand.key] && lastKey == cand.key:
			values[cand.key] = current + " " + cand.text
		default:
			notes = append(notes, fmt.Sprintf("%s: kept %q, dropped %q", cand.key, current, cand.text))
			ambiguous = true
		}
		lastKey = cand.key
	}
	return values, ambiguous, notes
}

// splitStreetUnit peels unit designator pairs out of a street span. Every
// pair leaves the street; they come back as unit candidates in order.
func (e *AddressFieldExtractor) splitStreetUnit(text string) (string, []string) {
	tokens := strings.Fields(text)
	kept := make([]string, 0, len(tokens))
	var units []string
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) && e.isUnitDesignator(tokens[i]) && e.looksLikeUnitIdent(tokens[i+1]) {
			units = append(units, tokens[i]+" "+tokens[i+1])
			i++
			continue
		}
		kept = append(kept, tokens[i])
	}
	return strings.Join(kept, " "), units
}

// polishStreet expands a trailing street-type abbreviation that survived
// normalization because its segment position looked like a state code
func (e *AddressFieldExtractor) polishStreet(street string) string {
	tokens := strings.Fields(street)
	if len(tokens) < 2 {
		return street
	}
	last := strings.ToLower(strings.TrimSuffix(tokens[len(tokens)-1], "."))
	if e.table.Has(last, expand.RoleStreetType) {
		tokens[len(tokens)-1] = e.table.Expand(last, expand.RoleStreetType)
		return strings.Join(tokens, " ")
	}
	return street
}

// looksLikeUnitSpan reports whether an unfoldable span reads as a unit
// designation, either "designator ident" or a bare "#ident"
func (e *AddressFieldExtractor) looksLikeUnitSpan(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return false
	}
	if strings.HasPrefix(tokens[0], "#") && e.looksLikeUnitIdent(tokens[0]) {
		return true
	}
	return len(tokens) == 2 && e.isUnitDesignator(tokens[0]) && e.looksLikeUnitIdent(tokens[1])
}

func (e *AddressFieldExtractor) isUnitDesignator(token string) bool {
	lower := strings.ToLower(strings.TrimSuffix(token, "."))
	return e.table.Has(lower, expand.RoleUnitDesignator) ||
		e.table.Canonical(lower, expand.RoleUnitDesignator)
}

// looksLikeUnitIdent reports whether the token reads as a unit identifier:
// a short alphanumeric token such as "4", "B", "B2", or "#410"
func (e *AddressFieldExtractor) looksLikeUnitIdent(token string) bool {
	if !e.unitIdentPattern.MatchString(token) {
		return false
	}
	trimmed := strings.TrimPrefix(token, "#")
	if len(trimmed) <= 2 {
		return true
	}
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
