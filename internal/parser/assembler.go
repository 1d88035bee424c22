package parser

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/address-normalizer/internal/expand"
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
	"go.uber.org/zap"
)

// Tag keys of the canonical output mapping, following the OSM addr schema
const (
	TagHouseNumber = "addr:housenumber"
	TagStreet      = "addr:street"
	TagUnit        = "addr:unit"
	TagCity        = "addr:city"
	TagState       = "addr:state"
	TagPostcode    = "addr:postcode"
)

// CanonicalAddress is the validated end product for one address string.
// It is a pure output value; nothing mutates it after Assemble returns.
type CanonicalAddress struct {
	Fields    AddressFields `json:"fields"`
	Ambiguous bool          `json:"ambiguous"`
	Notes     []string      `json:"notes,omitempty"`
}

// Tags renders the populated fields under their tag keys, omitting empty ones
func (ca CanonicalAddress) Tags() map[string]string {
	pairs := map[string]string{
		TagHouseNumber: ca.Fields.HouseNumber,
		TagStreet:      ca.Fields.Street,
		TagUnit:        ca.Fields.Unit,
		TagCity:        ca.Fields.City,
		TagState:       ca.Fields.State,
		TagPostcode:    ca.Fields.Postcode,
	}
	tags := make(map[string]string, len(pairs))
	for key, value := range pairs {
		if value != "" {
			tags[key] = value
		}
	}
	return tags
}

// AddressAssembler validates extracted fields and produces the canonical
// address. Invalid values are cleared with a note rather than repaired, so
// a reviewer can see what the pipeline refused to guess about.
type AddressAssembler struct {
	states      *expand.States
	logger      *zap.Logger
	matchCutoff float64

	// Validation patterns
	postcodePattern   *regexp.Regexp
	canadianPattern   *regexp.Regexp
	housePlainPattern *regexp.Regexp
	houseRangePattern *regexp.Regexp
	houseGridPattern  *regexp.Regexp
}

// NewAddressAssembler creates an assembler over the given state table
func NewAddressAssembler(states *expand.States, logger *zap.Logger) *AddressAssembler {
	aa := &AddressAssembler{states: states, logger: logger, matchCutoff: 0.8}
	aa.initializePatterns()
	return aa
}

// initializePatterns compiles the field validation patterns
func (aa *AddressAssembler) initializePatterns() {
	aa.postcodePattern = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	aa.canadianPattern = regexp.MustCompile(`^([A-Za-z]\d[A-Za-z])[ -]?(\d[A-Za-z]\d)$`)
	aa.housePlainPattern = regexp.MustCompile(`^\d+[A-Za-z]?$`)
	aa.houseRangePattern = regexp.MustCompile(`^\d+-\d+$`)
	aa.houseGridPattern = regexp.MustCompile(`^[NSEW]\d+[NSEW]\d+$`)
}

// Assemble validates the extracted fields in order: postcode, state, house
// number. Each invalid value is cleared and noted. It never fails; the worst
// case is a value with zero populated fields and the ambiguous flag set.
func (aa *AddressAssembler) Assemble(ex Extraction) CanonicalAddress {
	fields := ex.Fields
	ambiguous := ex.Ambiguous
	notes := append([]string(nil), ex.Notes...)

	if fields.Postcode != "" {
		cleaned, ok := aa.cleanPostcode(fields.Postcode)
		if !ok {
			notes = append(notes, fmt.Sprintf("postcode: dropped %q (invalid format)", fields.Postcode))
			ambiguous = true
		}
		fields.Postcode = cleaned
	}

	if fields.State != "" {
		code, ok := aa.resolveState(fields.State)
		if !ok {
			notes = append(notes, aa.stateNote(fields.State))
			ambiguous = true
		}
		fields.State = code
	}

	if fields.HouseNumber != "" {
		cleaned, ok := aa.cleanHouseNumber(fields.HouseNumber)
		if !ok {
			notes = append(notes, fmt.Sprintf("housenumber: dropped %q (invalid format)", fields.HouseNumber))
			ambiguous = true
		}
		fields.HouseNumber = cleaned
	}

	if fields.Unit != "" {
		fields.Unit = aa.cleanUnit(fields.Unit)
	}

	return CanonicalAddress{Fields: fields, Ambiguous: ambiguous, Notes: notes}
}

// cleanPostcode accepts US 5-digit and 5+4 forms and Canadian postal codes.
// Canadian codes come back as "A1A 1A1"; a trailing "-0000" add-on is noise
// from source data and is stripped.
func (aa *AddressAssembler) cleanPostcode(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if m := aa.canadianPattern.FindStringSubmatch(value); m != nil {
		return strings.ToUpper(m[1] + " " + m[2]), true
	}
	value = strings.ReplaceAll(value, " ", "-")
	value = strings.TrimSuffix(value, "-0000")
	if aa.postcodePattern.MatchString(value) {
		return value, true
	}
	return "", false
}

// resolveState maps a state or province, by full name or two-letter code in
// any casing, to its canonical code. Periods are noise ("P.A.").
func (aa *AddressAssembler) resolveState(raw string) (string, bool) {
	value := strings.TrimSpace(strings.ReplaceAll(raw, ".", ""))
	return aa.states.Code(value)
}

// stateNote builds the note for an unresolvable state, suggesting the
// closest known name when one is close enough
func (aa *AddressAssembler) stateNote(value string) string {
	if code, ok := aa.closestState(value); ok {
		return fmt.Sprintf("state: dropped %q (closest match %s)", value, code)
	}
	return fmt.Sprintf("state: dropped %q (unrecognized)", value)
}

// closestState fuzzy-matches the value against the known state names and
// returns the code of the best candidate above the acceptance bar
func (aa *AddressAssembler) closestState(value string) (string, bool) {
	query := strings.ToLower(strings.TrimSpace(value))
	bestName := ""
	bestScore := 0.0
	for _, name := range aa.states.Names() {
		score := smetrics.JaroWinkler(query, name, 0.7, 4)

		levDist := levenshtein.ComputeDistance(query, name)
		maxLen := math.Max(float64(len(query)), float64(len(name)))
		if levScore := 1.0 - float64(levDist)/maxLen; levScore > score {
			score = levScore
		}

		if score > bestScore {
			bestScore = score
			bestName = name
		}
	}
	if bestScore <= aa.matchCutoff {
		return "", false
	}
	code, ok := aa.states.Code(bestName)
	return code, ok
}

// cleanHouseNumber accepts plain numbers with an optional letter suffix,
// dash ranges, and survey grid numbers like "N65W25055"
func (aa *AddressAssembler) cleanHouseNumber(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if aa.housePlainPattern.MatchString(value) || aa.houseGridPattern.MatchString(value) {
		return value, true
	}
	value = strings.ReplaceAll(value, " ", "-")
	if aa.houseRangePattern.MatchString(value) {
		return value, true
	}
	return "", false
}

// cleanUnit strips the filler around a unit value: a leading "Space"
// designator, pound signs, and stray separators. An all-filler unit cleans
// to empty and drops out of the output.
func (aa *AddressAssembler) cleanUnit(raw string) string {
	tokens := strings.Fields(strings.ReplaceAll(raw, "#", ""))
	if len(tokens) > 0 && tokens[0] == "Space" {
		tokens = tokens[1:]
	}
	return strings.Trim(strings.Join(tokens, " "), " .")
}
