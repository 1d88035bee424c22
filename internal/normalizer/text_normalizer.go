// Package normalizer implements the text cleanup stage of the address
// pipeline: transliteration, casing repair, punctuation cleanup, and
// role-scoped abbreviation expansion. Normalize is idempotent and a
// constructed TextNormalizer is safe for concurrent use.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/address-normalizer/internal/expand"
)

// TextNormalizer applies the ordered normalization steps over a raw address
// string. All patterns are precompiled and the abbreviation table is
// read-only, so one instance serves any number of goroutines.
type TextNormalizer struct {
	table *expand.Table

	// Step 1: cleanup patterns (precompiled for performance)
	brPattern      *regexp.Regexp
	controlPattern *regexp.Regexp
	spacePattern   *regexp.Regexp
	dashPattern    *regexp.Regexp

	// Step 3: punctuation and noise patterns
	parenPattern        *regexp.Regexp
	countryPattern      *regexp.Regexp
	abbrevPeriodPattern *regexp.Regexp
	commaPattern        *regexp.Regexp

	// Step 4: token shape patterns
	zipShapePattern  *regexp.Regexp
	routeNumPattern  *regexp.Regexp
	unitIdentPattern *regexp.Regexp
}

// stateCodeAliases are street-type aliases that double as state or territory
// codes; they stay unexpanded in state-like positions and are repaired later
// inside a confirmed street field.
var stateCodeAliases = map[string]bool{
	"ct": true, // Connecticut / Court
	"ky": true, // Kentucky / Key
	"pr": true, // Puerto Rico / Prairie
	"wy": true, // Wyoming / Way
}

// NewTextNormalizer creates a normalizer backed by the given abbreviation table
func NewTextNormalizer(table *expand.Table) *TextNormalizer {
	tn := &TextNormalizer{table: table}
	tn.initializePatterns()
	return tn
}

// initializePatterns compiles all regex patterns for performance
func (tn *TextNormalizer) initializePatterns() {
	tn.brPattern = regexp.MustCompile(`<br ?/>`)
	tn.controlPattern = regexp.MustCompile(`[[:cntrl:]]`)
	tn.spacePattern = regexp.MustCompile(`\s+`)
	tn.dashPattern = regexp.MustCompile(`-{2,}`)

	tn.parenPattern = regexp.MustCompile(`\([^)]*\)`)
	tn.countryPattern = regexp.MustCompile(`(?i)(?:,\s*(?:U\.?S\.?A?\.?|United States(?: of America)?)|\s+(?:USA|United States(?: of America)?))[.\s]*$`)
	tn.abbrevPeriodPattern = regexp.MustCompile(`([a-zA-Z]{2,})\.`)
	tn.commaPattern = regexp.MustCompile(`(?:\s*,)+\s*`)

	tn.zipShapePattern = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	tn.routeNumPattern = regexp.MustCompile(`^\d+[A-Za-z]?$`)
	tn.unitIdentPattern = regexp.MustCompile(`^#?[A-Za-z0-9][A-Za-z0-9-]{0,5}$`)
}

// Normalize runs the full normalization pipeline over one raw string.
// Running it on its own output returns the same string.
func (tn *TextNormalizer) Normalize(raw string) string {
	value := tn.cleanText(raw)
	value = tn.repairCasing(value)
	value = tn.cleanPunctuation(value)
	value = tn.expandAbbreviations(value)
	return tn.finalizeSpacing(value)
}

// cleanText is step 1: HTML line breaks become commas, the text is folded to
// ASCII, and control characters and repeated whitespace collapse away
func (tn *TextNormalizer) cleanText(value string) string {
	value = tn.brPattern.ReplaceAllString(value, ",")
	value = toASCII(value)
	value = tn.controlPattern.ReplaceAllString(value, " ")
	value = tn.dashPattern.ReplaceAllString(value, "-")
	value = tn.spacePattern.ReplaceAllString(value, " ")
	return strings.Trim(value, " ,.")
}

// repairCasing is step 2: ALL-CAPS tokens are title-cased, then the Mc, US,
// ordinal, and route-designator fixes run over the whole string
func (tn *TextNormalizer) repairCasing(value string) string {
	tokens := strings.Fields(value)
	for i, tok := range tokens {
		tokens[i] = titleCase(tok, true)
	}
	value = strings.Join(tokens, " ")
	value = mcReplace(value)
	value = usReplace(value)
	value = ordReplace(value)
	return capRoutes(value)
}

// cleanPunctuation is step 3: parenthesized asides and trailing country
// names are dropped, grid house numbers are joined, abbreviation periods are
// stripped, and comma spacing is normalized. Commas separating street from
// city survive for the classifier.
func (tn *TextNormalizer) cleanPunctuation(value string) string {
	value = tn.parenPattern.ReplaceAllString(value, " ")
	value = tn.countryPattern.ReplaceAllString(value, "")
	value = gridJoin(value)
	value = tn.abbrevPeriodPattern.ReplaceAllString(value, "$1")
	value = tn.commaPattern.ReplaceAllString(value, ", ")
	value = tn.spacePattern.ReplaceAllString(value, " ")
	return strings.Trim(value, " ,.")
}

// expandAbbreviations is step 4: tokens are scanned comma segment by comma
// segment and expanded with the role their position implies
func (tn *TextNormalizer) expandAbbreviations(value string) string {
	segments := strings.Split(value, ",")
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		tokens := strings.Fields(segment)
		if len(tokens) == 0 {
			continue
		}
		out = append(out, strings.Join(tn.expandSegment(tokens), " "))
	}
	return strings.Join(out, ", ")
}

// finalizeSpacing is step 5: rejoin and trim
func (tn *TextNormalizer) finalizeSpacing(value string) string {
	value = tn.spacePattern.ReplaceAllString(value, " ")
	return strings.Trim(value, " ,.")
}

// expandSegment applies the positional expansion rules to one comma segment.
// Tokens already rewritten earlier in the scan count as context for the
// tokens after them.
func (tn *TextNormalizer) expandSegment(tokens []string) []string {
	for i, tok := range tokens {
		lower := strings.ToLower(strings.TrimSuffix(tok, "."))
		switch {
		case tn.table.Has(lower, expand.RoleName):
			tokens[i] = tn.expandNameOrStreetType(tokens, i, tok)
		case lower == "dr":
			tokens[i] = tn.expandDrive(tokens, i, tok)
		case tn.table.Has(lower, expand.RoleDirectional):
			tokens[i] = tn.expandDirectional(tokens, i, tok)
		case lower == "sr":
			tokens[i] = tn.expandStateRoute(tokens, i, tok)
		case tn.table.Has(lower, expand.RoleStreetType):
			tokens[i] = tn.expandStreetType(tokens, i, tok)
		case tn.table.Has(lower, expand.RoleGeneric):
			tokens[i] = tn.table.Expand(lower, expand.RoleGeneric)
		case tn.table.Has(lower, expand.RoleUnitDesignator):
			tokens[i] = tn.canonicalizeUnit(tokens, i, tok)
		}
	}
	return tokens
}

// expandNameOrStreetType resolves tokens that read both as a name word and a
// street type. "St" after a street name is the street type ("Main St" →
// "Main Street"); in leading position before a capitalized name it is the
// name word ("St Louis" → "Saint Louis", "Ft Worth" → "Fort Worth").
func (tn *TextNormalizer) expandNameOrStreetType(tokens []string, i int, tok string) string {
	lower := strings.ToLower(strings.TrimSuffix(tok, "."))
	if i > 0 && hasLetter(tokens[i-1]) {
		if tn.table.Has(lower, expand.RoleStreetType) {
			return tn.table.Expand(lower, expand.RoleStreetType)
		}
		return tok
	}
	if i+1 < len(tokens) && tn.isNameFollower(tokens[i+1]) {
		return tn.table.Expand(lower, expand.RoleName)
	}
	return tok
}

// expandDrive guards "Dr" against the honorific reading: it expands after a
// street name ("Homer Dr") but stays put when it opens a name sequence
// ("Dr Martin Luther King")
func (tn *TextNormalizer) expandDrive(tokens []string, i int, tok string) string {
	if i > 0 && hasLetter(tokens[i-1]) {
		return tn.table.Expand("dr", expand.RoleStreetType)
	}
	return tok
}

// expandDirectional expands a directional abbreviation when its position
// says it modifies a street name. It stays short directly before a street
// type ("E St" is E Street), before a postal code (a state like NE), and at
// segment end unless it trails a street type (the DC quadrant pattern).
func (tn *TextNormalizer) expandDirectional(tokens []string, i int, tok string) string {
	lower := strings.ToLower(strings.TrimSuffix(tok, "."))
	if i+1 >= len(tokens) {
		if len(tokens) == 1 {
			return tn.table.Expand(lower, expand.RoleDirectional)
		}
		prev := strings.ToLower(strings.TrimSuffix(tokens[i-1], "."))
		if tn.table.Canonical(prev, expand.RoleStreetType) || tn.table.Has(prev, expand.RoleStreetType) {
			return tn.table.Expand(lower, expand.RoleDirectional)
		}
		return tok
	}
	next := strings.ToLower(strings.TrimSuffix(tokens[i+1], "."))
	if tn.zipShapePattern.MatchString(next) {
		return tok
	}
	if tn.table.Has(next, expand.RoleStreetType) || tn.table.Canonical(next, expand.RoleStreetType) {
		return tok
	}
	return tn.table.Expand(lower, expand.RoleDirectional)
}

// expandStateRoute rewrites "SR" to "State Route" when a route number
// follows and the segment names no other street type
func (tn *TextNormalizer) expandStateRoute(tokens []string, i int, tok string) string {
	if i+1 >= len(tokens) || !tn.routeNumPattern.MatchString(tokens[i+1]) {
		return tok
	}
	for j, other := range tokens {
		if j == i {
			continue
		}
		lower := strings.ToLower(strings.TrimSuffix(other, "."))
		if tn.table.Has(lower, expand.RoleStreetType) || tn.table.Canonical(lower, expand.RoleStreetType) {
			return tok
		}
	}
	return "State Route"
}

// expandStreetType expands an unambiguous street-type abbreviation once a
// street name precedes it. Aliases that double as state codes additionally
// need a following word that rules the state position out.
func (tn *TextNormalizer) expandStreetType(tokens []string, i int, tok string) string {
	lower := strings.ToLower(strings.TrimSuffix(tok, "."))
	if i == 0 || !hasLetter(tokens[i-1]) {
		return tok
	}
	if stateCodeAliases[lower] {
		if i+1 >= len(tokens) || tn.zipShapePattern.MatchString(tokens[i+1]) {
			return tok
		}
	}
	return tn.table.Expand(lower, expand.RoleStreetType)
}

// canonicalizeUnit repairs the casing of a unit designator that sits before
// a unit identifier; it never expands the designator itself
func (tn *TextNormalizer) canonicalizeUnit(tokens []string, i int, tok string) string {
	if i+1 < len(tokens) && tn.looksLikeUnitIdent(tokens[i+1]) {
		return tn.table.Expand(strings.ToLower(strings.TrimSuffix(tok, ".")), expand.RoleUnitDesignator)
	}
	return tok
}

// isNameFollower reports whether the token looks like the continuation of a
// proper name: a capitalized word that is not itself an alias of any role
func (tn *TextNormalizer) isNameFollower(token string) bool {
	if !isCapitalizedWord(token) {
		return false
	}
	lower := strings.ToLower(token)
	for _, role := range []expand.Role{
		expand.RoleStreetType,
		expand.RoleDirectional,
		expand.RoleUnitDesignator,
		expand.RoleName,
		expand.RoleGeneric,
	} {
		if tn.table.Has(lower, role) {
			return false
		}
	}
	return true
}

// looksLikeUnitIdent reports whether the token reads as a unit identifier:
// a short alphanumeric token such as "4", "B", "B2", or "#410"
func (tn *TextNormalizer) looksLikeUnitIdent(token string) bool {
	if !tn.unitIdentPattern.MatchString(token) {
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
