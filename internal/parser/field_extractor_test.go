package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/address-normalizer/internal/expand"
	"go.uber.org/zap"
)

// fakeClassifier returns canned spans per input, standing in for the
// libpostal-backed classifier
type fakeClassifier struct {
	spans map[string][]LabeledToken
	err   error
}

func (f *fakeClassifier) Classify(text string) ([]LabeledToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.spans[text], nil
}

func span(label, text string) LabeledToken {
	return LabeledToken{Label: label, Text: text}
}

func newTestExtractor(t *testing.T, classifier Classifier) *AddressFieldExtractor {
	t.Helper()
	table, err := expand.NewTable()
	if err != nil {
		t.Fatalf("NewTable() failed: %v", err)
	}
	return NewAddressFieldExtractor(classifier, table, zap.NewNop())
}

func TestExtract_BasicFields(t *testing.T) {
	input := "789 Oak Drive, Smallville California, 98765"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "789"),
			span("road", "oak drive"),
			span("city", "smallville"),
			span("state", "california"),
			span("postcode", "98765"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	want := AddressFields{
		HouseNumber: "789",
		Street:      "Oak Drive",
		City:        "Smallville",
		State:       "California",
		Postcode:    "98765",
	}
	if got.Fields != want {
		t.Errorf("Extract(%q).Fields = %+v, want %+v", input, got.Fields, want)
	}
	if got.Ambiguous {
		t.Errorf("Extract(%q) marked ambiguous, want clean", input)
	}
	if len(got.Notes) != 0 {
		t.Errorf("Extract(%q).Notes = %v, want none", input, got.Notes)
	}
}

func TestExtract_MergesConsecutiveSpans(t *testing.T) {
	input := "123 Martin Luther King Boulevard, San Jose"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "123"),
			span("road", "martin luther"),
			span("road", "king boulevard"),
			span("city", "san"),
			span("city", "jose"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	if got.Fields.Street != "Martin Luther King Boulevard" {
		t.Errorf("Street = %q, want %q", got.Fields.Street, "Martin Luther King Boulevard")
	}
	if got.Fields.City != "San Jose" {
		t.Errorf("City = %q, want %q", got.Fields.City, "San Jose")
	}
	if got.Ambiguous {
		t.Error("consecutive spans should merge without ambiguity")
	}
}

func TestExtract_PostcodeConflictKeepsFirst(t *testing.T) {
	input := "158 South Thomas Court 30008 90210"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "158"),
			span("road", "south thomas court"),
			span("postcode", "30008"),
			span("postcode", "90210"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	if got.Fields.Postcode != "30008" {
		t.Errorf("Postcode = %q, want first span %q", got.Fields.Postcode, "30008")
	}
	if !got.Ambiguous {
		t.Error("conflicting postcodes must mark the extraction ambiguous")
	}
	wantNote := `postcode: kept "30008", dropped "90210"`
	if len(got.Notes) != 1 || got.Notes[0] != wantNote {
		t.Errorf("Notes = %v, want [%s]", got.Notes, wantNote)
	}
}

func TestExtract_HouseNumberSuffixBecomesUnit(t *testing.T) {
	input := "123A Main Street, Apt B, New York, Ny 12345-0000"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "123a"),
			span("road", "main street"),
			span("unit", "apt b"),
			span("city", "new york"),
			span("state", "ny"),
			span("postcode", "12345-0000"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	want := AddressFields{
		HouseNumber: "123",
		Street:      "Main Street",
		Unit:        "A",
		City:        "New York",
		State:       "Ny",
		Postcode:    "12345-0000",
	}
	if got.Fields != want {
		t.Errorf("Fields = %+v, want %+v", got.Fields, want)
	}
	if !got.Ambiguous {
		t.Error("dropped unit alternative must mark the extraction ambiguous")
	}
	wantNote := `unit: kept "A", dropped "Apt B"`
	if len(got.Notes) != 1 || got.Notes[0] != wantNote {
		t.Errorf("Notes = %v, want [%s]", got.Notes, wantNote)
	}
}

func TestExtract_StreetEmbeddedUnit(t *testing.T) {
	input := "789 Oak Drive Apt 4"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "789"),
			span("road", "oak drive apt 4"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	if got.Fields.Street != "Oak Drive" {
		t.Errorf("Street = %q, want %q", got.Fields.Street, "Oak Drive")
	}
	if got.Fields.Unit != "Apt 4" {
		t.Errorf("Unit = %q, want %q", got.Fields.Unit, "Apt 4")
	}
	if got.Ambiguous {
		t.Error("single embedded unit should extract cleanly")
	}
}

func TestExtract_SecondEmbeddedUnitConflicts(t *testing.T) {
	input := "222 Northwest Pineapple Avenue Suite A Unit B"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "222"),
			span("road", "northwest pineapple avenue suite a unit b"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	if got.Fields.Street != "Northwest Pineapple Avenue" {
		t.Errorf("Street = %q, want %q", got.Fields.Street, "Northwest Pineapple Avenue")
	}
	if got.Fields.Unit != "Suite A" {
		t.Errorf("Unit = %q, want first pair %q", got.Fields.Unit, "Suite A")
	}
	if !got.Ambiguous {
		t.Error("second embedded unit must mark the extraction ambiguous")
	}
	wantNote := `unit: kept "Suite A", dropped "Unit B"`
	if len(got.Notes) != 1 || got.Notes[0] != wantNote {
		t.Errorf("Notes = %v, want [%s]", got.Notes, wantNote)
	}
}

func TestExtract_UnknownLabels(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		spans []LabeledToken
		want  AddressFields
	}{
		{
			name:  "recipient_dropped",
			input: "John Smith 123 Main Street",
			spans: []LabeledToken{
				span("recipient", "john smith"),
				span("house_number", "123"),
				span("road", "main street"),
			},
			want: AddressFields{HouseNumber: "123", Street: "Main Street"},
		},
		{
			name:  "unit_shaped_span_folds_into_unit",
			input: "123 Main Street Ste 9",
			spans: []LabeledToken{
				span("house_number", "123"),
				span("road", "main street"),
				span("house", "ste 9"),
			},
			want: AddressFields{HouseNumber: "123", Street: "Main Street", Unit: "Ste 9"},
		},
		{
			name:  "pound_ident_folds_into_unit",
			input: "123 Main Street #410",
			spans: []LabeledToken{
				span("house_number", "123"),
				span("road", "main street"),
				span("house", "#410"),
			},
			want: AddressFields{HouseNumber: "123", Street: "Main Street", Unit: "#410"},
		},
		{
			name:  "country_dropped",
			input: "123 Main Street",
			spans: []LabeledToken{
				span("house_number", "123"),
				span("road", "main street"),
				span("country", "usa"),
			},
			want: AddressFields{HouseNumber: "123", Street: "Main Street"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := &fakeClassifier{spans: map[string][]LabeledToken{tc.input: tc.spans}}
			extractor := newTestExtractor(t, classifier)

			got := extractor.Extract(tc.input)
			if got.Fields != tc.want {
				t.Errorf("Fields = %+v, want %+v", got.Fields, tc.want)
			}
			if got.Ambiguous {
				t.Error("dropping an unknown label is not ambiguity")
			}
		})
	}
}

func TestExtract_PolishesTrailingStreetAlias(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		spans []LabeledToken
		want  string
	}{
		{
			name:  "court_kept_short_by_state_guard",
			input: "100 Boca Ct, Springfield",
			spans: []LabeledToken{
				span("house_number", "100"),
				span("road", "boca ct"),
				span("city", "springfield"),
			},
			want: "Boca Court",
		},
		{
			name:  "key_kept_short_by_state_guard",
			input: "200 Turtle Ky",
			spans: []LabeledToken{
				span("house_number", "200"),
				span("road", "turtle ky"),
			},
			want: "Turtle Key",
		},
		{
			name:  "already_expanded_street_untouched",
			input: "300 Elm Street",
			spans: []LabeledToken{
				span("house_number", "300"),
				span("road", "elm street"),
			},
			want: "Elm Street",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := &fakeClassifier{spans: map[string][]LabeledToken{tc.input: tc.spans}}
			extractor := newTestExtractor(t, classifier)

			got := extractor.Extract(tc.input)
			if got.Fields.Street != tc.want {
				t.Errorf("Street = %q, want %q", got.Fields.Street, tc.want)
			}
		})
	}
}

func TestExtract_ClassifierFailure(t *testing.T) {
	extractor := newTestExtractor(t, &fakeClassifier{err: errors.New("classifier crashed")})

	got := extractor.Extract("123 Main Street")

	if got.Fields != (AddressFields{}) {
		t.Errorf("Fields = %+v, want all empty", got.Fields)
	}
	if !got.Ambiguous {
		t.Error("classifier failure must surface as ambiguous, not as an error")
	}
}

func TestExtract_NoUsableLabels(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		spans []LabeledToken
	}{
		{name: "nil_spans", input: "anything at all", spans: nil},
		{name: "only_dropped_labels", input: "123 Main Street", spans: []LabeledToken{span("country", "usa")}},
		{name: "empty_span_text", input: "123 Main Street", spans: []LabeledToken{span("road", "  ")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := &fakeClassifier{spans: map[string][]LabeledToken{tc.input: tc.spans}}
			extractor := newTestExtractor(t, classifier)

			got := extractor.Extract(tc.input)
			if got.Fields != (AddressFields{}) {
				t.Errorf("Fields = %+v, want all empty", got.Fields)
			}
			if !got.Ambiguous {
				t.Error("unusable classifier output must surface as ambiguous")
			}
		})
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	extractor := newTestExtractor(t, &fakeClassifier{err: errors.New("must not be consulted")})

	got := extractor.Extract("   ")

	if got.Fields != (AddressFields{}) || !got.Ambiguous {
		t.Errorf("Extract(blank) = %+v ambiguous=%v, want empty fields and ambiguous", got.Fields, got.Ambiguous)
	}
}

func TestExtract_UnanchoredSpanKeepsClassifierText(t *testing.T) {
	input := "789 Oak Drive"
	classifier := &fakeClassifier{spans: map[string][]LabeledToken{
		input: {
			span("house_number", "789"),
			span("road", "elm street"),
		},
	}}
	extractor := newTestExtractor(t, classifier)

	got := extractor.Extract(input)

	if !strings.EqualFold(got.Fields.Street, "elm street") {
		t.Errorf("Street = %q, want classifier text preserved", got.Fields.Street)
	}
}
