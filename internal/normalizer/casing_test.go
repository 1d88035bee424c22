package normalizer

import "testing"

func TestTitleCase(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		singleWord bool
		expected   string
	}{
		{name: "multi_word_caps", input: "PALM BEACH", expected: "Palm Beach"},
		{name: "single_word_kept", input: "BOSTON", expected: "BOSTON"},
		{name: "single_word_fixed", input: "BOSTON", singleWord: true, expected: "Boston"},
		{name: "three_words", input: "NEW YORK CITY", expected: "New York City"},
		{name: "mc_name_kept", input: "MCGREGOR", expected: "MCGREGOR"},
		{name: "mc_name_fixed", input: "MCGREGOR", singleWord: true, expected: "McGregor"},
		{name: "mixed_case_untouched", input: "Some Mixed Case", expected: "Some Mixed Case"},
		{name: "odd_case_untouched", input: "MiXeD cAsE", expected: "MiXeD cAsE"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := titleCase(tc.input, tc.singleWord)
			if got != tc.expected {
				t.Errorf("titleCase(%q, %v) = %q, want %q", tc.input, tc.singleWord, got, tc.expected)
			}
		})
	}
}

func TestMcReplace(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Fort Mchenry", expected: "Fort McHenry"},
		{input: "Mcmaster is a great leader", expected: "McMaster is a great leader"},
		{input: "Mcdonald's is popular", expected: "McDonald's is popular"},
		{input: "I like the Mcflurry", expected: "I like the McFlurry"},
		{input: "Mcflurry Mcmansion", expected: "McFlurry McMansion"},
		{input: "No Mc in this string", expected: "No Mc in this string"},
	}

	for _, tc := range testCases {
		if got := mcReplace(tc.input); got != tc.expected {
			t.Errorf("mcReplace(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestUsReplace(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "U.S. Route 15", expected: "US Route 15"},
		{input: "Traveling on U. S. Highway", expected: "Traveling on US Highway"},
		{input: "U S Route is the best", expected: "US Route is the best"},
		{input: "This is the US", expected: "This is the US"},
		{input: "United States", expected: "United States"},
	}

	for _, tc := range testCases {
		if got := usReplace(tc.input); got != tc.expected {
			t.Errorf("usReplace(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestOrdReplace(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "December 4Th", expected: "December 4th"},
		{input: "3Rd St. NW", expected: "3rd St. NW"},
		{input: "1St of May", expected: "1st of May"},
		{input: "21ST", expected: "21st"},
	}

	for _, tc := range testCases {
		if got := ordReplace(tc.input); got != tc.expected {
			t.Errorf("ordReplace(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestCapRoutes(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Us Route 123", expected: "US Route 123"},
		{input: "Fm 1960", expected: "FM 1960"},
		{input: "Cr 4041", expected: "CR 4041"},
		{input: "Sr 99", expected: "SR 99"},
		{input: "Rush Street", expected: "Rush Street"},
	}

	for _, tc := range testCases {
		if got := capRoutes(tc.input); got != tc.expected {
			t.Errorf("capRoutes(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestGridJoin(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "N65w25055", expected: "N65W25055"},
		{input: "N65 W25055", expected: "N65W25055"},
		{input: "w204n11912 Garden Dr", expected: "W204N11912 Garden Dr"},
		{input: "123 North Main", expected: "123 North Main"},
	}

	for _, tc := range testCases {
		if got := gridJoin(tc.input); got != tc.expected {
			t.Errorf("gridJoin(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestToASCII(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Café", expected: "Cafe"},
		{input: "Peña Blvd", expected: "Pena Blvd"},
		{input: "Hello, World!", expected: "Hello, World!"},
		{input: "", expected: ""},
	}

	for _, tc := range testCases {
		if got := toASCII(tc.input); got != tc.expected {
			t.Errorf("toASCII(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
