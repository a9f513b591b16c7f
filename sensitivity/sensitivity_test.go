package sensitivity

import (
	"reflect"
	"testing"
)

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"plain", "what is the weather today", nil},
		{"email", "reach me at jane.doe@example.com", []string{TagPIIEmail}},
		{"phone", "call 415-555-0132 tomorrow", []string{TagPIIPhone}},
		{"medical", "ask the doctor about my diagnosis", []string{TagPHIMedical}},
		{"financial", "what's my bank loan balance", []string{TagFinancial}},
		{
			"combined",
			"email jane.doe@example.com about the bank loan",
			[]string{TagFinancial, TagPIIEmail},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Tags(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Tags(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestUnionDedupesAndSorts(t *testing.T) {
	got := Union([]string{TagPIIEmail, TagFinancial}, []string{TagFinancial, TagPHIMedical})
	want := []string{TagFinancial, TagPHIMedical, TagPIIEmail}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Union = %v, want %v", got, want)
	}
}

func TestUnionEmptyIsNil(t *testing.T) {
	if got := Union(nil, nil); got != nil {
		t.Fatalf("Union(nil, nil) = %v, want nil", got)
	}
}
