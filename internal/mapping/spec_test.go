package mapping

import (
	"reflect"
	"testing"

	"github.com/stellarhealth/feedload/internal/model"
)

func demoSpec() *Spec {
	return &Spec{
		FileType: "acme_demographics",
		Kind:     KindDemographics,
		Bindings: []Binding{
			{Field: FieldMemberNumber, Column: "MBR_ID"},
			{Field: FieldFirstName, Column: "FNAME"},
			{Field: FieldLastName, Column: "LNAME"},
			{Field: FieldGender, Column: "SEX"},
			{Field: FieldDateOfBirth, Column: "DOB"},
			{Field: FieldNPI, Column: "PCP_NPI"},
			{Field: FieldTIN, Column: "GRP_TIN"},
		},
		DateFields:        []Field{FieldDateOfBirth},
		NAValues:          []string{"N/A", "UNK"},
		GenderMaleValue:   "1",
		GenderFemaleValue: "2",
	}
}

func TestSpecValidate(t *testing.T) {
	if err := demoSpec().Validate(); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"missing file type", func(s *Spec) { s.FileType = "" }},
		{"missing kind", func(s *Spec) { s.Kind = "" }},
		{"no bindings", func(s *Spec) { s.Bindings = nil }},
		{"male sentinel without female", func(s *Spec) { s.GenderFemaleValue = "" }},
		{"female sentinel without male", func(s *Spec) { s.GenderMaleValue = "" }},
		{"empty binding column", func(s *Spec) { s.Bindings[0].Column = "" }},
		{"unbound date field", func(s *Spec) { s.DateFields = []Field{FieldDateOfDeath} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := demoSpec()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}

	t.Run("no gender sentinels at all", func(t *testing.T) {
		s := demoSpec()
		s.GenderMaleValue = ""
		s.GenderFemaleValue = ""
		if err := s.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}

func TestSpecMatchesHeader(t *testing.T) {
	s := demoSpec()

	full := []string{"MBR_ID", "FNAME", "LNAME", "SEX", "DOB", "PCP_NPI", "GRP_TIN"}
	if !s.MatchesHeader(full) {
		t.Errorf("exact header should match")
	}

	shuffledWithExtras := []string{"GRP_TIN", "EXTRA", "DOB", "SEX", "LNAME", "FNAME", "PCP_NPI", "MBR_ID", "MORE"}
	if !s.MatchesHeader(shuffledWithExtras) {
		t.Errorf("reordered header with extra columns should match")
	}

	missing := []string{"MBR_ID", "FNAME", "LNAME", "SEX", "DOB", "PCP_NPI"}
	if s.MatchesHeader(missing) {
		t.Errorf("header missing GRP_TIN should not match")
	}
}

func TestSpecColumns(t *testing.T) {
	s := &Spec{
		FileType: "claims",
		Kind:     KindClaims,
		Bindings: []Binding{
			{Field: FieldClaimNumber, Column: "CLM"},
			{Field: FieldDiagnosisCode, Column: "DX1"},
			{Field: FieldDiagnosisCode, Column: "DX2"},
			{Field: FieldDiagnosisCode, Column: "DX3"},
		},
	}
	if got := s.Column(FieldDiagnosisCode); got != "DX1" {
		t.Errorf("Column = %q, want first binding DX1", got)
	}
	want := []string{"DX1", "DX2", "DX3"}
	if got := s.ColumnsFor(FieldDiagnosisCode); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnsFor = %v, want %v", got, want)
	}
	if got := s.Column(FieldNDC); got != "" {
		t.Errorf("unbound field Column = %q, want empty", got)
	}
}

func TestSpecDecodeGender(t *testing.T) {
	s := demoSpec()
	tests := []struct {
		raw, want string
	}{
		{"1", model.GenderMale},
		{"2", model.GenderFemale},
		// A configured feed with an unrecognized value gets the explicit
		// none marker rather than a blank, so the row stays complete.
		{"3", model.GenderNone},
		{"U", model.GenderNone},
		{"", ""},
	}
	for _, tt := range tests {
		if got := s.DecodeGender(tt.raw); got != tt.want {
			t.Errorf("DecodeGender(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	unconfigured := &Spec{}
	if got := unconfigured.DecodeGender("M"); got != "" {
		t.Errorf("unconfigured DecodeGender = %q, want empty", got)
	}
}

func TestSpecSep(t *testing.T) {
	if got := (&Spec{}).Sep(); got != ',' {
		t.Errorf("default Sep = %q, want comma", got)
	}
	if got := (&Spec{Separator: "|"}).Sep(); got != '|' {
		t.Errorf("Sep = %q, want pipe", got)
	}
}

const specYAML = `
- file_type: acme_demographics
  kind: demographics
  bindings:
    - {field: member_number, column: MBR_ID}
    - {field: first_name, column: FNAME}
    - {field: last_name, column: LNAME}
    - {field: date_of_birth, column: DOB}
  date_fields: [date_of_birth]
  na_values: ["N/A"]
- file_type: acme_claims
  kind: claims
  separator: "|"
  bindings:
    - {field: claim_number, column: CLM}
    - {field: member_number, column: MBR_ID}
    - {field: diagnosis_code, column: DX1}
    - {field: diagnosis_code, column: DX2}
  default_claim_type: professional
`

func TestLoad(t *testing.T) {
	specs, err := Load([]byte(specYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("Load returned %d specs, want 2", len(specs))
	}
	if specs[0].FileType != "acme_demographics" || specs[0].Kind != KindDemographics {
		t.Errorf("first spec = %s/%s", specs[0].FileType, specs[0].Kind)
	}
	if got := specs[0].Column(FieldDateOfBirth); got != "DOB" {
		t.Errorf("DOB column = %q", got)
	}
	if got := specs[0].ParseDates(); !reflect.DeepEqual(got, []string{"DOB"}) {
		t.Errorf("ParseDates = %v", got)
	}
	if specs[1].Sep() != '|' {
		t.Errorf("claims separator = %q", specs[1].Sep())
	}
	if got := specs[1].ColumnsFor(FieldDiagnosisCode); len(got) != 2 {
		t.Errorf("diagnosis columns = %v", got)
	}
	if specs[1].DefaultClaimType != "professional" {
		t.Errorf("DefaultClaimType = %q", specs[1].DefaultClaimType)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	bad := []byte(`
- file_type: broken
  kind: demographics
  bindings: []
`)
	if _, err := Load(bad); err == nil {
		t.Fatal("Load accepted spec with no bindings")
	}
}

func TestDetect(t *testing.T) {
	specs, err := Load([]byte(specYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := Detect(specs, []string{"CLM", "MBR_ID", "DX1", "DX2", "PAID"})
	if got == nil || got.FileType != "acme_claims" {
		t.Errorf("Detect matched %v, want acme_claims", got)
	}
	if Detect(specs, []string{"WHO", "KNOWS"}) != nil {
		t.Errorf("Detect matched an unknown header")
	}
}
