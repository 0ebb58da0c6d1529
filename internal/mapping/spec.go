// Package mapping normalizes arbitrarily-shaped partner tables into the
// canonical structs. Each feed file type is described by a Spec: an ordered
// list of logical-field to source-column bindings plus the handful of
// per-feed knobs (NA sentinels, gender sentinels, separator, fixed widths).
// A single set of generic row builders consumes the Spec, so adding a
// partner layout means writing configuration, not code.
package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/tabular"
)

// Kind selects which builders apply to a file type.
type Kind string

const (
	KindDemographics Kind = "demographics"
	KindClaims       Kind = "claims"
	KindRxClaims     Kind = "rx_claims"
	KindADT          Kind = "adt"
	KindAppointments Kind = "appointments"
	KindRoster       Kind = "roster"
)

// Field names a logical field a builder knows how to place on a canonical
// struct. Diagnosis and procedure code fields may be bound more than once
// when the source spreads codes across several columns.
type Field string

const (
	FieldMemberNumber Field = "member_number"

	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldGender      Field = "gender"
	FieldDateOfBirth Field = "date_of_birth"
	FieldDateOfDeath Field = "date_of_death"

	FieldAddress1       Field = "address1"
	FieldAddress2       Field = "address2"
	FieldCity           Field = "city"
	FieldState          Field = "state"
	FieldZip            Field = "zip"
	FieldPhone          Field = "phone_number"
	FieldSecondaryPhone Field = "secondary_phone_number"

	FieldNPI               Field = "npi"
	FieldProviderFirstName Field = "provider_first_name"
	FieldProviderLastName  Field = "provider_last_name"
	FieldTIN               Field = "tin"
	FieldMedicalGroupName  Field = "medical_group_name"
	FieldOfficeUID         Field = "office_uid"

	FieldLineOfBusiness      Field = "line_of_business"
	FieldMedicareStatus      Field = "medicare_status_code"
	FieldDualStatus          Field = "dual_status_code"
	FieldOriginalEntitlement Field = "original_entitlement_status_code"

	FieldClaimNumber       Field = "claim_number"
	FieldClaimType         Field = "claim_type"
	FieldFromDate          Field = "from_date"
	FieldThruDate          Field = "thru_date"
	FieldDiagnosisCode     Field = "diagnosis_code"
	FieldDiagnosisCodeType Field = "diagnosis_code_type"
	FieldProcedureCode     Field = "procedure_code"
	FieldAmountGross       Field = "amount_gross"
	FieldAmountPaid        Field = "amount_paid"
	FieldSetting           Field = "setting"

	FieldAdmissionDate Field = "admission_date"
	FieldDischargeDate Field = "discharge_date"
	FieldRevenueCode   Field = "revenue_code"
	FieldDRGCode       Field = "drg_code"
	FieldDRGType       Field = "drg_type"
	FieldHCGCode       Field = "hcg_code"
	FieldStatusCode    Field = "status_code"
	FieldPlanName      Field = "plan_name"

	FieldPharmacyNPI       Field = "pharmacy_npi"
	FieldPharmacyName      Field = "pharmacy_name"
	FieldPrescribingNPI    Field = "prescribing_npi"
	FieldPrescribingTIN    Field = "prescribing_tin"
	FieldNDC               Field = "ndc"
	FieldDrugName          Field = "drug_name"
	FieldGPI               Field = "gpi"
	FieldGCN               Field = "gcn"
	FieldBrandFlag         Field = "brand_flag"
	FieldRefillNumber      Field = "refill_number"
	FieldRefillsAuthorized Field = "refills_authorized"
	FieldDaysSupply        Field = "days_supply"
	FieldQuantityDispensed Field = "quantity_dispensed"
	FieldScriptWrittenDate Field = "script_written_date"
	FieldFillDate          Field = "fill_date"

	FieldFacilityName Field = "facility_name"
	FieldFacilityType Field = "facility_type"
	FieldEventType    Field = "event_type"
	FieldEventDate    Field = "event_date"
	FieldEventTime    Field = "event_time"
	FieldEventDays    Field = "event_days"
	FieldEventHash    Field = "event_hash"
	FieldNote         Field = "note"

	FieldAppointmentDate       Field = "appointment_date"
	FieldAppointmentTime       Field = "appointment_time"
	FieldAppointmentType       Field = "appointment_type"
	FieldAppointmentStatus     Field = "appointment_status"
	FieldMedicalMemberNumber   Field = "medical_member_number"
	FieldExternalAppointmentID Field = "external_appointment_id"
	FieldAppointmentLocationID Field = "appointment_location_id"
	FieldExternalLastModified  Field = "external_last_modified_date"
	FieldExternalCreated       Field = "external_created_date"
)

// Binding ties a logical field to a source column. Binding order is the
// order in which the columns are declared for the file type.
type Binding struct {
	Field  Field  `yaml:"field"`
	Column string `yaml:"column"`
}

// Spec is the declarative description of one source-file type.
type Spec struct {
	// FileType tags the layout, e.g. "acme_demographics_v2". Carried into
	// detail messages so operators can tell which layout a file matched.
	FileType string `yaml:"file_type"`
	Kind     Kind   `yaml:"kind"`

	Bindings []Binding `yaml:"bindings"`

	// DateFields lists the logical fields whose source columns are parsed
	// as dates during the read.
	DateFields []Field `yaml:"date_fields"`

	// NAValues are the partner's not-applicable sentinels. A cell holding
	// one of these is treated the same as a missing cell.
	NAValues []string `yaml:"na_values"`

	// GenderMaleValue/GenderFemaleValue decode the partner's gender column
	// into the single-letter codes. Configured together or not at all.
	GenderMaleValue   string `yaml:"gender_male_value"`
	GenderFemaleValue string `yaml:"gender_female_value"`

	// Separator for delimited files; empty means comma. FixedWidths, when
	// set, switches the file type to headerless fixed-width reading.
	Separator   string                `yaml:"separator"`
	FixedWidths []tabular.ColumnWidth `yaml:"fixed_widths"`

	// FilterColumn/FilterValues keep only rows whose filter-column value is
	// in the permitted set. Skipped when the source lacks the column.
	FilterColumn string   `yaml:"filter_column"`
	FilterValues []string `yaml:"filter_values"`

	// DefaultClaimType is used when the claim-type field is unbound or NA.
	DefaultClaimType string `yaml:"default_claim_type"`

	// DiagnosisCodeType labels diagnosis codes when the source has no
	// code-type column.
	DiagnosisCodeType string `yaml:"diagnosis_code_type"`

	// AppointmentTimezone stamps every appointment row with one fixed
	// timezone; partner scheduling extracts carry local times only.
	AppointmentTimezone string `yaml:"appointment_timezone"`

	// FastDates defers date parsing to a single bulk pass and drops
	// out-of-range dates instead of clamping them.
	FastDates bool `yaml:"fast_dates"`
}

// Validate checks the invariants a Spec must hold before it is used.
func (s *Spec) Validate() error {
	if s.FileType == "" {
		return fmt.Errorf("mapping: file_type is required")
	}
	if s.Kind == "" {
		return fmt.Errorf("mapping %s: kind is required", s.FileType)
	}
	if len(s.Bindings) == 0 {
		return fmt.Errorf("mapping %s: no bindings", s.FileType)
	}
	if (s.GenderMaleValue == "") != (s.GenderFemaleValue == "") {
		return fmt.Errorf("mapping %s: gender sentinels must be configured together", s.FileType)
	}
	for _, b := range s.Bindings {
		if b.Field == "" || b.Column == "" {
			return fmt.Errorf("mapping %s: binding with empty field or column", s.FileType)
		}
	}
	for _, f := range s.DateFields {
		if s.Column(f) == "" {
			return fmt.Errorf("mapping %s: date field %s is not bound", s.FileType, f)
		}
	}
	return nil
}

// Column returns the source column bound to the field, or empty when the
// field is not mapped for this file type. When a field is bound more than
// once the first binding wins; use ColumnsFor for the full list.
func (s *Spec) Column(f Field) string {
	for _, b := range s.Bindings {
		if b.Field == f {
			return b.Column
		}
	}
	return ""
}

// ColumnsFor returns every source column bound to the field, in binding
// order.
func (s *Spec) ColumnsFor(f Field) []string {
	var cols []string
	for _, b := range s.Bindings {
		if b.Field == f {
			cols = append(cols, b.Column)
		}
	}
	return cols
}

// Columns returns the full ordered list of source columns this file type
// reads.
func (s *Spec) Columns() []string {
	cols := make([]string, 0, len(s.Bindings))
	for _, b := range s.Bindings {
		cols = append(cols, b.Column)
	}
	return cols
}

// ParseDates returns the source columns to parse as dates.
func (s *Spec) ParseDates() []string {
	var cols []string
	for _, f := range s.DateFields {
		cols = append(cols, s.ColumnsFor(f)...)
	}
	return cols
}

// MatchesHeader reports whether every bound column appears in the header.
// Presence only: extra columns and reordering are tolerated, since partners
// shuffle layouts without notice.
func (s *Spec) MatchesHeader(header []string) bool {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	for _, b := range s.Bindings {
		if _, ok := present[b.Column]; !ok {
			return false
		}
	}
	return true
}

// Sep returns the delimiter rune, defaulting to comma.
func (s *Spec) Sep() rune {
	if s.Separator == "" {
		return ','
	}
	return []rune(s.Separator)[0]
}

// ReadOptions translates the Spec into the reader's option set.
func (s *Spec) ReadOptions() tabular.ReadOptions {
	opts := tabular.ReadOptions{
		Columns:      s.Columns(),
		ParseDates:   s.ParseDates(),
		Separator:    s.Sep(),
		FilterColumn: s.FilterColumn,
		FastDates:    s.FastDates,
	}
	if len(s.FilterValues) > 0 {
		opts.FilterValues = make(map[string]struct{}, len(s.FilterValues))
		for _, v := range s.FilterValues {
			opts.FilterValues[v] = struct{}{}
		}
	}
	return opts
}

// DecodeGender maps the partner's raw gender value onto the single-letter
// codes. Unconfigured sentinels or an absent value yield no gender; a
// configured feed supplying a value that matches neither sentinel yields
// the explicit none marker, so the row still counts as demographically
// complete.
func (s *Spec) DecodeGender(raw string) string {
	switch {
	case s.GenderMaleValue == "" || raw == "":
		return ""
	case raw == s.GenderMaleValue:
		return model.GenderMale
	case raw == s.GenderFemaleValue:
		return model.GenderFemale
	default:
		return model.GenderNone
	}
}

// Load parses a YAML document holding a list of Specs and validates each.
func Load(contents []byte) ([]*Spec, error) {
	var specs []*Spec
	if err := yaml.Unmarshal(contents, &specs); err != nil {
		return nil, fmt.Errorf("parsing mapping specs: %w", err)
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// Detect returns the first Spec whose bound columns all appear in the
// header, or nil when no known layout matches.
func Detect(specs []*Spec, header []string) *Spec {
	for _, s := range specs {
		if s.MatchesHeader(header) {
			return s
		}
	}
	return nil
}
