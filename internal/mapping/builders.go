package mapping

import (
	"fmt"
	"time"

	"github.com/stellarhealth/feedload/internal/model"
	"github.com/stellarhealth/feedload/internal/tabular"
)

// value extracts the field's cell with the uniform three-tier fallback.
func (s *Spec) value(row tabular.Row, f Field, def string) string {
	return row.Value(s.Column(f), def, s.NAValues)
}

// claimType resolves the claim type with the descriptor default, falling
// back to the unknown marker so typeless feeds still load.
func (s *Spec) claimType(row tabular.Row) string {
	if v := s.value(row, FieldClaimType, s.DefaultClaimType); v != "" {
		return v
	}
	return model.ClaimTypeUnknown
}

func (s *Spec) date(row tabular.Row, f Field) *time.Time {
	col := s.Column(f)
	if col == "" {
		return nil
	}
	return row.Date(col)
}

// required extracts a field that defines entity identity. Missing identity
// fields fail the row visibly instead of producing a half-built struct.
func (s *Spec) required(row tabular.Row, f Field) (string, error) {
	v := s.value(row, f, "")
	if v == "" {
		return "", fmt.Errorf("%s: missing required %s", s.FileType, f)
	}
	return v, nil
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// AddressFromRow assembles the address fields, returning nil unless the
// result is set (state and zip present).
func AddressFromRow(s *Spec, row tabular.Row) *model.Address {
	addr := &model.Address{
		Address1:             s.value(row, FieldAddress1, ""),
		Address2:             s.value(row, FieldAddress2, ""),
		City:                 s.value(row, FieldCity, ""),
		State:                s.value(row, FieldState, ""),
		Zip:                  s.value(row, FieldZip, ""),
		PhoneNumber:          s.value(row, FieldPhone, ""),
		SecondaryPhoneNumber: s.value(row, FieldSecondaryPhone, ""),
	}
	if !addr.IsSet() {
		return nil
	}
	return addr
}

// MedicalGroupFromRow assembles the medical group for a row, or nil when
// the TIN is absent. A group with a TIN but no usable name gets the
// placeholder "- (<tin>)" so downstream display never shows a bare blank.
func MedicalGroupFromRow(s *Spec, row tabular.Row) *model.MedicalGroup {
	tin := s.value(row, FieldTIN, "")
	if tin == "" {
		return nil
	}
	mg := model.NewMedicalGroup(tin, s.value(row, FieldMedicalGroupName, ""))
	if mg.NameMissing() {
		mg.Name = fmt.Sprintf("- (%s)", mg.TIN)
	}
	return mg
}

// ProviderFromRow assembles the attributed provider, or nil when the NPI is
// absent.
func ProviderFromRow(s *Spec, row tabular.Row) *model.Provider {
	npi := s.value(row, FieldNPI, "")
	if npi == "" {
		return nil
	}
	p := &model.Provider{
		FirstName:    s.value(row, FieldProviderFirstName, ""),
		LastName:     s.value(row, FieldProviderLastName, ""),
		NPI:          npi,
		MedicalGroup: MedicalGroupFromRow(s, row),
	}
	if uid := s.value(row, FieldOfficeUID, ""); uid != "" {
		p.SupportedOfficeUIDs = append(p.SupportedOfficeUIDs, uid)
	}
	return p
}

// PatientFromRow assembles one canonical patient from a demographics row.
// When the row carries a medical-group TIN but no provider NPI the group
// becomes the direct attribution point instead of hanging off a provider.
func PatientFromRow(s *Spec, row tabular.Row, planID int64) (*model.Patient, error) {
	member, err := s.required(row, FieldMemberNumber)
	if err != nil {
		return nil, err
	}

	p := &model.Patient{
		MemberNumber: member,
		PlanID:       planID,

		FirstName: s.value(row, FieldFirstName, ""),
		LastName:  s.value(row, FieldLastName, ""),
		Gender:    s.DecodeGender(s.value(row, FieldGender, "")),

		DateOfBirth: s.date(row, FieldDateOfBirth),
		DateOfDeath: s.date(row, FieldDateOfDeath),

		Address: AddressFromRow(s, row),

		LineOfBusiness: s.value(row, FieldLineOfBusiness, ""),

		MedicareStatusCode:            s.value(row, FieldMedicareStatus, ""),
		DualStatusCode:                s.value(row, FieldDualStatus, ""),
		OriginalEntitlementStatusCode: s.value(row, FieldOriginalEntitlement, ""),
	}

	if provider := ProviderFromRow(s, row); provider != nil {
		p.Provider = provider
	} else {
		p.AttributedMedicalGroup = MedicalGroupFromRow(s, row)
	}
	return p, nil
}

// ClaimFromRow assembles one procedure claim from a medical-claims row.
// Diagnosis and procedure codes come from every bound code column;
// hospital-only fields are only materialized when the source supplied one.
func ClaimFromRow(s *Spec, row tabular.Row) (*model.Claim, error) {
	claimNumber, err := s.required(row, FieldClaimNumber)
	if err != nil {
		return nil, err
	}
	member, err := s.required(row, FieldMemberNumber)
	if err != nil {
		return nil, err
	}

	c := &model.Claim{
		ClaimNumber:  claimNumber,
		ClaimType:    s.claimType(row),
		MemberNumber: member,

		FromDate: s.date(row, FieldFromDate),
		ThruDate: s.date(row, FieldThruDate),

		ProviderNPI:     strPtr(s.value(row, FieldNPI, "")),
		MedicalGroupTIN: strPtr(model.NormalizeTIN(s.value(row, FieldTIN, ""))),

		Setting: strPtr(s.value(row, FieldSetting, "")),

		AdmissionDate: s.date(row, FieldAdmissionDate),
		DischargeDate: s.date(row, FieldDischargeDate),

		RevenueCode: strPtr(s.value(row, FieldRevenueCode, "")),
		DRGCode:     strPtr(s.value(row, FieldDRGCode, "")),
		DRGType:     strPtr(s.value(row, FieldDRGType, "")),
		HCGCode:     strPtr(s.value(row, FieldHCGCode, "")),
		StatusCode:  strPtr(s.value(row, FieldStatusCode, "")),
		PlanName:    strPtr(s.value(row, FieldPlanName, "")),
	}

	if c.AmountGross, err = model.ParseCents(s.value(row, FieldAmountGross, "0")); err != nil {
		return nil, fmt.Errorf("%s claim %s: amount_gross: %w", s.FileType, claimNumber, err)
	}
	if c.AmountPaid, err = model.ParseCents(s.value(row, FieldAmountPaid, "0")); err != nil {
		return nil, fmt.Errorf("%s claim %s: amount_paid: %w", s.FileType, claimNumber, err)
	}

	codeType := s.value(row, FieldDiagnosisCodeType, s.DiagnosisCodeType)
	for _, col := range s.ColumnsFor(FieldDiagnosisCode) {
		c.MaybeAddDiagnosis(row.Value(col, "", s.NAValues), codeType)
	}
	for _, col := range s.ColumnsFor(FieldProcedureCode) {
		c.MaybeAddProcedure(row.Value(col, "", s.NAValues))
	}
	return c, nil
}

// RxClaimFromRow assembles one pharmacy claim, with the drug and the drug
// fill nested under it. The filling pharmacy is the claim's performing
// party; the prescribing provider travels in its own fields.
func RxClaimFromRow(s *Spec, row tabular.Row) (*model.Claim, error) {
	claimNumber, err := s.required(row, FieldClaimNumber)
	if err != nil {
		return nil, err
	}
	member, err := s.required(row, FieldMemberNumber)
	if err != nil {
		return nil, err
	}

	c := &model.Claim{
		ClaimNumber:  claimNumber,
		ClaimType:    s.claimType(row),
		MemberNumber: member,

		FromDate: s.date(row, FieldFromDate),
		ThruDate: s.date(row, FieldThruDate),

		PharmacyNPI:  strPtr(s.value(row, FieldPharmacyNPI, "")),
		PharmacyName: strPtr(s.value(row, FieldPharmacyName, "")),

		PrescribingNPI: strPtr(s.value(row, FieldPrescribingNPI, "")),
		PrescribingTIN: strPtr(model.NormalizeTIN(s.value(row, FieldPrescribingTIN, ""))),
	}

	if c.AmountGross, err = model.ParseCents(s.value(row, FieldAmountGross, "0")); err != nil {
		return nil, fmt.Errorf("%s claim %s: amount_gross: %w", s.FileType, claimNumber, err)
	}
	if c.AmountPaid, err = model.ParseCents(s.value(row, FieldAmountPaid, "0")); err != nil {
		return nil, fmt.Errorf("%s claim %s: amount_paid: %w", s.FileType, claimNumber, err)
	}

	ndc := s.value(row, FieldNDC, "")
	if ndc != "" {
		fill := model.DrugFill{
			ClaimNumber:  claimNumber,
			MemberNumber: member,
			NDC:          ndc,

			ScriptWrittenDate: s.date(row, FieldScriptWrittenDate),
			FillDate:          s.date(row, FieldFillDate),

			Drug: model.NewDrug(
				ndc,
				s.value(row, FieldDrugName, ""),
				s.value(row, FieldGPI, ""),
				s.value(row, FieldGCN, ""),
				s.value(row, FieldBrandFlag, ""),
			),
		}
		// Partner extracts express these counts as decimals ("3.0");
		// integral rounding keeps them as the whole numbers they are.
		fill.RefillNumber, _ = model.ParseIntegral(s.value(row, FieldRefillNumber, "0"))
		fill.DaysSupply, _ = model.ParseIntegral(s.value(row, FieldDaysSupply, "0"))
		fill.QuantityDispensed, _ = model.ParseIntegral(s.value(row, FieldQuantityDispensed, "0"))
		if raw := s.value(row, FieldRefillsAuthorized, ""); raw != "" {
			if n, err := model.ParseIntegral(raw); err == nil {
				fill.RefillsAuthorized = &n
			}
		}
		c.DrugFills = append(c.DrugFills, fill)
	}
	return c, nil
}

// ADTEventFromRow assembles one admission/discharge/transfer event.
// event_days is parsed defensively: partners put "N/A" and worse in that
// column, and an unparsable count is zero, not a dropped row.
func ADTEventFromRow(s *Spec, row tabular.Row, planID int64) (*model.ADTEvent, error) {
	first, err := s.required(row, FieldFirstName)
	if err != nil {
		return nil, err
	}
	last, err := s.required(row, FieldLastName)
	if err != nil {
		return nil, err
	}

	e := &model.ADTEvent{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: s.date(row, FieldDateOfBirth),

		MemberNumber: s.value(row, FieldMemberNumber, ""),
		PlanID:       planID,

		FacilityName:    s.value(row, FieldFacilityName, ""),
		FacilityType:    s.value(row, FieldFacilityType, ""),
		MedicalGroupTIN: model.NormalizeTIN(s.value(row, FieldTIN, "")),

		EventType:     s.value(row, FieldEventType, ""),
		EventDate:     s.date(row, FieldEventDate),
		EventTime:     s.date(row, FieldEventTime),
		DischargeDate: s.date(row, FieldDischargeDate),

		Note: s.value(row, FieldNote, ""),
		Hash: s.value(row, FieldEventHash, ""),
	}

	e.EventDays, _ = model.ParseIntegral(s.value(row, FieldEventDays, "0"))

	for _, col := range s.ColumnsFor(FieldDiagnosisCode) {
		if code := row.Value(col, "", s.NAValues); code != "" {
			e.DiagnosisCodes = append(e.DiagnosisCodes, code)
		}
	}
	return e, nil
}

// AppointmentFromRow assembles one external appointment. Times arrive in
// the compact 24-hour HHMM form and every row gets the Spec's fixed
// timezone.
func AppointmentFromRow(s *Spec, row tabular.Row, planID int64) (*model.ExternalAppointment, error) {
	first, err := s.required(row, FieldFirstName)
	if err != nil {
		return nil, err
	}
	last, err := s.required(row, FieldLastName)
	if err != nil {
		return nil, err
	}

	return model.NewExternalAppointment(model.ExternalAppointment{
		FirstName:   first,
		LastName:    last,
		Gender:      s.DecodeGender(s.value(row, FieldGender, "")),
		DateOfBirth: s.date(row, FieldDateOfBirth),

		AppointmentDate:     s.date(row, FieldAppointmentDate),
		AppointmentTime:     parseCompactTime(s.value(row, FieldAppointmentTime, "")),
		AppointmentTimezone: s.AppointmentTimezone,
		AppointmentType:     s.value(row, FieldAppointmentType, ""),
		AppointmentStatus:   s.value(row, FieldAppointmentStatus, ""),

		ScheduledProviderNPI: s.value(row, FieldNPI, ""),

		MemberNumber:        s.value(row, FieldMemberNumber, ""),
		MedicalMemberNumber: s.value(row, FieldMedicalMemberNumber, ""),

		ExternalAppointmentID: s.value(row, FieldExternalAppointmentID, ""),
		AppointmentLocationID: s.value(row, FieldAppointmentLocationID, ""),

		ExternalLastModifiedDate: s.value(row, FieldExternalLastModified, ""),
		ExternalCreatedDate:      s.date(row, FieldExternalCreated),

		PlanID: planID,
	}), nil
}

// parseCompactTime turns "HHMM" into "HH:MM". Anything that does not parse
// as a 24-hour compact time comes back empty.
func parseCompactTime(raw string) string {
	t, err := time.Parse("1504", raw)
	if err != nil {
		return ""
	}
	return t.Format("15:04")
}
