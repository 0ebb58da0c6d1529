// Package etlerr is the catalog of coded, operator-facing detail messages.
// Every non-fatal anomaly a feed run hits is recorded as one of these codes
// so operators can tell "some data dropped" apart from "whole file
// abandoned". The catalog is built once at init and never mutated.
package etlerr

import (
	"fmt"
	"strings"
)

// Err is one catalog entry: a stable code, the action the pipeline took
// when it hit the condition, and an optional default scope.
type Err struct {
	// Code is the stable error code, E/W/I-prefixed by severity.
	Code string
	// Action is the resolution: the effect encountering the error resulted
	// in. Patient data dropped, data set skipped, placeholder created, etc.
	Action string
	// Scope, if set, tells the user what kind of data this affects. Used
	// sparingly; the code and action are generally enough.
	Scope string
}

// Display renders the detail entry. A scope or action passed in overrides
// the catalog entry's defaults.
func (e Err) Display(message string, opts ...Option) string {
	scope := e.Scope
	action := e.Action
	for _, o := range opts {
		o(&scope, &action)
	}

	level := "info"
	switch {
	case strings.HasPrefix(e.Code, "E"):
		level = "error"
	case strings.HasPrefix(e.Code, "W"):
		level = "warning"
	}

	code := e.Code
	if scope != "" {
		code = fmt.Sprintf("%s-%s", e.Code, scope)
	}
	return fmt.Sprintf("%s %s -- %s :: %s", level, code, message, action)
}

// Option overrides the scope or action of one Display call.
type Option func(scope, action *string)

// WithScope overrides the scope for one Display call.
func WithScope(scope string) Option {
	return func(s, _ *string) { *s = scope }
}

// WithAction overrides the action for one Display call.
func WithAction(action string) Option {
	return func(_, a *string) { *a = action }
}

// When picking the next error number, please see the end of this list.
var (
	E001UnableToParseDate = Err{Code: "E001_UNABLE_TO_PARSE_DATE", Action: "data dropped"}
	E002CSVHeaderInvalid  = Err{Code: "E002_CSV_HEADER_INVALID", Action: "data dropped"}
	E003TooManyErrors     = Err{Code: "E003_TOO_MANY_ERRORS", Action: "skipped rest of file"}

	E005PatientUpdateEndpointFailed = Err{Code: "E005_PATIENT_UPDATE_ENDPOINT_FAILED", Action: "patient data dropped"}
	E006ADTEndpointFailed           = Err{Code: "E006_ADT_ENDPOINT_FAILED", Action: "adt data dropped"}
	E036SummaryEndpointFailed       = Err{Code: "E036_SUMMARY_ENDPOINT_FAILED", Action: "pcor measure summary data dropped"}
	E067AppointmentEndpointFailed   = Err{Code: "E067_APPOINTMENT_ENDPOINT_FAILED", Action: "external appointment dropped"}

	E007ClaimDataDropped = Err{Code: "E007_CLAIM_DATA_DROPPED", Action: "claim data dropped"}

	E030DiagnosisDataDropped = Err{Code: "E030_DIAGNOSIS_DATA_DROPPED", Action: "diagnosis data dropped"}
	E031ProcedureDataDropped = Err{Code: "E031_PROCEDURE_DATA_DROPPED", Action: "procedure data dropped"}
	W037UnknownClaimCodeType = Err{Code: "W037_UNKNOWN_CLAIM_CODE_TYPE", Action: "code dropped"}

	E025RxClaimDataDropped = Err{Code: "E025_RX_CLAIM_DATA_DROPPED", Action: "claim data dropped"}

	E004PatientDataDropped     = Err{Code: "E004_PATIENT_DATA_DROPPED", Action: "patient data dropped"}
	W011PatientAddressMissing  = Err{Code: "W011_PATIENT_ADDRESS_MISSING", Action: "patient added with no address"}
	E012PatientSecondRowSkipped = Err{Code: "E012_PATIENT_SECOND_ROW_SKIPPED", Action: "second row skipped"}

	I039PatientImportedAsPlaceholder = Err{Code: "I039_PATIENT_IMPORTED_AS_PLACEHOLDER", Action: "imported as placeholder"}

	W033RosterOrphaningSkipped = Err{Code: "W033_ROSTER_ORPHANING_SKIPPED", Action: "orphaning skipped"}
	E034OrphaningFailed        = Err{Code: "E034_ORPHANING_FAILED", Action: "orphaning failed"}
	I038RosterUsed             = Err{Code: "I038_ROSTER_USED"}

	W014ADTSecondRowSkipped = Err{Code: "W014_ADT_SECOND_ROW_SKIPPED", Action: "second row skipped"}
	W018DuplicateEvents     = Err{Code: "W018_DUPLICATE_EVENTS", Action: "second row skipped"}

	E015ADTFileSkipped          = Err{Code: "E015_ADT_FILE_SKIPPED", Action: "file skipped"}
	E068AppointmentsFileSkipped = Err{Code: "E068_APPOINTMENTS_FILE_SKIPPED", Action: "file skipped"}

	I029PatientPlanAutoSet = Err{Code: "I029_PATIENT_PLAN_AUTO_SET", Action: "patient plan_id auto set"}

	E032DataSetSkipped       = Err{Code: "E032_DATA_SET_SKIPPED", Action: "data set skipped"}
	E039ADTEventDataDropped  = Err{Code: "E039_ADT_EVENT_DATA_DROPPED", Action: "event data dropped"}

	W040PotentialDuplicateMember = Err{Code: "W040_POTENTIAL_DUPLICATE_MEMBER", Action: "create new patient"}
	W041MemberNumberChange       = Err{Code: "W041_MEMBER_NUMBER_CHANGE", Action: "update member number"}

	W064ClaimDiagnosisMissing  = Err{Code: "W064_CLAIM_DIAGNOSIS_MISSING", Action: "claim imported with no diagnosis codes"}
	W065ADTFacilityNameMissing = Err{Code: "W065_ADT_FACILITY_NAME_MISSING", Action: "event imported without facility name"}

	// Attribution warnings feel important enough to keep in their own
	// scope instead of clumping them all into one.
	W042AttributionFromProviderToMG = Err{Code: "W042_ATTRIBUTION_FROM_PROVIDER_TO_MG", Action: "attribution updated"}
	W043AttributionFromMGToProvider = Err{Code: "W043_ATTRIBUTION_FROM_MG_TO_PROVIDER", Action: "attribution updated"}
	W044AttributionDeOrphanToMG     = Err{Code: "W044_ATTRIBUTION_DE_ORPHAN_TO_MG", Action: "attribution updated"}
	W045AttributionDeOrphan         = Err{Code: "W045_ATTRIBUTION_DE_ORPHAN", Action: "attribution updated"}
	W046AttributedProviderChanged   = Err{Code: "W046_ATTRIBUTED_PROVIDER_CHANGED", Action: "attribution updated"}

	W047PatientPlanChanged         = Err{Code: "W047_PATIENT_PLAN_CHANGED", Action: "plan updated"}
	W048PatientDemographicsChanged = Err{Code: "W048_PATIENT_DEMOGRAPHICS_CHANGED", Action: "demographics updated"}

	W049MissingSomeClaimsData = Err{Code: "W049_MISSING_SOME_CLAIMS_DATA", Action: "ignoring"}

	W051MemberNumberChangeIgnored = Err{Code: "W051_MEMBER_NUMBER_CHANGE_IGNORED", Action: "member number change ignored"}
	W052ClaimsAddedCrossPlan      = Err{Code: "W052_CLAIMS_ADDED_CROSS_PLAN", Action: "data added across plan"}

	W053UpdateRosterSetToFalse = Err{Code: "W053_UPDATE_ROSTER_SET_TO_FALSE", Action: "skipping roster update"}

	E061UnknownFile = Err{Code: "E061_UNKNOWN_FILE"}

	W062DuplicateAddressDetected = Err{Code: "W062_DUPLICATE_ADDRESS_DETECTED"}

	E066ExternalAppointmentDropped = Err{Code: "E066_EXTERNAL_APPOINTMENT_DROPPED"}

	W069UncertainAppointmentDemographicData = Err{Code: "W069_UNCERTAIN_APPOINTMENT_DEMOGRAPHIC_DATA"}

	// Next number: 070
)

// maxRowErrors is the per-file threshold past which the rest of the file is
// abandoned.
const maxRowErrors = 1000

// TooManyErrors renders the file-abandoned detail for a file that crossed
// the row error threshold.
func TooManyErrors(fileName string) string {
	return E003TooManyErrors.Display(
		fmt.Sprintf("More than %d errors", maxRowErrors), WithScope(fileName))
}

// MaxRowErrors exposes the threshold to the pipeline.
func MaxRowErrors() int { return maxRowErrors }

// InvalidHeader renders the detail for a file whose header matched no known
// mapping.
func InvalidHeader(fileName, header string) string {
	return E002CSVHeaderInvalid.Display(
		fmt.Sprintf("header invalid %q", header), WithScope(fileName))
}

// UnableToParseDate renders the row-dropped detail for an unparsable date.
func UnableToParseDate(scope, raw string) string {
	return E001UnableToParseDate.Display(
		fmt.Sprintf("parsing date failed on %q", raw), WithScope(scope))
}

// DataSetSkipped renders the detail for an abandoned data set.
func DataSetSkipped(message string) string {
	return E032DataSetSkipped.Display(message)
}
