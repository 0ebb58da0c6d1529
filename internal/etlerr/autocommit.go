package etlerr

import (
	"fmt"
	"strings"
)

// autoCommitBlocking lists, per dataset type, the codes whose presence in a
// batch's details blocks auto-commit. Built once; never mutated at runtime.
var autoCommitBlocking = map[string][]Err{
	"adt": {E015ADTFileSkipped},
	"appointments": {
		W069UncertainAppointmentDemographicData,
		E068AppointmentsFileSkipped,
	},
}

// AutoCommitBlockingErrors returns the codes found in details that should
// prevent the dataset from being committed automatically.
//
// Asking about a dataset type with no declared blocking-error list is a
// programming error, not a runtime-recoverable condition: it means the
// dataset was flagged for auto-commit without anyone deciding what blocks
// it, so this panics to fail loudly.
func AutoCommitBlockingErrors(datasetType string, details []string) []string {
	blocking, ok := autoCommitBlocking[datasetType]
	if !ok {
		panic(fmt.Sprintf("no auto-commit blocking errors declared for dataset type %q", datasetType))
	}

	joined := strings.Join(details, ", ")
	var found []string
	for _, e := range blocking {
		if strings.Contains(joined, e.Code) {
			found = append(found, e.Code)
		}
	}
	return found
}
