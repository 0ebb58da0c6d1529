// Package reconcile classifies what changed between an incoming canonical
// patient record and the previously known record. The predicates are
// independent: a record may satisfy more than one at a time, and collapsing
// them into a single outcome is the summary aggregator's policy, not the
// engine's.
package reconcile

import (
	"strings"
	"time"

	"github.com/stellarhealth/feedload/internal/model"
)

// Classification is the set of independent change signals for one
// (incoming, stored) pair.
type Classification struct {
	// New means no stored record exists for this member number under this
	// plan.
	New bool

	// Unchanged means a stored record exists and no tracked field differs.
	Unchanged bool

	// MedicalGroupUnchanged, MovedProviderToMedicalGroup,
	// MovedMedicalGroupToProvider, DeorphanedToMedicalGroup,
	// DeorphanedToProvider and ProviderChangedSameMedicalGroup are the
	// attribution transitions; see the predicate functions.
	MedicalGroupUnchanged           bool
	MovedProviderToMedicalGroup     bool
	MovedMedicalGroupToProvider     bool
	DeorphanedToMedicalGroup        bool
	DeorphanedToProvider            bool
	ProviderChangedSameMedicalGroup bool

	// ForcedTINConflict means an ETL supplied restrict_to_tin and the
	// incoming attribution disagrees with it. A policy violation the
	// caller must surface, never silently apply.
	ForcedTINConflict bool

	DemographicsChanged bool
	PlanChanged         bool
}

// Classify evaluates every predicate for the pair. stored may be nil when
// the member was never seen before.
func Classify(incoming, stored *model.Patient) Classification {
	if stored == nil {
		return Classification{New: true}
	}
	c := Classification{
		MedicalGroupUnchanged:           AttributedToMedicalGroupUnchanged(incoming, stored),
		MovedProviderToMedicalGroup:     MovedFromProviderToMedicalGroup(incoming, stored),
		MovedMedicalGroupToProvider:     MovedFromMedicalGroupToProvider(incoming, stored),
		DeorphanedToMedicalGroup:        DeorphanedToMedicalGroup(incoming, stored),
		DeorphanedToProvider:            DeorphanedToProvider(incoming, stored),
		ProviderChangedSameMedicalGroup: ProviderChangedSameMedicalGroup(incoming, stored),
		ForcedTINConflict:               incoming.AttributedTINDifferentThanForcedTIN(),
		DemographicsChanged:             DemographicsChanged(incoming, stored),
		PlanChanged:                     incoming.PlanID != stored.PlanID,
	}
	c.Unchanged = !c.DemographicsChanged && !c.PlanChanged &&
		!c.MovedProviderToMedicalGroup && !c.MovedMedicalGroupToProvider &&
		!c.DeorphanedToMedicalGroup && !c.DeorphanedToProvider &&
		!c.ProviderChangedSameMedicalGroup
	return c
}

// AttributedToMedicalGroupUnchanged matches patients attributed straight to
// a medical group whose attribution held steady. Skipping the provider
// check matters here: these patients have no provider, and a plain provider
// comparison would misclassify them as orphans. Applies only when neither
// side has a provider, both sides have an attributed medical group, and the
// TINs match.
func AttributedToMedicalGroupUnchanged(incoming, stored *model.Patient) bool {
	return stored.Provider == nil && incoming.Provider == nil &&
		stored.AttributedMedicalGroup != nil &&
		incoming.AttributedMedicalGroup != nil &&
		stored.AttributedMedicalGroup.TIN == incoming.AttributedMedicalGroup.TIN
}

// MovedFromProviderToMedicalGroup matches a stored record that had a
// provider and no attributed medical group, arriving now with no provider
// but a medical group. Feeds that never use attributed medical groups can
// never satisfy this.
func MovedFromProviderToMedicalGroup(incoming, stored *model.Patient) bool {
	return stored.Provider != nil && incoming.Provider == nil &&
		stored.AttributedMedicalGroup == nil &&
		incoming.AttributedMedicalGroup != nil
}

// MovedFromMedicalGroupToProvider is the mirror of
// MovedFromProviderToMedicalGroup.
func MovedFromMedicalGroupToProvider(incoming, stored *model.Patient) bool {
	return stored.AttributedMedicalGroup != nil &&
		incoming.AttributedMedicalGroup == nil &&
		stored.Provider == nil &&
		incoming.Provider != nil
}

// DeorphanedToMedicalGroup matches a stored orphan arriving with a medical
// group attribution and no provider.
func DeorphanedToMedicalGroup(incoming, stored *model.Patient) bool {
	return stored.IsOrphan() &&
		incoming.Provider == nil &&
		incoming.AttributedMedicalGroup != nil
}

// DeorphanedToProvider matches a stored orphan arriving with a provider
// attribution and no medical group.
func DeorphanedToProvider(incoming, stored *model.Patient) bool {
	return stored.IsOrphan() &&
		incoming.AttributedMedicalGroup == nil &&
		incoming.Provider != nil
}

// ProviderChangedSameMedicalGroup matches a pair resolving to the same
// attributed medical group TIN but a different NPI.
func ProviderChangedSameMedicalGroup(incoming, stored *model.Patient) bool {
	storedTIN := ""
	if stored.AttributedMedicalGroup != nil {
		storedTIN = stored.AttributedMedicalGroup.TIN
	}
	incomingTIN := ""
	if incoming.AttributedMedicalGroup != nil {
		incomingTIN = incoming.AttributedMedicalGroup.TIN
	}
	return storedTIN == incomingTIN && stored.NPI() != incoming.NPI()
}

// DemographicsChanged reports whether first name, last name, gender or date
// of birth differ between the two records.
func DemographicsChanged(incoming, stored *model.Patient) bool {
	return incoming.FirstName != stored.FirstName ||
		incoming.LastName != stored.LastName ||
		incoming.Gender != stored.Gender ||
		!sameDate(incoming.DateOfBirth, stored.DateOfBirth)
}

// SameIdentity reports whether two records look like the same person:
// matching name, gender and date of birth. Names compare case-insensitively
// since feeds disagree on casing. Used to detect member-number changes,
// which must be explicitly reported because the identity key changed.
func SameIdentity(a, b *model.Patient) bool {
	return strings.EqualFold(a.FirstName, b.FirstName) &&
		strings.EqualFold(a.LastName, b.LastName) &&
		a.Gender == b.Gender &&
		sameDate(a.DateOfBirth, b.DateOfBirth)
}

// MemberNumberChanged reports whether candidate looks like the same person
// as incoming but under a different member number.
func MemberNumberChanged(incoming, candidate *model.Patient) bool {
	return SameIdentity(incoming, candidate) &&
		incoming.MemberNumber != candidate.MemberNumber
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
