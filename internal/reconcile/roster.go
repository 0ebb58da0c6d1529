package reconcile

import "github.com/stellarhealth/feedload/internal/model"

// RosterDiff compares the full set of member numbers present in the current
// feed against the previously known set for the plan and returns the member
// numbers to deactivate: known members absent from the feed.
//
// An empty or nil feed set short-circuits to no candidates. A partner feed
// that failed to enumerate its roster must never be read as "everyone
// left".
func RosterDiff(feed map[string]struct{}, known []string) []string {
	if len(feed) == 0 {
		return nil
	}
	var gone []string
	for _, member := range known {
		if _, ok := feed[member]; !ok {
			gone = append(gone, member)
		}
	}
	return gone
}

// RosterDiffForTIN is RosterDiff restricted to known members attributed to
// a single TIN. Used when a feed covers only one medical group and members
// attributed elsewhere must not be touched.
func RosterDiffForTIN(feed map[string]struct{}, known []*model.Patient, tin string) []string {
	if len(feed) == 0 {
		return nil
	}
	var gone []string
	for _, p := range known {
		if p.AttributedTIN() != tin {
			continue
		}
		if _, ok := feed[p.MemberNumber]; !ok {
			gone = append(gone, p.MemberNumber)
		}
	}
	return gone
}

// NetworkChangeFor builds the network change record for a pair whose
// attribution moved. Returns nil when the attributed TIN did not move.
func NetworkChangeFor(incoming, stored *model.Patient) *model.NetworkChange {
	fromTIN := ""
	fromName := ""
	newToNetwork := stored == nil
	if stored != nil {
		fromTIN = stored.AttributedTIN()
		fromName = stored.MedicalGroupName()
	}
	nc := &model.NetworkChange{
		ProviderNPI:          incoming.NPI(),
		ProviderName:         incoming.ProviderName(),
		ProviderNewToNetwork: newToNetwork,
		ToMedicalGroupTIN:    incoming.AttributedTIN(),
		ToMedicalGroupName:   incoming.MedicalGroupName(),
		FromMedicalGroupTIN:  fromTIN,
		FromMedicalGroupName: fromName,
	}
	if !nc.Material() {
		return nil
	}
	return nc
}
