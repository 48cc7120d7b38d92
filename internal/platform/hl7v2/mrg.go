package hl7v2

import (
	"fmt"
	"strings"
)

// MRG holds the fields of an ADT merge segment. MRG-1 carries the prior
// (source) patient identifier list, MRG-3 the prior account number, and one
// of the later fields the prior display name.
type MRG struct {
	PriorIdentifiers []string // MRG-1 repetitions, composite form
	PriorAccount     string   // MRG-3.1
	PriorName        string   // prior patient name, family^given
}

// ParseMRG extracts the MRG segment from a merge message. It returns an
// error when the segment is absent or carries no prior identifiers, since a
// merge without a source identity cannot be performed.
//
// Senders differ on which field carries the prior name (MRG-7 per the
// standard, but MRG-4 through MRG-6 are seen in the wild), so each candidate
// position is checked and the first value containing a component separator
// wins.
func ParseMRG(m *Message) (*MRG, error) {
	seg := m.GetSegment("MRG")
	if seg == nil {
		return nil, fmt.Errorf("hl7v2: MRG segment missing or invalid")
	}

	mrg := &MRG{
		PriorIdentifiers: seg.GetRepeats(1),
		PriorAccount:     seg.GetComponent(3, 1),
	}

	if len(mrg.PriorIdentifiers) == 0 {
		return nil, fmt.Errorf("hl7v2: MRG segment missing or invalid")
	}

	for _, idx := range []int{7, 4, 5, 6} {
		if v := seg.GetField(idx); strings.Contains(v, "^") {
			mrg.PriorName = v
			break
		}
	}

	return mrg, nil
}
