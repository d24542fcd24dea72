package pmcmeta

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FunderHHMI is the distinguished funder key. The HHMI entry, when present,
// must occupy the first position in the grants list.
const FunderHHMI = "hhmi"

var (
	ErrDuplicateGrant = errors.New("grant already exists")
	ErrLastHHMIGrant  = errors.New("cannot remove the only HHMI grant")
	ErrGrantNotFound  = errors.New("grant not found")
)

// GrantEntry is one funding-grant reference inside pmc.grants.
// InvestigatorName and UniqueID are only populated for HHMI entries.
type GrantEntry struct {
	ID               string `json:"id"`
	Funder           string `json:"funder" validate:"required"`
	GrantID          string `json:"grant_id" validate:"required"`
	InvestigatorName string `json:"investigator_name,omitempty"`
	UniqueID         string `json:"unique_id,omitempty"`
}

func (e GrantEntry) IsHHMI() bool {
	return strings.EqualFold(strings.TrimSpace(e.Funder), FunderHHMI)
}

// NewGrantEntryID returns a time-sortable identifier for a new entry.
func NewGrantEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NormalizeGrantID strips formatting variance before equality comparison:
// whitespace and hyphens are removed and the remainder is uppercased.
// Stored values are never silently renormalized.
func NormalizeGrantID(id string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(id) {
		switch r {
		case ' ', '\t', '-':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func sameGrantKey(a, b GrantEntry) bool {
	return strings.EqualFold(strings.TrimSpace(a.Funder), strings.TrimSpace(b.Funder)) &&
		NormalizeGrantID(a.GrantID) == NormalizeGrantID(b.GrantID)
}

// sortHHMIFirst stably moves HHMI entries to the front of the list.
func sortHHMIFirst(grants []GrantEntry) {
	sort.SliceStable(grants, func(i, j int) bool {
		return grants[i].IsHHMI() && !grants[j].IsHHMI()
	})
}

// MigrateLegacyFunders converts the legacy flat funder-key list into grant
// entries with empty grant ids. The input is not mutated. Migration is a
// no-op when a grants array already exists, so applying it on every touch is
// safe.
func MigrateLegacyFunders(pmc PMC) PMC {
	if len(pmc.Grants) > 0 || len(pmc.Funders) == 0 {
		return pmc
	}
	out := pmc
	out.Grants = make([]GrantEntry, 0, len(pmc.Funders))
	for _, funder := range pmc.Funders {
		funder = strings.TrimSpace(funder)
		if funder == "" {
			continue
		}
		out.Grants = append(out.Grants, GrantEntry{
			ID:     NewGrantEntryID(),
			Funder: strings.ToLower(funder),
		})
	}
	sortHHMIFirst(out.Grants)
	out.Funders = nil
	return out
}

// AddGrant appends a new entry, rejecting duplicates of an existing
// (funder, normalized grant id) pair, and re-applies HHMI-first ordering.
func AddGrant(pmc *PMC, entry GrantEntry) error {
	for _, existing := range pmc.Grants {
		if sameGrantKey(existing, entry) {
			return fmt.Errorf("%w: %s %s", ErrDuplicateGrant, entry.Funder, entry.GrantID)
		}
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = NewGrantEntryID()
	}
	pmc.Grants = append(pmc.Grants, entry)
	sortHHMIFirst(pmc.Grants)
	return nil
}

// RemoveGrant deletes the entry with the given id. Removing the last
// remaining HHMI entry is refused: a list that has carried an HHMI grant
// must keep one.
func RemoveGrant(pmc *PMC, entryID string) error {
	idx := -1
	for i, g := range pmc.Grants {
		if g.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrGrantNotFound, entryID)
	}
	if pmc.Grants[idx].IsHHMI() && countHHMI(pmc.Grants) == 1 {
		return ErrLastHHMIGrant
	}
	pmc.Grants = append(pmc.Grants[:idx], pmc.Grants[idx+1:]...)
	sortHHMIFirst(pmc.Grants)
	return nil
}

// UpdateGrantID replaces the grant id of the entry at the given 0-based
// position, rejecting a collision with a different entry.
func UpdateGrantID(pmc *PMC, position int, newGrantID string) error {
	if position < 0 || position >= len(pmc.Grants) {
		return fmt.Errorf("%w: position %d", ErrGrantNotFound, position)
	}
	candidate := pmc.Grants[position]
	candidate.GrantID = newGrantID
	for i, existing := range pmc.Grants {
		if i == position {
			continue
		}
		if sameGrantKey(existing, candidate) {
			return fmt.Errorf("%w: %s %s", ErrDuplicateGrant, candidate.Funder, newGrantID)
		}
	}
	pmc.Grants[position].GrantID = newGrantID
	return nil
}

// SetInitialGrant records the scientist's primary HHMI grant. An existing
// HHMI entry is updated in place, keeping its generated id; otherwise a new
// entry is inserted at position 0.
func SetInitialGrant(pmc *PMC, grantID, investigatorName, uniqueID string) {
	for i, g := range pmc.Grants {
		if g.IsHHMI() {
			pmc.Grants[i].GrantID = grantID
			pmc.Grants[i].InvestigatorName = investigatorName
			pmc.Grants[i].UniqueID = uniqueID
			return
		}
	}
	entry := GrantEntry{
		ID:               NewGrantEntryID(),
		Funder:           FunderHHMI,
		GrantID:          grantID,
		InvestigatorName: investigatorName,
		UniqueID:         uniqueID,
	}
	pmc.Grants = append([]GrantEntry{entry}, pmc.Grants...)
}

// ClearInitialGrant removes the HHMI entry carrying the given unique id.
// A missing entry is a no-op, not an error, so callers retrying after an
// uncertain earlier attempt stay idempotent.
func ClearInitialGrant(pmc *PMC, uniqueID string) bool {
	for i, g := range pmc.Grants {
		if g.IsHHMI() && g.UniqueID == uniqueID {
			pmc.Grants = append(pmc.Grants[:i], pmc.Grants[i+1:]...)
			sortHHMIFirst(pmc.Grants)
			return true
		}
	}
	return false
}

func countHHMI(grants []GrantEntry) int {
	n := 0
	for _, g := range grants {
		if g.IsHHMI() {
			n++
		}
	}
	return n
}

// HHMIGrant returns the first HHMI entry, if any.
func HHMIGrant(grants []GrantEntry) (GrantEntry, bool) {
	for _, g := range grants {
		if g.IsHHMI() {
			return g, true
		}
	}
	return GrantEntry{}, false
}
