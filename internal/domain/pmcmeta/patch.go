package pmcmeta

// Patch is a partial update of the pmc sub-document. Each field belongs to
// one of three merge categories, fixed at compile time:
//
//   - scalars (title, description, doi, date_published, journal, previewed,
//     confirmed): replace when the pointer is non-nil
//   - arrays (authors, funders, grants): full replacement, never element-wise
//   - extra objects: one-level-deep merge when both sides are objects,
//     incoming keys win; any other type pairing replaces wholesale
type Patch struct {
	Title         *string
	Description   *string
	DOI           *string
	DatePublished *string
	Journal       *string
	Previewed     *bool
	Confirmed     *bool

	Authors *[]Author
	Funders *[]string
	Grants  *[]GrantEntry

	Extra map[string]any
}

// Apply merges the patch into the pmc sub-document in place.
func (p Patch) Apply(pmc *PMC) {
	if pmc == nil {
		return
	}
	if p.Title != nil {
		pmc.Title = *p.Title
	}
	if p.Description != nil {
		pmc.Description = *p.Description
	}
	if p.DOI != nil {
		pmc.DOI = *p.DOI
	}
	if p.DatePublished != nil {
		pmc.DatePublished = *p.DatePublished
	}
	if p.Journal != nil {
		pmc.Journal = *p.Journal
	}
	if p.Previewed != nil {
		pmc.Previewed = *p.Previewed
	}
	if p.Confirmed != nil {
		pmc.Confirmed = *p.Confirmed
	}
	if p.Authors != nil {
		pmc.Authors = append([]Author(nil), (*p.Authors)...)
	}
	if p.Funders != nil {
		pmc.Funders = append([]string(nil), (*p.Funders)...)
	}
	if p.Grants != nil {
		pmc.Grants = append([]GrantEntry(nil), (*p.Grants)...)
	}
	if len(p.Extra) > 0 {
		if pmc.Extra == nil {
			pmc.Extra = map[string]any{}
		}
		for k, incoming := range p.Extra {
			pmc.Extra[k] = mergeExtraValue(pmc.Extra[k], incoming)
		}
	}
}

// mergeExtraValue merges one level deep when both values are non-array
// objects; everything else is full replacement.
func mergeExtraValue(existing, incoming any) any {
	existingObj, eOK := existing.(map[string]any)
	incomingObj, iOK := incoming.(map[string]any)
	if !eOK || !iOK {
		return incoming
	}
	merged := make(map[string]any, len(existingObj)+len(incomingObj))
	for k, v := range existingObj {
		merged[k] = v
	}
	for k, v := range incomingObj {
		merged[k] = v
	}
	return merged
}
