// Package pmcmeta models the metadata document attached to a work version
// and the submission-side document attached to a submission version. The
// store treats both as opaque jsonb; this package gives them shape and owns
// the merge and business rules applied before any write.
package pmcmeta

import (
	"encoding/json"
)

// Document is the full work-version metadata payload. Sections this system
// does not own are preserved verbatim in Extra across read-modify-write
// cycles so host-platform extensions never lose data.
type Document struct {
	Files []FileRef      `json:"-"`
	PMC   PMC            `json:"-"`
	Extra map[string]any `json:"-"`
}

// FileRef is one attached file. Slot drives the manuscript-required rule.
type FileRef struct {
	ID         string `json:"id"`
	Slot       string `json:"slot" validate:"required,oneof=manuscript figure supplement"`
	Name       string `json:"name" validate:"required"`
	StorageKey string `json:"storage_key" validate:"required"`
	Size       int64  `json:"size,omitempty"`
}

const SlotManuscript = "manuscript"

// Author is one listed author, in display order.
type Author struct {
	GivenNames string `json:"given_names" validate:"required"`
	Surname    string `json:"surname" validate:"required"`
	ORCID      string `json:"orcid,omitempty"`
}

// PMC is the pmc sub-document: everything the deposit workflow reads and
// writes about the work version itself.
type PMC struct {
	Title         string         `json:"title,omitempty" validate:"required"`
	Description   string         `json:"description,omitempty"`
	Authors       []Author       `json:"authors,omitempty" validate:"required,min=1,dive"`
	DOI           string         `json:"doi,omitempty"`
	DatePublished string         `json:"date_published,omitempty"`
	Journal       string         `json:"journal,omitempty"`
	Funders       []string       `json:"funders,omitempty"`
	Grants        []GrantEntry   `json:"grants,omitempty" validate:"dive"`
	Previewed     bool           `json:"previewed,omitempty"`
	Confirmed     bool           `json:"confirmed,omitempty"`
	Extra         map[string]any `json:"-"`
}

const (
	keyFiles = "files"
	keyPMC   = "pmc"
)

// ParseDocument decodes a raw metadata blob. A nil or empty blob yields an
// empty document so first-touch writes need no special case.
func ParseDocument(raw []byte) (Document, error) {
	doc := Document{}
	if len(raw) == 0 {
		return doc, nil
	}
	top := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &top); err != nil {
		return doc, err
	}
	if rawFiles, ok := top[keyFiles]; ok {
		if err := json.Unmarshal(rawFiles, &doc.Files); err != nil {
			return doc, err
		}
		delete(top, keyFiles)
	}
	if rawPMC, ok := top[keyPMC]; ok {
		pmc, err := parsePMC(rawPMC)
		if err != nil {
			return doc, err
		}
		doc.PMC = pmc
		delete(top, keyPMC)
	}
	if len(top) > 0 {
		doc.Extra = map[string]any{}
		for k, v := range top {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return doc, err
			}
			doc.Extra[k] = val
		}
	}
	return doc, nil
}

// Marshal re-encodes the document, emitting owned sections over any stale
// copies in Extra.
func (d Document) Marshal() ([]byte, error) {
	top := map[string]any{}
	for k, v := range d.Extra {
		top[k] = v
	}
	if d.Files != nil {
		top[keyFiles] = d.Files
	}
	pmcMap, err := d.PMC.toMap()
	if err != nil {
		return nil, err
	}
	if len(pmcMap) > 0 {
		top[keyPMC] = pmcMap
	}
	return json.Marshal(top)
}

func parsePMC(raw json.RawMessage) (PMC, error) {
	var pmc PMC
	type alias PMC
	var known alias
	if err := json.Unmarshal(raw, &known); err != nil {
		return pmc, err
	}
	pmc = PMC(known)

	all := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &all); err != nil {
		return pmc, err
	}
	for _, k := range pmcKnownKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		pmc.Extra = map[string]any{}
		for k, v := range all {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return pmc, err
			}
			pmc.Extra[k] = val
		}
	}
	return pmc, nil
}

var pmcKnownKeys = []string{
	"title", "description", "authors", "doi", "date_published",
	"journal", "funders", "grants", "previewed", "confirmed",
}

func (p PMC) toMap() (map[string]any, error) {
	type alias PMC
	raw, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, owned := out[k]; owned {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Clone deep-copies the document through its wire form.
func (d Document) Clone() (Document, error) {
	raw, err := d.Marshal()
	if err != nil {
		return Document{}, err
	}
	return ParseDocument(raw)
}
