package molecule

import (
	"time"
)

// StructureFormat names the notation a record's structure text is written in.
type StructureFormat string

const (
	FormatSMILES  StructureFormat = "smiles"
	FormatMolfile StructureFormat = "molfile"
)

// SugarStatus is the containsSugar classification of a scored record.
type SugarStatus int

const (
	// SugarUnknown is used when the with/without-sugar comparison failed.
	SugarUnknown SugarStatus = -1
	// SugarNone means the sugar-free form is isomorphic to the full molecule.
	SugarNone SugarStatus = 0
	// SugarResidue means sugar was removed and a usable residue remains.
	SugarResidue SugarStatus = 1
	// SugarOnly means nothing usable remained after sugar removal.
	SugarOnly SugarStatus = 2
)

func (s SugarStatus) String() string {
	switch s {
	case SugarNone:
		return "none"
	case SugarResidue:
		return "sugar_with_residue"
	case SugarOnly:
		return "only_sugar"
	default:
		return "unknown"
	}
}

// SkipReason explains why a record was not scored.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipParseError  SkipReason = "parse_error"
	SkipEmptyGraph  SkipReason = "empty_structure"
	SkipUnsupported SkipReason = "unsupported_format"
	SkipInternal    SkipReason = "internal_error"
)

// Record is the MoleculeRecord aggregate: one deduplicated structure of the
// corpus together with the fields the scoring engine derives for it.
//
// Score pointers are nil when the value could not be computed (zero
// denominator or only-sugar molecule).  Consumers must not read nil as zero.
type Record struct {
	ID        string          `json:"id"`
	Structure string          `json:"structure"`
	Format    StructureFormat `json:"format"`

	TotalAtomCount          int `json:"total_atom_number"`
	HeavyAtomCount          int `json:"heavy_atom_number"`
	SugarFreeAtomCount      int `json:"sugar_free_total_atom_number"`
	SugarFreeHeavyAtomCount int `json:"sugar_free_heavy_atom_number"`

	FragmentsWithSugar map[string]int `json:"fragments_with_sugar,omitempty"`
	Fragments          map[string]int `json:"fragments,omitempty"`

	NPLScoreWithSugar *float64 `json:"npl_sugar_score,omitempty"`
	NPLScore          *float64 `json:"npl_score,omitempty"`
	NPLScoreNoH       *float64 `json:"npl_noh_score,omitempty"`

	ContainsSugar        SugarStatus `json:"contains_sugar"`
	ContainsRingSugars   bool        `json:"contains_ring_sugars"`
	ContainsLinearSugars bool        `json:"contains_linear_sugars"`

	SugarFreeSMILES string `json:"sugar_free_smiles,omitempty"`
	MurckoFramework string `json:"murcko_framework,omitempty"`

	SkipReason SkipReason `json:"skip_reason,omitempty"`
	ScoredAt   *time.Time `json:"scored_at,omitempty"`

	// Graph and SugarFreeGraph are transient working state and never persisted.
	Graph          *Graph `json:"-"`
	SugarFreeGraph *Graph `json:"-"`
}

// NewRecord constructs an unscored record.
func NewRecord(id, structure string, format StructureFormat) *Record {
	return &Record{
		ID:            id,
		Structure:     structure,
		Format:        format,
		ContainsSugar: SugarUnknown,
	}
}

// ResetScores clears every derived field so that the record can be scored
// again from its structure text.
func (r *Record) ResetScores() {
	*r = Record{
		ID:            r.ID,
		Structure:     r.Structure,
		Format:        r.Format,
		ContainsSugar: SugarUnknown,
	}
}

// MarkSkipped records why scoring did not happen.
func (r *Record) MarkSkipped(reason SkipReason, at time.Time) {
	r.SkipReason = reason
	r.ScoredAt = &at
}

// MarkScored stamps the record as scored.
func (r *Record) MarkScored(at time.Time) {
	r.SkipReason = SkipNone
	r.ScoredAt = &at
}

// IsScored reports whether the record carries a scoring timestamp without a
// skip reason.
func (r *Record) IsScored() bool {
	return r.ScoredAt != nil && r.SkipReason == SkipNone
}
