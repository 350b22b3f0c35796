package molecule

import (
	"context"
)

// StructureParser converts structure text into a hydrogen-complete Graph.
// Failures carry errors.CodeStructureParse.
type StructureParser interface {
	Parse(text string, format StructureFormat) (*Graph, error)
}

// IsomorphismChecker decides whether two graphs are isomorphic.  Failures
// (for example an exhausted search budget) carry errors.CodeIsomorphism.
type IsomorphismChecker interface {
	Isomorphic(a, b *Graph) (bool, error)
}

// RingPerceiver computes the smallest set of smallest rings of a graph.
// Failures carry errors.CodeRingPerception.
type RingPerceiver interface {
	Perceive(g *Graph) (*RingSet, error)
}

// HydrogenCompleter caps bonds cut by atom removal.
type HydrogenCompleter interface {
	// CompleteHydrogens returns a copy of g in which atom i carries lost[i]
	// extra explicit hydrogens.
	CompleteHydrogens(g *Graph, lost map[int]int) *Graph
}

// StructureWriter renders graphs as text.
type StructureWriter interface {
	// SMILES writes a hydrogen-suppressed SMILES string.
	SMILES(g *Graph) string
	// Framework returns the Bemis-Murcko framework as SMILES, or "" for an
	// acyclic structure.
	Framework(g *Graph) string
}

// Pattern is a compiled substructure query.
type Pattern interface {
	// Size is the number of atoms in the query.
	Size() int

	// FindAll enumerates non-overlapping matches in target.  Atoms for which
	// skip returns true are never matched; atoms used by one match are not
	// reused by a later one.  Each match lists target positions in query atom
	// order.  Matches are found in ascending order of the anchor atom.
	FindAll(target *Graph, skip func(atom int) bool) [][]int
}

// PatternCompiler turns a query graph into a reusable Pattern.
type PatternCompiler interface {
	Compile(query *Graph) (Pattern, error)
}

// ListOptions controls keyset pagination over the corpus.
type ListOptions struct {
	// AfterID returns records with an id strictly greater than this one.
	AfterID string
	// Limit caps the page size.
	Limit int
	// IncludeScored also returns records that already carry scores.
	IncludeScored bool
}

// Repository is the Molecule Corpus Repository.
type Repository interface {
	// List returns a page of records ordered by ascending id.
	List(ctx context.Context, opts ListOptions) ([]*Record, error)

	// FindByID returns errors.CodeMoleculeNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*Record, error)

	// SaveScores writes the derived fields of one record.
	SaveScores(ctx context.Context, rec *Record) error

	// Import inserts records that are not yet present and returns how many were
	// new.  Existing ids are left untouched.
	Import(ctx context.Context, recs []*Record) (int, error)

	// CountPending returns the number of records without scores.
	CountPending(ctx context.Context) (int64, error)
}
