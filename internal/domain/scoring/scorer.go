// Package scoring computes the natural-product-likeness scores of one
// molecule record: strip sugars, generate signatures, resolve fragment scores
// through the shared store and normalise the sums.
package scoring

import (
	"context"
	"time"

	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/domain/signature"
	"github.com/turtacn/npl-scorer/internal/domain/sugar"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// SugarStripper is the part of sugar.Stripper the scorer needs.
type SugarStripper interface {
	Strip(g *molecule.Graph) (sugar.Result, error)
}

// Outcome summarises what scoring one record did.
type Outcome struct {
	Skipped          molecule.SkipReason
	FragmentsCreated int
	SugarStatus      molecule.SugarStatus
}

// Deps are the collaborators of a Scorer.
type Deps struct {
	Parser    molecule.StructureParser
	Stripper  SugarStripper
	Generator signature.Generator
	Store     fragment.Store
	Iso       molecule.IsomorphismChecker
	Writer    molecule.StructureWriter
	Logger    logging.Logger
}

// Scorer scores records in place.  It holds no per-record state and is safe
// for concurrent use when its collaborators are.
type Scorer struct {
	deps Deps
	now  func() time.Time
}

// NewScorer creates a Scorer.  Writer may be nil, in which case sugar-free
// SMILES and Murcko frameworks are not produced.
func NewScorer(deps Deps) *Scorer {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &Scorer{deps: deps, now: time.Now}
}

// Score derives every scoring field of rec.  Problems with the record itself
// are reported through Outcome.Skipped.  A returned error means the fragment
// store failed and the caller should stop using it.
func (s *Scorer) Score(ctx context.Context, rec *molecule.Record) (Outcome, error) {
	g := rec.Graph
	rec.ResetScores()
	log := s.deps.Logger.With(logging.String("molecule_id", rec.ID))

	if g == nil {
		parsed, err := s.deps.Parser.Parse(rec.Structure, rec.Format)
		if err != nil {
			reason := molecule.SkipParseError
			if errors.IsCode(err, errors.ErrCodeUnsupportedFormat) {
				reason = molecule.SkipUnsupported
			}
			log.Debug("skipping molecule", logging.String("reason", string(reason)), logging.Err(err))
			return s.skip(rec, reason), nil
		}
		g = parsed
	}
	rec.Graph = g
	if g.IsEmpty() {
		log.Debug("skipping molecule", logging.String("reason", string(molecule.SkipEmptyGraph)))
		return s.skip(rec, molecule.SkipEmptyGraph), nil
	}

	rec.TotalAtomCount = g.AtomCount()
	rec.HeavyAtomCount = g.HeavyAtomCount()

	res, err := s.deps.Stripper.Strip(g)
	if err != nil {
		log.Debug("skipping molecule", logging.String("reason", string(molecule.SkipInternal)), logging.Err(err))
		return s.skip(rec, molecule.SkipInternal), nil
	}
	rec.ContainsRingSugars = res.ContainsRingSugar
	rec.ContainsLinearSugars = res.ContainsLinearSugar

	var out Outcome

	withSugar := s.deps.Generator.Generate(g)
	sum, _, created, err := s.resolve(ctx, withSugar, fragment.WithSugar)
	if err != nil {
		return out, err
	}
	out.FragmentsCreated += created
	rec.FragmentsWithSugar = withSugar
	rec.NPLScoreWithSugar = ratio(sum, rec.TotalAtomCount)

	if res.OnlySugar {
		rec.ContainsSugar = molecule.SugarOnly
	} else {
		free := res.SugarFree
		rec.SugarFreeGraph = free
		rec.SugarFreeAtomCount = free.AtomCount()
		rec.SugarFreeHeavyAtomCount = free.HeavyAtomCount()
		rec.ContainsSugar = s.sugarStatus(log, free, g)

		table := s.deps.Generator.Generate(free)
		sum, sumNoH, created, err := s.resolve(ctx, table, fragment.WithoutSugar)
		if err != nil {
			return out, err
		}
		out.FragmentsCreated += created
		rec.Fragments = table
		rec.NPLScore = ratio(sum, rec.SugarFreeAtomCount)
		rec.NPLScoreNoH = ratio(sumNoH, rec.SugarFreeHeavyAtomCount)

		if s.deps.Writer != nil {
			rec.SugarFreeSMILES = s.deps.Writer.SMILES(free)
		}
	}
	if s.deps.Writer != nil {
		rec.MurckoFramework = s.deps.Writer.Framework(g)
	}

	rec.MarkScored(s.now())
	out.SugarStatus = rec.ContainsSugar
	return out, nil
}

func (s *Scorer) skip(rec *molecule.Record, reason molecule.SkipReason) Outcome {
	rec.MarkSkipped(reason, s.now())
	return Outcome{Skipped: reason, SugarStatus: molecule.SugarUnknown}
}

func (s *Scorer) sugarStatus(log logging.Logger, free, full *molecule.Graph) molecule.SugarStatus {
	iso, err := s.deps.Iso.Isomorphic(free, full)
	if err != nil {
		log.Debug("sugar comparison failed", logging.Err(err))
		return molecule.SugarUnknown
	}
	if iso {
		return molecule.SugarNone
	}
	return molecule.SugarResidue
}

// resolve looks up or creates every signature of table in sugar context sc,
// in sorted order, and returns the weighted score sum, the same sum without
// hydrogen-rooted signatures, and the number of entries created.
func (s *Scorer) resolve(ctx context.Context, table signature.Table, sc fragment.SugarContext) (float64, float64, int, error) {
	var sum, sumNoH float64
	created := 0
	for _, sig := range table.Signatures() {
		e, isNew, err := s.deps.Store.GetOrCreate(ctx, sig, sc)
		if err != nil {
			return 0, 0, created, errors.Wrap(err, errors.CodeUnknown, "resolve fragment score")
		}
		if isNew {
			created++
		}
		w := e.Score * float64(table[sig])
		sum += w
		if !signature.IsHydrogenRooted(sig) {
			sumNoH += w
		}
	}
	return sum, sumNoH, created, nil
}

func ratio(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := sum / float64(n)
	return &v
}
