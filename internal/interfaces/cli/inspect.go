package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/app"
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/domain/signature"
	"github.com/turtacn/npl-scorer/internal/domain/sugar"
	"github.com/turtacn/npl-scorer/internal/infrastructure/chem"
)

// SignatureView lists the atom signatures of one structure.
type SignatureView struct {
	Structure  string         `json:"structure"`
	Height     int            `json:"height"`
	SugarFree  bool           `json:"sugar_free"`
	Total      int            `json:"total"`
	Signatures map[string]int `json:"signatures"`
}

func (v SignatureView) TableHeaders() []string { return []string{"Signature", "Count"} }

func (v SignatureView) TableRows() [][]string {
	t := signature.Table(v.Signatures)
	rows := make([][]string, 0, len(t)+1)
	for _, sig := range t.Signatures() {
		rows = append(rows, []string{sig, strconv.Itoa(t[sig])})
	}
	rows = append(rows, []string{"total", strconv.Itoa(v.Total)})
	return rows
}

// StripView is the outcome of sugar removal on one structure.
type StripView struct {
	Structure           string              `json:"structure"`
	SugarFreeSMILES     string              `json:"sugar_free_smiles"`
	MurckoFramework     string              `json:"murcko_framework"`
	ContainsRingSugar   bool                `json:"contains_ring_sugar"`
	ContainsLinearSugar bool                `json:"contains_linear_sugar"`
	OnlySugar           bool                `json:"only_sugar"`
	RemovedAtoms        int                 `json:"removed_atoms"`
	HeavyAtoms          int                 `json:"heavy_atoms"`
	SugarFreeHeavyAtoms int                 `json:"sugar_free_heavy_atoms"`
	RingPerceptionFail  bool                `json:"ring_perception_failed,omitempty"`
	Rings               []sugar.RingVerdict `json:"rings,omitempty"`
}

func (v StripView) TableHeaders() []string { return []string{"Field", "Value"} }

func (v StripView) TableRows() [][]string {
	rows := [][]string{
		{"sugar_free_smiles", v.SugarFreeSMILES},
		{"murcko_framework", v.MurckoFramework},
		{"contains_ring_sugar", yesNo(v.ContainsRingSugar)},
		{"contains_linear_sugar", yesNo(v.ContainsLinearSugar)},
		{"only_sugar", yesNo(v.OnlySugar)},
		{"removed_atoms", strconv.Itoa(v.RemovedAtoms)},
		{"heavy_atoms", strconv.Itoa(v.HeavyAtoms)},
		{"sugar_free_heavy_atoms", strconv.Itoa(v.SugarFreeHeavyAtoms)},
	}
	if v.RingPerceptionFail {
		rows = append(rows, []string{"ring_perception", color.YellowString("failed")})
	}
	for _, r := range v.Rings {
		verdict := color.GreenString("sugar")
		if !r.Confirmed {
			verdict = string(r.Reason)
		}
		rows = append(rows, []string{fmt.Sprintf("ring[%d] %s", r.Ring, r.Formula), verdict})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// inspectEngine builds a store-less engine from the loaded configuration.
func inspectEngine(cmd *cobra.Command, height int) (*app.Engine, *CLIContext, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg := cliCtx.Config.Scoring
	if height > 0 {
		cfg.Height = height
	}
	engine, err := app.NewEngine(cfg, nil, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, cliCtx, nil
}

// NewSignatureCmd prints the atom signature table of a SMILES string.
func NewSignatureCmd() *cobra.Command {
	var (
		height    int
		sugarFree bool
	)
	cmd := &cobra.Command{
		Use:   "signature <smiles>",
		Short: "Print the atom signatures of a structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cliCtx, err := inspectEngine(cmd, height)
			if err != nil {
				return err
			}
			g, err := engine.Toolkit.Parse(args[0], molecule.FormatSMILES)
			if err != nil {
				return err
			}
			if sugarFree {
				res, err := engine.Stripper.Strip(g)
				if err != nil {
					return err
				}
				if res.OnlySugar {
					return res.Err()
				}
				g = res.SugarFree
			}
			t := engine.Generator.Generate(g)
			h := cliCtx.Config.Scoring.Height
			if height > 0 {
				h = height
			}
			return PrintResult(cmd, SignatureView{
				Structure:  args[0],
				Height:     h,
				SugarFree:  sugarFree,
				Total:      t.Total(),
				Signatures: t,
			})
		},
	}
	cmd.Flags().IntVar(&height, "height", 0, "signature height (scoring.height when 0)")
	cmd.Flags().BoolVar(&sugarFree, "sugar-free", false, "sign the sugar-free form")
	return cmd
}

// NewStripCmd prints the sugar removal result of a SMILES string.
func NewStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip <smiles>",
		Short: "Remove sugar moieties from a structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := inspectEngine(cmd, 0)
			if err != nil {
				return err
			}
			g, err := engine.Toolkit.Parse(args[0], molecule.FormatSMILES)
			if err != nil {
				return err
			}
			res, err := engine.Stripper.Strip(g)
			if err != nil {
				return err
			}
			v := StripView{
				Structure:           args[0],
				MurckoFramework:     chem.MurckoFramework(g),
				ContainsRingSugar:   res.ContainsRingSugar,
				ContainsLinearSugar: res.ContainsLinearSugar,
				OnlySugar:           res.OnlySugar,
				RemovedAtoms:        res.RemovedAtoms,
				HeavyAtoms:          g.HeavyAtomCount(),
				RingPerceptionFail:  res.RingPerceptionFailed,
				Rings:               res.Verdicts,
			}
			if res.SugarFree != nil {
				v.SugarFreeSMILES = chem.WriteSMILES(res.SugarFree)
				v.SugarFreeHeavyAtoms = res.SugarFree.HeavyAtomCount()
			}
			return PrintResult(cmd, v)
		},
	}
}
