package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/npl-scorer/internal/app"
	"github.com/turtacn/npl-scorer/internal/config"
)

// ImportResult reports one corpus import.
type ImportResult struct {
	File     string `json:"file"`
	Read     int    `json:"read"`
	Inserted int    `json:"inserted"`
	Existing int    `json:"existing"`
}

func (r ImportResult) TableHeaders() []string { return []string{"File", "Read", "Inserted", "Existing"} }

func (r ImportResult) TableRows() [][]string {
	return [][]string{{r.File, strconv.Itoa(r.Read), strconv.Itoa(r.Inserted), strconv.Itoa(r.Existing)}}
}

func (r ImportResult) String() string {
	return fmt.Sprintf("%s: read %d, inserted %d, already present %d", r.File, r.Read, r.Inserted, r.Existing)
}

// NewImportCmd loads a structure file into the corpus.
func NewImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a structure file into the corpus",
		Long:  "Insert every structure of a .smi or .sdf file into the molecule corpus.\nRecords whose id already exists are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Config.Scoring.Store == config.StoreMemory {
				return fmt.Errorf("import needs a persistent corpus; scoring.store is %q", config.StoreMemory)
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			recs, err := readCorpusFile(file)
			if err != nil {
				return err
			}
			in, err := cliCtx.Connect(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer in.Close()

			n, err := in.Molecules.Import(ctx, recs)
			if err != nil {
				return err
			}
			return PrintResult(cmd, ImportResult{File: file, Read: len(recs), Inserted: n, Existing: len(recs) - n})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "structure file (.smi or .sdf)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
