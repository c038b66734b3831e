package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/balkashynov/smgantt/internal/seed"
)

var (
	seedExport uint
	seedOutput string
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Import a construction from YAML, or export one",
	Long: `Import a construction with its tasks and dependencies from a YAML seed file,
or export an existing construction in the same format.

Examples:
  smgantt seed lot9.yaml
  smgantt seed --export 3 -o lot9.yaml`,
	Args: cobra.MaximumNArgs(1),
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if seedExport != 0 {
			f, err := seed.Export(ctx, a.engine, seedExport)
			if err != nil {
				return err
			}
			data, err := seed.Marshal(f)
			if err != nil {
				return err
			}
			if seedOutput == "" || seedOutput == "-" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(seedOutput, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", seedOutput, err)
			}
			fmt.Printf("✅ Exported construction #%d to %s (%d tasks)\n", seedExport, seedOutput, len(f.Tasks))
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a seed file is required, or --export <construction>")
		}
		f, err := seed.Load(args[0])
		if err != nil {
			return err
		}
		c, err := seed.Import(ctx, a.engine, f)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Imported %s as construction #%d with %d tasks\n", c.Name, c.ID, len(f.Tasks))
		return nil
	}),
}

func init() {
	seedCmd.Flags().UintVarP(&seedExport, "export", "e", 0, "export this construction instead of importing")
	seedCmd.Flags().StringVarP(&seedOutput, "output", "o", "", "export destination (default stdout)")
}
