package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"quiz-attempt-service/internal/infra/memory"
)

// NewValidateCmd checks a definitions file without starting anything.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a YAML file of quiz definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := memory.LoadDefinitionsFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range sortedIDs(defs) {
				def := defs[id]
				questions := 0
				for _, level := range def.Levels {
					questions += len(level.Questions)
				}
				fmt.Fprintf(out, "%s\t%s\tlevels=%d questions=%d passing=%d\n",
					id, def.Kind.Normalize(), len(def.Levels), questions, def.PassingMarks())
			}
			fmt.Fprintf(out, "%d definitions ok\n", len(defs))
			return nil
		},
	}
}
