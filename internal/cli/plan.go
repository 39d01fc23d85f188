package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/conflict"
	"github.com/yigit/enrollplan/internal/prereq"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "resolve <course>",
		Short: "Print the prerequisite tree of a course",
		Example: `  catalogctl resolve CS450
  catalogctl resolve CS450 --catalog fall.csv --max-depth 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := opts.loadSnapshot()
			if err != nil {
				return err
			}
			root, err := prereq.Resolve(snap, args[0], maxDepth)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"root":     root,
				"required": root.RequiredCodes(),
				"flags":    root.Flags(),
			})
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", prereq.DefaultMaxDepth, "Depth limit")
	return cmd
}

func newConflictsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "conflicts [crn]...",
		Short:   "Check a set of sections for time conflicts",
		Example: `  catalogctl conflicts 10101 30101 22001`,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := opts.loadSnapshot()
			if err != nil {
				return err
			}
			sections := make([]*models.Section, 0, len(args))
			for _, crn := range args {
				sec, ok := snap.Section(crn)
				if !ok {
					return fmt.Errorf("section %s not found", crn)
				}
				sections = append(sections, sec)
			}
			return writeJSON(cmd.OutOrStdout(), conflict.Detect(sections))
		},
	}
}
