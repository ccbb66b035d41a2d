package list

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/manifest"
)

func init() {
	listRootCmd.PersistentFlags().BoolVar(
		&listCmdConfig.checks,
		"checks",
		false,
		"Also list the style-check suppressions in effect")
	commands.RootCmd.AddCommand(listRootCmd)
}

var listCmdConfig = struct {
	checks bool
}{}

var listRootCmd = &cobra.Command{
	Use:           "list",
	Short:         "List the environments declared in the manifest",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaceDir, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "error locating working directory")
		}

		man, manifestPath, err := manifest.Load(workspaceDir, manifest.DefaultParserLimits())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Environments in %s:\n\n", manifestPath)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, env := range man.Environments {
			var notes []string
			if len(env.Depends) > 0 {
				var deps []string
				for _, dep := range env.Depends {
					deps = append(deps, dep.String())
				}
				notes = append(notes, "depends: "+strings.Join(deps, ", "))
			}
			if env.IsManual() {
				notes = append(notes, "manual")
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", env.Name, env.Description, strings.Join(notes, "; "))
		}
		err = w.Flush()
		if err != nil {
			return err
		}

		if listCmdConfig.checks {
			fmt.Fprintln(os.Stdout)
			check := man.Check
			if check == nil {
				return gerror.NewErrNotFound("Manifest does not configure a check environment")
			}
			fmt.Fprintf(os.Stdout, "Check environment: %s\n", check.Environment)
			if len(check.Suppressions) == 0 {
				fmt.Fprintln(os.Stdout, "No suppressions in effect.")
				return nil
			}
			fmt.Fprintln(os.Stdout, "Suppressions:")
			for _, s := range check.Suppressions {
				line := fmt.Sprintf("  %-6s", s.Code)
				if s.Reason != "" {
					line += " " + s.Reason
				}
				if len(s.Paths) > 0 {
					line += fmt.Sprintf(" (%s)", strings.Join(s.Paths, ", "))
				}
				fmt.Fprintln(os.Stdout, line)
			}
		}
		return nil
	},
}
