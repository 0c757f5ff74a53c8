package migrate

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bizscreen/console/apps/cli/cmd/cmdutil"
	"github.com/bizscreen/console/platform/go/persistence"
)

// Command applies and inspects the embedded schema migrations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.AddCommand(upCommand(), statusCommand())
	return cmd
}

func upCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := cmdutil.DatabaseURL(cmd)
			if err != nil {
				return err
			}
			if err := persistence.Migrate(cmd.Context(), url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := cmdutil.DatabaseURL(cmd)
			if err != nil {
				return err
			}
			statuses, err := persistence.MigrationStatus(cmd.Context(), url)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATE\tSOURCE")
			for _, s := range statuses {
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.Source.Version, s.State, s.Source.Path)
			}
			return w.Flush()
		},
	}
}
