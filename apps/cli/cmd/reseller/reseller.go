// Package reseller holds operator commands for partner accounts and license batches.
package reseller

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bizscreen/console/apps/cli/cmd/cmdutil"
	activityrepo "github.com/bizscreen/console/domains/activity/be/repo"
	activityservice "github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/domains/resellers/be/repo"
	"github.com/bizscreen/console/domains/resellers/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reseller",
		Short: "Reseller accounts and license batches",
	}
	cmd.AddCommand(
		createCommand(),
		statusCommand("approve", service.AccountActive),
		statusCommand("suspend", service.AccountSuspended),
		licensesCommand(),
	)
	return cmd
}

func openStore(cmd *cobra.Command) (*cmdutil.Env, *persistence.LicenseStore, error) {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := persistence.NewLicenseStore(env.DB)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return env, store, nil
}

func createCommand() *cobra.Command {
	var (
		tenantID, company string
		commission        float64
	)
	c := &cobra.Command{
		Use:   "create",
		Short: "Register a pending reseller account for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseUUID("tenant", tenantID)
			if err != nil {
				return err
			}
			if commission < 0 || commission > 100 {
				return fmt.Errorf("--commission must be between 0 and 100")
			}
			env, store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			acct, err := store.CreateAccount(cmd.Context(), id, company, commission)
			if err != nil {
				return fmt.Errorf("create reseller: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reseller %s created for tenant %s (status=%s)\n", acct.ID, id, acct.Status)
			return nil
		},
	}
	c.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	c.Flags().StringVar(&company, "company", "", "company name")
	c.Flags().Float64Var(&commission, "commission", 20, "commission percent")
	_ = c.MarkFlagRequired("tenant")
	_ = c.MarkFlagRequired("company")
	return c
}

func statusCommand(use string, status service.AccountStatus) *cobra.Command {
	var tenantID string
	c := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Mark a tenant's reseller account %s", status),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseUUID("tenant", tenantID)
			if err != nil {
				return err
			}
			env, store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			acct, err := store.SetAccountStatus(cmd.Context(), id, string(status))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reseller %s is now %s\n", acct.CompanyName, acct.Status)
			return nil
		},
	}
	c.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	_ = c.MarkFlagRequired("tenant")
	return c
}

func licensesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licenses",
		Short: "Generate or export a reseller's license codes",
	}
	cmd.AddCommand(generateCommand(), exportCommand())
	return cmd
}

func openService(cmd *cobra.Command) (service.Service, *cmdutil.Env, error) {
	env, store, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	activityStore, err := persistence.NewActivityStore(env.DB)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	activity := activityservice.New(activityrepo.NewPostgresRepository(activityStore), nil)
	return service.New(repo.NewPostgresRepository(store), activity, env.Logger), env, nil
}

func generateCommand() *cobra.Command {
	var (
		tenantID string
		req      service.GenerateRequest
	)
	c := &cobra.Command{
		Use:   "generate",
		Short: "Mint a batch of license codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := cmdutil.OwnerScope(tenantID)
			if err != nil {
				return err
			}
			svc, env, err := openService(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			licenses, err := svc.GenerateLicenses(cmdutil.SystemContext(cmd.Context()), scope, req)
			for _, l := range licenses {
				fmt.Fprintln(cmd.OutOrStdout(), l.Code)
			}
			if err != nil && len(licenses) > 0 {
				return fmt.Errorf("stored %d of %d licenses: %w", len(licenses), req.Quantity, err)
			}
			return err
		},
	}
	c.Flags().StringVar(&tenantID, "tenant", "", "reseller tenant id")
	c.Flags().IntVar(&req.Quantity, "quantity", 10, "number of codes")
	c.Flags().StringVar(&req.PlanLevel, "plan", "starter", "starter, pro or enterprise")
	c.Flags().IntVar(&req.MaxScreens, "max-screens", 5, "screen cap per license")
	_ = c.MarkFlagRequired("tenant")
	return c
}

func exportCommand() *cobra.Command {
	var tenantID, out string
	c := &cobra.Command{
		Use:   "export",
		Short: "Write every license of a reseller as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := cmdutil.OwnerScope(tenantID)
			if err != nil {
				return err
			}
			svc, env, err := openService(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return svc.ExportLicensesCSV(cmd.Context(), scope, w)
		},
	}
	c.Flags().StringVar(&tenantID, "tenant", "", "reseller tenant id")
	c.Flags().StringVarP(&out, "output", "o", "-", "file to write, - for stdout")
	_ = c.MarkFlagRequired("tenant")
	return c
}
