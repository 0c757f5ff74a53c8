// Package domains re-runs custom domain verification outside the request path.
package domains

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizscreen/console/apps/cli/cmd/cmdutil"
	activityrepo "github.com/bizscreen/console/domains/activity/be/repo"
	activityservice "github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/domains/whitelabel/be/repo"
	"github.com/bizscreen/console/domains/whitelabel/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Custom domain maintenance",
	}
	cmd.AddCommand(verifyCommand())
	return cmd
}

func verifyCommand() *cobra.Command {
	var tenantID, domainID string
	c := &cobra.Command{
		Use:   "verify",
		Short: "Check the TXT record of a pending domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := cmdutil.OwnerScope(tenantID)
			if err != nil {
				return err
			}
			id, err := cmdutil.ParseUUID("id", domainID)
			if err != nil {
				return err
			}
			env, err := cmdutil.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			store, err := persistence.NewWhiteLabelStore(env.DB)
			if err != nil {
				return err
			}
			activityStore, err := persistence.NewActivityStore(env.DB)
			if err != nil {
				return err
			}
			svc := service.New(service.Config{
				Repo:     repo.NewPostgresRepository(store),
				EnvKey:   cmdutil.EnvKey(cmd),
				Activity: activityservice.New(activityrepo.NewPostgresRepository(activityStore), nil),
				Logger:   env.Logger,
			})

			res, err := svc.VerifyDomain(cmdutil.SystemContext(cmd.Context()), scope, id)
			if err != nil {
				return err
			}
			if res.Verified {
				fmt.Fprintf(cmd.OutOrStdout(), "%s verified\n", res.Domain.DomainName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s not verified: %s\n", res.Domain.DomainName, res.Reason)
			return nil
		},
	}
	c.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	c.Flags().StringVar(&domainID, "id", "", "domain id")
	_ = c.MarkFlagRequired("tenant")
	_ = c.MarkFlagRequired("id")
	return c
}
