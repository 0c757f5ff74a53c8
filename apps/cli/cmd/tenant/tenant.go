package tenantcmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bizscreen/console/apps/cli/cmd/cmdutil"
	activityrepo "github.com/bizscreen/console/domains/activity/be/repo"
	activityservice "github.com/bizscreen/console/domains/activity/be/service"
	"github.com/bizscreen/console/domains/tenants/be/repo"
	"github.com/bizscreen/console/domains/tenants/be/service"
	"github.com/bizscreen/console/platform/go/persistence"
)

// Command groups tenant registry helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant registry (create, list, suspend, provision storage)",
	}
	cmd.AddCommand(createCommand(), listCommand(), statusCommand(), provisionCommand())
	return cmd
}

func open(cmd *cobra.Command, sf *cmdutil.StorageFlags) (service.Service, func(), error) {
	env, err := cmdutil.Open(cmd)
	if err != nil {
		return nil, nil, err
	}
	tenantStore, err := persistence.NewTenantStore(env.DB)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	activityStore, err := persistence.NewActivityStore(env.DB)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	cfg := service.Config{
		Repo:     repo.NewPostgresRepository(tenantStore),
		EnvKey:   cmdutil.EnvKey(cmd),
		Activity: activityservice.New(activityrepo.NewPostgresRepository(activityStore), nil),
		Logger:   env.Logger,
	}
	closeStore := func() {}
	if sf != nil {
		store, closeFn, err := sf.Open(cmd)
		if err != nil {
			env.Close()
			return nil, nil, err
		}
		cfg.Store, closeStore = store, closeFn
	}
	return service.New(cfg), func() { closeStore(); env.Close() }, nil
}

func createCommand() *cobra.Command {
	var (
		slug, name, plan string
		sf               cmdutil.StorageFlags
	)
	c := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant and provision its storage prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd, &sf)
			if err != nil {
				return err
			}
			defer closeFn()

			in := service.CreateInput{Slug: slug, Plan: plan}
			if n := strings.TrimSpace(name); n != "" {
				in.DisplayName = &n
			}
			t, err := svc.CreateTenant(cmdutil.SystemContext(cmd.Context()), cmdutil.Operator, in)
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %s created (id=%s, plan=%s)\n", t.Slug, t.ID, t.Plan)
			return nil
		},
	}
	c.Flags().StringVar(&slug, "slug", "", "tenant slug (lowercase, dash separated)")
	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&plan, "plan", "free", "free, starter, pro or enterprise")
	sf.Bind(c)
	_ = c.MarkFlagRequired("slug")
	return c
}

func listCommand() *cobra.Command {
	var (
		status string
		page   int
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List tenants, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			req := service.ListRequest{Page: max(page-1, 0), PageSize: service.MaxPageSize}
			if status != "" {
				st, ok := service.ParseStatus(status)
				if !ok {
					return fmt.Errorf("--status must be active or suspended")
				}
				req.Status = &st
			}
			res, err := svc.ListTenants(cmd.Context(), cmdutil.Operator, req)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tSTATUS\tPLAN\tCREATED")
			for _, t := range res.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Slug, t.Status, t.Plan, t.CreatedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(w, "\n%d tenants\n", res.Total)
			return w.Flush()
		},
	}
	c.Flags().StringVar(&status, "status", "", "filter by status")
	c.Flags().IntVar(&page, "page", 1, "page number")
	return c
}

func statusCommand() *cobra.Command {
	var id, status string
	c := &cobra.Command{
		Use:   "set-status",
		Short: "Suspend or reactivate a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := cmdutil.ParseUUID("id", id)
			if err != nil {
				return err
			}
			st, ok := service.ParseStatus(status)
			if !ok {
				return fmt.Errorf("--status must be active or suspended")
			}
			svc, closeFn, err := open(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.SetTenantStatus(cmdutil.SystemContext(cmd.Context()), cmdutil.Operator, tenantID, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %s is now %s\n", t.Slug, t.Status)
			return nil
		},
	}
	c.Flags().StringVar(&id, "id", "", "tenant id")
	c.Flags().StringVar(&status, "status", "", "active or suspended")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("status")
	return c
}

// provisionCommand re-runs storage provisioning for a tenant whose create step could not reach the store.
func provisionCommand() *cobra.Command {
	var (
		id string
		sf cmdutil.StorageFlags
	)
	c := &cobra.Command{
		Use:   "provision-storage",
		Short: "Write the storage marker of an existing tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := cmdutil.ParseUUID("id", id)
			if err != nil {
				return err
			}
			if sf.Backend == "" {
				return fmt.Errorf("--storage-backend is required")
			}
			store, closeStore, err := sf.Open(cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := service.ProvisionStorage(cmd.Context(), store, cmdutil.EnvKey(cmd), tenantID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "storage provisioned for %s\n", tenantID)
			return nil
		},
	}
	c.Flags().StringVar(&id, "id", "", "tenant id")
	sf.Bind(c)
	_ = c.MarkFlagRequired("id")
	return c
}
