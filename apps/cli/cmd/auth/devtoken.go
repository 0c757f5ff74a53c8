package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bizscreen/console/platform/go/auth/devtoken"
)

// Command groups authentication helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}
	cmd.AddCommand(devTokenCommand())
	return cmd
}

func devTokenCommand() *cobra.Command {
	var (
		params devtoken.Params
		secret string
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a Supabase-shaped JWT for local use",
		Long: "Without --secret the token is unsigned and only accepted with AUTH_PROVIDER=dev. " +
			"With --secret it is signed HS256 and accepted by AUTH_PROVIDER=supabase.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.TenantID == "" && !params.PlatformAdmin {
				return errors.New("--tenant is required unless --platform-admin is set")
			}
			now := time.Now().UTC()

			var (
				token string
				err   error
			)
			if secret != "" {
				token, err = devtoken.BuildSignedToken(params, []byte(secret), now)
			} else {
				token, err = devtoken.BuildUnsignedToken(params, now)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.TenantID, "tenant", "", "app_metadata.tenant_id claim")
	f.StringVar(&params.UserID, "user-id", "", "sub claim")
	f.StringVar(&params.Email, "email", "", "email claim")
	f.StringVar(&params.Name, "name", "", "display name")
	f.StringVar(&params.Role, "role", "owner", "owner, admin, editor, viewer, reseller or platform_admin")
	f.BoolVar(&params.PlatformAdmin, "platform-admin", false, "set app_metadata.is_platform_admin")
	f.BoolVar(&params.EmailVerified, "email-verified", true, "email_verified claim")
	f.DurationVar(&params.ExpiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	f.StringVar(&params.Audience, "audience", "", "override aud; defaults to authenticated")
	f.StringVar(&params.Issuer, "issuer", "", "override iss")
	f.StringVar(&secret, "secret", "", "HS256 secret; SUPABASE_JWT_SECRET of the target API")

	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
