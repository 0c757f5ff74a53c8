package root

import (
	"github.com/bizscreen/console/apps/cli/cmd/auth"
	"github.com/bizscreen/console/apps/cli/cmd/domains"
	"github.com/bizscreen/console/apps/cli/cmd/migrate"
	"github.com/bizscreen/console/apps/cli/cmd/reseller"
	tenantcmd "github.com/bizscreen/console/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(migrate.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(reseller.Command())
	Root().AddCommand(domains.Command())
}
