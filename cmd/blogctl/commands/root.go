package commands

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

const driverFlag = "driver"

// storeFlags are shared by every command that opens the database.
func storeFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		driverFlag: &cobraflags.StringFlag{
			Name:  driverFlag,
			Value: "",
			Usage: "Store driver (mysql, postgres, mongo). Defaults to DB_DRIVER",
		},
	}
}

// openStore is replaced in tests.
var openStore = func(ctx context.Context, driver string) (store.Store, error) {
	cfg := config.Load()
	if driver != "" {
		cfg.DBDriver = driver
	}
	if err := utils.InitLogger(cfg); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	return st, nil
}

// NewRootCommand assembles the blogctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "blogctl",
		Short:         "Administer the blog database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newSeedCommand(),
		newCreateAdminCommand(),
		newPromoteCommand(),
		newUsersCommand(),
		newApprovePendingCommand(),
	)
	return root
}

// withStore opens the store for the duration of fn.
func withStore(cmd *cobra.Command, flags map[string]cobraflags.Flag, fn func(ctx context.Context, st store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, flags[driverFlag].GetString())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func newBlogService(st store.Store) *services.BlogService {
	return services.NewBlogService(st, services.WithLogger(utils.Logger.Named("blogctl")))
}
