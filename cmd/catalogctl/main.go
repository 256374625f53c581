package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"askgate/internal/config"
	"askgate/internal/crypto"
	"askgate/internal/storage"
)

// app holds what subcommands share. The store and keyring are opened on first use.
type app struct {
	out         io.Writer
	driver      string
	dsn         string
	autoMigrate bool

	store   *storage.Store
	keyring *crypto.Keyring
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{out: out}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {

	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Manage the askgate model catalog",
		Long: `Manage chat and embedding providers and their models in the catalog database.

Provider API keys and headers are sealed with the master keyring (MASTER_KEY_*)
before they are written.

Examples:
  catalogctl provider add --category chat --name openai --kind openai_compat \
    --base-url https://api.openai.com/v1 --api-key "$OPENAI_API_KEY"
  catalogctl model add --category chat --provider openai --name gpt-4o-mini
  catalogctl provider list --category chat`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.driver, "db-driver", envOr("DB_DRIVER", "postgres"), "database driver (postgres|sqlite)")
	pf.StringVar(&a.dsn, "db-dsn", os.Getenv("DB_DSN"), "database DSN")
	pf.BoolVar(&a.autoMigrate, "migrate", true, "apply schema migrations before running")

	root.AddCommand(newProviderCmd(a), newModelCmd(a), newRekeyCmd(a))
	return root
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.dsn == "" {
		return nil, config.ErrMissingDatabaseDSN
	}
	store, err := storage.Open(ctx, a.driver, a.dsn, a.autoMigrate)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) openKeyring() (*crypto.Keyring, error) {
	if a.keyring != nil {
		return a.keyring, nil
	}
	cc, err := config.LoadCrypto()
	if err != nil {
		return nil, err
	}
	kr, err := crypto.NewKeyring(cc.CurrentKeyID, cc.Keys)
	if err != nil {
		return nil, err
	}
	a.keyring = kr
	return kr, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
