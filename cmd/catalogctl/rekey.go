package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"askgate/internal/crypto"
	"askgate/internal/storage"
)

func newRekeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rekey",
		Short: "Re-seal every stored secret with the current master key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kr, err := a.openKeyring()
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			count := 0
			for _, category := range []string{storage.CategoryChat, storage.CategoryEmbedding} {
				list, err := store.ListProviders(cmd.Context(), category)
				if err != nil {
					return err
				}
				for _, p := range list {
					if p.EncAPIKey, err = reseal(kr, p.EncAPIKey); err != nil {
						return fmt.Errorf("provider %s/%s api key: %w", category, p.Name, err)
					}
					if p.EncHeadersJSON, err = reseal(kr, p.EncHeadersJSON); err != nil {
						return fmt.Errorf("provider %s/%s headers: %w", category, p.Name, err)
					}
					if _, err := store.UpsertProviderInstance(cmd.Context(), p); err != nil {
						return err
					}
					count++
				}
			}
			fmt.Fprintf(a.out, "%d providers re-sealed\n", count)
			return nil
		},
	}
}

func reseal(kr *crypto.Keyring, sealed *string) (*string, error) {
	if sealed == nil || *sealed == "" {
		return sealed, nil
	}
	out, err := kr.Reseal(*sealed)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
