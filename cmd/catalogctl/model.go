package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"askgate/internal/storage"
)

type modelFlags struct {
	category string
	provider string
}

func (f *modelFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", storage.CategoryChat, "catalog category (chat|embedding)")
	cmd.Flags().StringVar(&f.provider, "provider", "", "provider name")
	_ = cmd.MarkFlagRequired("provider")
}

func (f *modelFlags) lookup(cmd *cobra.Command, a *app) (*storage.Store, storage.ProviderInstance, error) {
	if err := validCategory(f.category); err != nil {
		return nil, storage.ProviderInstance{}, err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return nil, storage.ProviderInstance{}, err
	}
	p, err := store.GetProviderByName(cmd.Context(), f.category, f.provider)
	if err != nil {
		return nil, storage.ProviderInstance{}, fmt.Errorf("provider %s/%s: %w", f.category, f.provider, err)
	}
	return store, p, nil
}

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the models offered by a provider",
	}
	cmd.AddCommand(newModelAddCmd(a), newModelListCmd(a), newModelDelCmd(a))
	return cmd
}

func newModelAddCmd(a *app) *cobra.Command {
	var (
		mf       modelFlags
		name     string
		position int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a model to a provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, p, err := mf.lookup(cmd, a)
			if err != nil {
				return err
			}
			if err := store.UpsertModel(cmd.Context(), storage.Model{ProviderInstanceID: p.ID, Name: name, Position: position}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "model %s added to %s/%s\n", name, p.Category, p.Name)
			return nil
		},
	}
	mf.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "model name")
	cmd.Flags().IntVar(&position, "position", 0, "order within the provider, lowest first")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newModelListCmd(a *app) *cobra.Command {
	var mf modelFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the models of a provider in catalog order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, p, err := mf.lookup(cmd, a)
			if err != nil {
				return err
			}
			models, err := store.ListModels(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			for _, m := range models[p.ID] {
				fmt.Fprintln(a.out, m.Name)
			}
			return nil
		},
	}
	mf.bind(cmd)
	return cmd
}

func newModelDelCmd(a *app) *cobra.Command {
	var (
		mf   modelFlags
		name string
	)
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Remove a model from a provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, p, err := mf.lookup(cmd, a)
			if err != nil {
				return err
			}
			if err := store.DeleteModel(cmd.Context(), p.ID, name); err != nil {
				return fmt.Errorf("delete model %s: %w", name, err)
			}
			fmt.Fprintf(a.out, "model %s removed from %s/%s\n", name, p.Category, p.Name)
			return nil
		},
	}
	mf.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "model name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
