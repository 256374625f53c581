package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"askgate/internal/providers/registry"
	"askgate/internal/storage"
)

func newProviderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage catalog providers",
	}
	cmd.AddCommand(newProviderAddCmd(a), newProviderListCmd(a), newProviderDelCmd(a))
	return cmd
}

func newProviderAddCmd(a *app) *cobra.Command {
	var (
		p          storage.ProviderInstance
		apiKey     string
		headers    map[string]string
		configJSON string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validCategory(p.Category); err != nil {
				return err
			}
			if strings.TrimSpace(p.Name) == "" {
				return fmt.Errorf("--name is required")
			}
			p.Kind = registry.NormalizeKind(p.Kind)
			if p.Kind != registry.KindOpenAICompat && p.Kind != registry.KindCustomHTTP {
				return fmt.Errorf("unsupported kind %q", p.Kind)
			}
			if configJSON != "" {
				var obj map[string]any
				if err := json.Unmarshal([]byte(configJSON), &obj); err != nil {
					return fmt.Errorf("parse --config: %w", err)
				}
				p.ConfigJSON = configJSON
			}

			kr, err := a.openKeyring()
			if err != nil {
				return err
			}
			if apiKey != "" {
				sealed, err := kr.Seal(apiKey)
				if err != nil {
					return fmt.Errorf("seal api key: %w", err)
				}
				p.EncAPIKey = &sealed
			}
			if len(headers) > 0 {
				raw, err := json.Marshal(headers)
				if err != nil {
					return fmt.Errorf("marshal headers: %w", err)
				}
				sealed, err := kr.Seal(string(raw))
				if err != nil {
					return fmt.Errorf("seal headers: %w", err)
				}
				p.EncHeadersJSON = &sealed
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			id, err := store.UpsertProviderInstance(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "provider %s/%s saved (id %d)\n", p.Category, p.Name, id)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Category, "category", storage.CategoryChat, "catalog category (chat|embedding)")
	f.StringVar(&p.Name, "name", "", "provider name shown to clients")
	f.StringVar(&p.Kind, "kind", registry.KindOpenAICompat, "provider kind (openai_compat|custom_http)")
	f.StringVar(&p.BaseURL, "base-url", "", "provider base URL")
	f.IntVar(&p.Position, "position", 0, "catalog order, lowest first")
	f.StringVar(&apiKey, "api-key", "", "API key, stored sealed")
	f.StringToStringVar(&headers, "header", nil, "extra request header as name=value, stored sealed")
	f.StringVar(&configJSON, "config", "", "provider config as a JSON object")
	return cmd
}

func newProviderListCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers and their models in catalog order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validCategory(category); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := store.ListCatalog(cmd.Context(), category)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tBASE URL\tKEY\tMODELS")
			for _, row := range rows {
				names := make([]string, 0, len(row.Models))
				for _, m := range row.Models {
					names = append(names, m.Name)
				}
				key := "-"
				if row.Provider.EncAPIKey != nil {
					key = "sealed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					row.Provider.Name, row.Provider.Kind, row.Provider.BaseURL, key, strings.Join(names, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", storage.CategoryChat, "catalog category (chat|embedding)")
	return cmd
}

func newProviderDelCmd(a *app) *cobra.Command {
	var category, name string
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a provider and its models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validCategory(category); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.DeleteProviderByName(cmd.Context(), category, name); err != nil {
				return fmt.Errorf("delete provider %s/%s: %w", category, name, err)
			}
			fmt.Fprintf(a.out, "provider %s/%s deleted\n", category, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", storage.CategoryChat, "catalog category (chat|embedding)")
	cmd.Flags().StringVar(&name, "name", "", "provider name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func validCategory(category string) error {
	switch category {
	case storage.CategoryChat, storage.CategoryEmbedding:
		return nil
	default:
		return fmt.Errorf("unknown category %q", category)
	}
}
