package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/novafn/novafn/internal/clientconfig"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify the persisted CLI config (spec §6)",
	}
	cmd.AddCommand(configListCmd(), configSetCmd(), configResetCmd())
	return cmd
}

func configListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every configured key-value pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			values, err := store.Load()
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if flagOutput == "json" || flagJSON {
				return printer().Print(values)
			}
			for _, k := range keys {
				fmt.Printf("%s=%s\n", k, values[k])
			}
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			values, err := store.Load()
			if err != nil {
				return err
			}
			values[args[0]] = args[1]
			return store.Save(values)
		},
	}
}

func configResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			return store.Reset()
		},
	}
}
