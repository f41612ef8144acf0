package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pior/memcache-classic"
	"github.com/spf13/cobra"
)

type storeFunc func(ctx context.Context, key string, value any, opts ...memcache.Option) (bool, error)

func addCommands(root *cobra.Command) {
	root.AddCommand(
		getCmd("get", func(ctx context.Context, key string) (memcache.Item, error) { return client.Get(ctx, key) }),
		getCmd("gets", func(ctx context.Context, key string) (memcache.Item, error) { return client.Gets(ctx, key) }),
		storeCmd("set", "Stores a value", func() storeFunc { return client.Set }),
		storeCmd("add", "Stores a value if the key does not exist", func() storeFunc { return client.Add }),
		storeCmd("replace", "Stores a value if the key exists", func() storeFunc { return client.Replace }),
		storeCmd("append", "Appends data to an existing value", func() storeFunc { return client.Append }),
		storeCmd("prepend", "Prepends data to an existing value", func() storeFunc { return client.Prepend }),
		casCmd(),
		arithmeticCmd("incr", "Increments a counter"),
		arithmeticCmd("decr", "Decrements a counter"),
		deleteCmd(),
		touchCmd(),
		getMultiCmd(),
		flushAllCmd(),
		statsCmd(),
		versionCmd(),
	)
}

func getCmd(name string, get func(context.Context, string) (memcache.Item, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printItem(item)
			return nil
		},
	}
}

func printItem(item memcache.Item) {
	if !item.Found {
		fmt.Printf("key=%s, found=false\n", item.Key)
		return
	}
	fmt.Printf("key=%s, found=true, flags=%d, cas=%d, value=%v\n", item.Key, item.Flags, item.CasID, item.Value)
}

// parseValue stores numbers as integers when --int is set.
func parseValue(cmd *cobra.Command, raw string) (any, error) {
	if asInt, _ := cmd.Flags().GetBool("int"); asInt {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value must be an integer: %w", err)
		}
		return n, nil
	}
	return raw, nil
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("ttl", 0, "Expiration of the item (0 never expires)")
	cmd.Flags().Bool("noreply", false, "Do not wait for the server reply")
	cmd.Flags().Bool("int", false, "Store the value as an integer")
}

func storeCmd(name, short string, fn func() storeFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " [key] [value]",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(cmd, args[1])
			if err != nil {
				return err
			}
			stored, err := fn()(cmd.Context(), args[0], value, commandOptions(cmd)...)
			if err != nil {
				return err
			}
			fmt.Printf("%s: stored=%v\n", name, stored)
			return nil
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func casCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cas [key] [value]",
		Short: "Reads the cas-id of a key, then stores a value only if it did not change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(cmd, args[1])
			if err != nil {
				return err
			}
			item, err := client.Gets(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !item.Found {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}
			stored, err := client.CompareAndSwap(cmd.Context(), args[0], value, commandOptions(cmd)...)
			if err != nil {
				return err
			}
			fmt.Printf("cas: stored=%v\n", stored)
			return nil
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func arithmeticCmd(name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " [key] [delta]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := uint64(1)
			if len(args) == 2 {
				var err error
				if delta, err = strconv.ParseUint(args[1], 10, 64); err != nil {
					return fmt.Errorf("delta must be a positive number: %w", err)
				}
			}

			op := client.Incr
			if name == "decr" {
				op = client.Decr
			}
			value, found, err := op(cmd.Context(), args[0], delta, commandOptions(cmd)...)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%d\n", args[0], found, value)
			return nil
		},
	}
	cmd.Flags().Bool("noreply", false, "Do not wait for the server reply")
	return cmd
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := client.Delete(cmd.Context(), args[0], commandOptions(cmd)...)
			if err != nil {
				return err
			}
			fmt.Printf("delete: %s\n", outcome)
			return nil
		},
	}
	cmd.Flags().Bool("noreply", false, "Do not wait for the server reply")
	return cmd
}

func touchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "touch [key]",
		Short: "Updates the expiration of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := client.Touch(cmd.Context(), args[0], commandOptions(cmd)...)
			if err != nil {
				return err
			}
			fmt.Printf("touch: %s\n", outcome)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 0, "New expiration of the item (0 never expires)")
	cmd.Flags().Bool("noreply", false, "Do not wait for the server reply")
	return cmd
}

func getMultiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-multi [key]...",
		Short: "Reads several keys, one request per server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := client.GetMulti(cmd.Context(), args)
			for _, key := range args {
				item, ok := items[key]
				if !ok {
					item = memcache.Item{Key: key}
				}
				printItem(item)
			}
			return err
		},
	}
}

func flushAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush-all",
		Short: "Invalidates every item on every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.FlushAll(cmd.Context(), durationFlag(cmd, "delay")); err != nil {
				return err
			}
			fmt.Println("flushed")
			return nil
		},
	}
	cmd.Flags().Duration("delay", 0, "Delay before the flush takes effect")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [group]",
		Short: "Prints server statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var group string
			if len(args) == 1 {
				group = args[0]
			}
			stats, err := client.ServerStats(cmd.Context(), group)
			for _, addr := range sortedKeys(stats) {
				fmt.Printf("%s:\n", addr)
				for _, name := range sortedKeys(stats[addr]) {
					fmt.Printf("  %s %s\n", name, stats[addr][name])
				}
			}
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version of every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := client.Version(cmd.Context())
			for _, addr := range sortedKeys(versions) {
				fmt.Printf("%s: %s\n", addr, versions[addr])
			}
			return err
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
