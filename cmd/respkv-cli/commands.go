package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pior/respkv"
	"github.com/pior/respkv/payload"
	"github.com/spf13/cobra"
)

var (
	flagJSON bool
	flagRaw  bool
)

var errUsage = errors.New("usage")

func init() {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List all keys",
		Args:  cobra.NoArgs,
		RunE:  runOnce(doKeys),
	}

	existsCmd := &cobra.Command{
		Use:   "exists <key>",
		Short: "Report whether a key exists",
		Args:  cobra.ExactArgs(1),
		RunE:  runOnce(doExists),
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch a value",
		Args:  cobra.ExactArgs(1),
		RunE: runOnce(func(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
			if flagRaw {
				return doGetRaw(ctx, q, w, args)
			}
			return doGet(ctx, q, w, args)
		}),
	}
	getCmd.Flags().BoolVar(&flagRaw, "raw", false, "print the stored bytes without decoding")

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: runOnce(func(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
			if flagJSON {
				return doSetJSON(ctx, q, w, args)
			}
			return doSet(ctx, q, w, args)
		}),
	}
	setCmd.Flags().BoolVar(&flagJSON, "json", false, "parse the value as JSON and store it as a collection")

	delCmd := &cobra.Command{
		Use:     "del <key>",
		Aliases: []string{"delete"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE:    runOnce(doDelete),
	}

	rootCmd.AddCommand(keysCmd, existsCmd, getCmd, setCmd, delCmd)
}

type handler func(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error

// runOnce adapts a handler to a one-shot cobra command.
func runOnce(h handler) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := s.ctx()
		defer cancel()
		return h(ctx, s.client, cmd.OutOrStdout(), args)
	}
}

func doKeys(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	keys, err := q.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "(empty)")
		return nil
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	slices.Sort(names)
	for i, k := range names {
		fmt.Fprintf(w, "%d) %s\n", i+1, k)
	}
	return nil
}

func doExists(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: exists <key>", errUsage)
	}
	ok, err := q.Exists(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, ok)
	return nil
}

func doGet(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <key>", errUsage)
	}
	v, found, err := q.GetValue(ctx, args[0])
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(w, "(nil)")
		return nil
	}
	return printValue(w, v)
}

func doGetRaw(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: getraw <key>", errUsage)
	}
	data, found, err := q.GetRaw(ctx, args[0])
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(w, "(nil)")
		return nil
	}
	_, err = fmt.Fprintf(w, "%q\n", data)
	return err
}

func doSet(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: set <key> <value>", errUsage)
	}
	ok, err := q.SetValue(ctx, args[0], strings.Join(args[1:], " "))
	return printResult(w, ok, err)
}

func doSetJSON(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: setjson <key> <json>", errUsage)
	}

	var value any
	if err := sonic.ConfigStd.UnmarshalFromString(strings.Join(args[1:], " "), &value); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	switch value.(type) {
	case map[string]any, []any:
	default:
		return fmt.Errorf("JSON value must be an object or an array")
	}

	ok, err := q.SetValue(ctx, args[0], value)
	return printResult(w, ok, err)
}

func doDelete(ctx context.Context, q respkv.Querier, w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: del <key>", errUsage)
	}
	ok, err := q.Delete(ctx, args[0])
	return printResult(w, ok, err)
}

func printResult(w io.Writer, ok bool, err error) error {
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(w, "OK")
	} else {
		fmt.Fprintln(w, "(not stored)")
	}
	return nil
}

func printValue(w io.Writer, v payload.Value) error {
	if !v.IsCollection() {
		_, err := fmt.Fprintln(w, v.Str())
		return err
	}

	out, err := sonic.ConfigStd.MarshalIndent(v.Interface(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
