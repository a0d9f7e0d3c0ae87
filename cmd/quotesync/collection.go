package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// stdioName selects stdin or stdout in place of a file path.
const stdioName = "-"

// withCollection wires a local-only collection, runs fn, and closes the store.
func withCollection(cmd *cobra.Command, c *cli, fn func(ctx context.Context, deps *components) error) (err error) {
	ctx := cmd.Context()

	deps, err := wire(ctx, c.cfg, c.logger, wireOptions{})
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, deps.Close(context.WithoutCancel(ctx)))
	}()

	return fn(ctx, deps)
}

func newListCommand(c *cli) *cobra.Command {
	var (
		category string
		search   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored quotes, optionally filtered",
		Long: `List stored quotes. --category matches case-insensitively ("all" or empty
matches everything) and --search is a case-insensitive substring match on the
quote text or its category. The filter is remembered as the stored preference.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCollection(cmd, c, func(ctx context.Context, deps *components) error {
				quotes := deps.coll.Filter(ctx, category, search)
				out := cmd.OutOrStdout()

				if asJSON {
					data, err := domain.EncodeQuotes(quotes)
					if err != nil {
						return err
					}

					_, err = fmt.Fprintln(out, string(data))

					return err
				}

				for _, q := range quotes {
					fmt.Fprintf(out, "[%s] %s\n", q.Category, q.Text)
				}

				fmt.Fprintf(out, "%d of %d quotes\n", len(quotes), deps.coll.Len())

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only quotes in this category")
	cmd.Flags().StringVar(&search, "search", "", "only quotes whose text or category contains this")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the matches as a JSON array")

	return cmd
}

func newExportCommand(c *cli) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCollection(cmd, c, func(_ context.Context, deps *components) error {
				data, err := deps.coll.Export()
				if err != nil {
					return err
				}

				if out == stdioName {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

					return err
				}

				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d quotes to %s\n", deps.coll.Len(), out)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", stdioName, `output file, "-" for stdout`)

	return cmd
}

func newImportCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append quotes from a JSON array file",
		Long: `Append quotes from a JSON array of {"text","category"} objects.
Entries missing either field are skipped; duplicates are kept. Use "-" to
read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			return withCollection(cmd, c, func(ctx context.Context, deps *components) error {
				n, err := deps.coll.Import(ctx, data)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "imported %d quotes, %d total\n", n, deps.coll.Len())

				return nil
			})
		},
	}
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == stdioName {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}

	return data, nil
}
