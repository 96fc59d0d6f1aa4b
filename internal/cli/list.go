package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backoffice-console/internal/app"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	"github.com/noah-isme/backoffice-console/internal/service"
	"github.com/noah-isme/backoffice-console/pkg/export"
)

type queryFlags struct {
	page    int
	search  string
	filters []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "Page to load")
	cmd.Flags().StringVar(&f.search, "search", "", "Search term")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "Filter as key=value (repeatable)")
}

func (f *queryFlags) parseFilters() (map[string]string, error) {
	out := make(map[string]string, len(f.filters))
	for _, raw := range f.filters {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", raw)
		}
		out[key] = value
	}
	return out, nil
}

func newListCmd(load Loader) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "Print one page of a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				screen, err := openScreen(a, args[0], q)
				if err != nil {
					return err
				}
				return printScreen(cmd.OutOrStdout(), screen)
			})
		},
	}
	q.register(cmd)
	return cmd
}

func newExportCmd(load Loader) *cobra.Command {
	var (
		q      queryFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <screen>",
		Short: "Write one page of a screen to a CSV or PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				screen, err := openScreen(a, args[0], q)
				if err != nil {
					return err
				}
				dataset := screen.Dataset()
				data, err := export.Render(f, dataset)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = fmt.Sprintf("%s.%s", screen.Key(), f)
				}
				if err := os.WriteFile(path, data, 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(dataset.Rows), path)
				return nil
			})
		},
	}
	q.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv or pdf")
	cmd.Flags().StringVar(&out, "out", "", "Output file (defaults to <screen>.<format>)")
	return cmd
}

// openScreen opens key for the logged in operator and applies the query flags.
func openScreen(a *app.App, key string, q queryFlags) (service.Screen, error) {
	sess, err := requireSession(a)
	if err != nil {
		return nil, err
	}
	if _, ok := navigation.Lookup(key); !ok {
		return nil, fmt.Errorf("unknown screen %q, expected one of: %s", key, strings.Join(a.Workspace.Keys(), ", "))
	}
	if !navigation.Allowed(sess, key) {
		return nil, fmt.Errorf("screen %q is not available for your role", key)
	}
	filters, err := q.parseFilters()
	if err != nil {
		return nil, err
	}

	screen, err := a.Workspace.Open(key)
	if err != nil {
		return nil, userError(err)
	}
	if len(filters) > 0 {
		if err := screen.SetFilters(filters); err != nil {
			return nil, userError(err)
		}
	}
	if q.search != "" {
		if err := screen.SetSearch(q.search); err != nil {
			return nil, userError(err)
		}
		if err := screen.CommitSearch(); err != nil {
			return nil, userError(err)
		}
	}
	if q.page > 1 {
		if err := screen.SetPage(q.page); err != nil {
			return nil, userError(err)
		}
	}
	if st := screen.State(); st.Error != nil {
		return nil, userError(st.Error)
	}
	return screen, nil
}

func printScreen(w io.Writer, screen service.Screen) error {
	st := screen.State()
	dataset := screen.Dataset()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(dataset.Labels(), "\t"))
	for _, row := range dataset.Rows {
		fmt.Fprintln(tw, strings.Join(dataset.Record(row), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	p := st.Pagination
	fmt.Fprintf(w, "%s: page %d of %d (%d total)\n", st.Title, p.Page, p.TotalPages, p.TotalCount)
	return nil
}
