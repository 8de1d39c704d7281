package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/format"
)

func newNavigateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Resolve a console path through the route guard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.router.Navigate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, hop := range res.Redirects {
				fmt.Fprintf(out, "-> %s\n", hop)
			}
			fmt.Fprintf(out, "%s  (%s)\n", res.Location.FullPath(), res.Route.Name)
			if title := strings.Join(res.Route.Breadcrumb(), " / "); title != "" {
				fmt.Fprintf(out, "   %s\n", title)
			}
			for _, k := range slices.Sorted(maps.Keys(res.Params)) {
				fmt.Fprintf(out, "   %s=%s\n", k, res.Params[k])
			}
			return nil
		},
	}
}

func newRoutesCmd(a *app) *cobra.Command {
	var menu bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the console routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if menu {
				for _, rec := range a.router.Table().Menu() {
					fmt.Fprintf(out, "%s%s  %s\n", strings.Repeat("  ", rec.Depth-1), rec.Meta.Title, rec.FullPath)
				}
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tNAME\tTITLE\tREDIRECT")
			for _, rec := range a.router.Table().Records() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.FullPath, rec.Name, format.TableEmpty(rec.Meta.Title), format.TableEmpty(rec.Redirect))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&menu, "menu", false, "Show only the navigation menu, indented by level")
	return cmd
}
