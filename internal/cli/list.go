package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/api"
	"github.com/hongminglow/therapy-console/internal/format"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/request"
)

// lister fetches one page of a resource and prints it.
type lister func(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error)

var listers = map[string]lister{
	"devices":   listDevices,
	"visits":    listVisitRecords,
	"reports":   listReports,
	"patients":  listPatients,
	"videos":    listVideos,
	"dict":      listDictTypes,
	"dict-data": listDictData,
}

func resourceNames() []string {
	names := make([]string, 0, len(listers))
	for name := range listers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newListCmd(a *app) *cobra.Command {
	var (
		pageNum  int
		pageSize int
		filters  []string
	)

	cmd := &cobra.Command{
		Use:       "list <resource>",
		Short:     "List platform records",
		Long:      "List platform records. Resources: " + strings.Join(resourceNames(), ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: resourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := listers[args[0]]
			if !ok {
				return fmt.Errorf("unknown resource %q (want one of %s)", args[0], strings.Join(resourceNames(), ", "))
			}
			filter := map[string]string{}
			for _, f := range filters {
				k, v, ok := strings.Cut(f, "=")
				if !ok || k == "" {
					return fmt.Errorf("filter %q must be key=value", f)
				}
				filter[k] = v
			}

			page := dto.Page{Current: pageNum, Size: pageSize}.Normalize()
			out := cmd.OutOrStdout()
			total, err := fn(cmd.Context(), a, page, filter, out)
			if err != nil {
				return fmt.Errorf("list %s: %w", args[0], err)
			}
			if total == 0 {
				fmt.Fprintln(out, "No records found.")
				return nil
			}
			fmt.Fprintf(out, "\npage %d (size %d), %d total\n", page.Current, page.Size, total)
			return nil
		},
	}

	cmd.Flags().IntVar(&pageNum, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "size", dto.DefaultPageSize, "Page size")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Exact match filter key=value (repeatable)")
	return cmd
}

// dictOptions loads a dictionary for label lookups; failures just mean raw values are shown.
func dictOptions(ctx context.Context, a *app, dictType string) []models.DictDataCss {
	res, err := a.api.DictData.List(ctx, dto.Page{Size: dto.MaxPageSize}, &models.DictData{DictType: dictType})
	if err != nil {
		a.logger.Debug("load dictionary", "dict_type", dictType, "error", err)
		return nil
	}
	return format.SelectData(res.Rows)
}

func listDevices(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	f := api.DeviceFilter{PicoNumber: filter["picoNumber"]}
	if s, ok := filter["status"]; ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("status must be a number: %w", err)
		}
		f.Status = &n
	}
	res, err := a.api.Devices.List(ctx, dto.ListParams{PageNum: page.Current, PageSize: page.Size}, f)
	if err != nil {
		return 0, err
	}
	status := dictOptions(ctx, a, "sys_device_status")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPICO\tSTATUS\tCREATED BY\tCREATED")
	for _, d := range res.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, format.TableEmpty(d.PicoNumber),
			format.DictLabel(status, strconv.Itoa(d.Status)), format.TableEmpty(d.CreatedUserName),
			format.DefaultDate(d.CreatedTime, time.Local))
	}
	return res.Total, tw.Flush()
}

func listVisitRecords(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	res, err := listFiltered(ctx, a.api.VisitRecords, page, filter)
	if err != nil {
		return 0, err
	}
	status := dictOptions(ctx, a, "sys_treat_status")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tORDER\tPATIENT\tDEPART\tPLAN\tDOCTOR\tSTATUS\tCREATED")
	for _, v := range res.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, format.TableEmpty(v.OrderTreatNumber),
			format.TableEmpty(v.PatientName), format.TableEmpty(v.TreatDepart), format.TableEmpty(v.PlanName),
			format.TableEmpty(v.ExecuteDoctor), format.DictLabel(status, strconv.Itoa(v.Status)),
			format.DefaultDate(v.CreatedTime, time.Local))
	}
	return res.Total, tw.Flush()
}

func listReports(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	res, err := listFiltered(ctx, a.api.Reports, page, filter)
	if err != nil {
		return 0, err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tPLAN\tDOCTOR\tLINK")
	for _, r := range res.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, format.TableEmpty(r.PatientName),
			format.TableEmpty(r.PlanName), format.TableEmpty(r.ExeDoctor), format.TableEmpty(r.Link))
	}
	return res.Total, tw.Flush()
}

func listPatients(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	res, err := listFiltered(ctx, a.api.Patients, page, filter)
	if err != nil {
		return 0, err
	}
	gender := dictOptions(ctx, a, "sys_user_sex")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAGE\tGENDER\tPHONE\tHISTORY")
	for _, p := range res.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", p.ID, format.TableEmpty(p.Name), p.Age,
			format.DictLabel(gender, string(p.Gender)), format.TableEmpty(p.Phone), format.TableEmpty(p.MedicalHistory))
	}
	return res.Total, tw.Flush()
}

func listVideos(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	res, err := listFiltered(ctx, a.api.Videos, page, filter)
	if err != nil {
		return 0, err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tDURATION\tVIEWS")
	for _, v := range res.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", v.ID, format.TableEmpty(v.Title), format.TableEmpty(v.Category),
			format.Duration(v.DurationSec), v.Views)
	}
	return res.Total, tw.Flush()
}

func listDictTypes(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	res, err := listFiltered(ctx, a.api.DictTypes, page, filter)
	if err != nil {
		return 0, err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tREMARK")
	for _, d := range res.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.DictID, d.DictName, d.DictType, dictStatus(d.Status), format.TableEmpty(d.Remark))
	}
	return res.Total, tw.Flush()
}

func listDictData(ctx context.Context, a *app, page dto.Page, filter map[string]string, w io.Writer) (int64, error) {
	res, err := listFiltered(ctx, a.api.DictData, page, filter)
	if err != nil {
		return 0, err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tTYPE\tLABEL\tVALUE\tSORT\tSTATUS")
	for _, d := range res.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", d.DictCode, d.DictType, d.DictLabel, d.DictValue, d.DictSort, dictStatus(d.Status))
	}
	return res.Total, tw.Flush()
}

func dictStatus(s string) string {
	if s == models.DictStatusDisabled {
		return "disabled"
	}
	return "active"
}

// listFiltered sends free-form key=value filters next to the page.
func listFiltered[T any, ID comparable](ctx context.Context, res api.Resource[T, ID], page dto.Page, filter map[string]string) (request.ListResult[T], error) {
	if len(filter) == 0 {
		return res.List(ctx, page, nil)
	}
	return res.ListWhere(ctx, page, filter)
}
