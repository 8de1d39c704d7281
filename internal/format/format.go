// Package format holds display helpers shared by console listings.
package format

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hongminglow/therapy-console/internal/models"
)

// Empty is what tables show for missing values.
const Empty = "--"

// DateLayout is the default date-time layout.
const DateLayout = "2006-01-02 15:04:05"

// TableEmpty renders v, or Empty when v is nil, a blank string or an empty slice.
func TableEmpty(v any) string {
	if v == nil {
		return Empty
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Empty
		}
		return TableEmpty(rv.Elem().Interface())
	case reflect.String:
		if strings.TrimSpace(rv.String()) == "" {
			return Empty
		}
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return Empty
		}
	}
	return fmt.Sprint(v)
}

var dateInputs = []string{
	time.RFC3339Nano,
	time.RFC3339,
	DateLayout,
	"2006-01-02",
}

// DefaultDate reformats an ISO or date-time string to DateLayout in loc.
// Unparseable input is returned as is; blank input renders as Empty.
func DefaultDate(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Empty
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateInputs {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc).Format(DateLayout)
		}
	}
	return s
}

// Ago renders t relative to now, e.g. "3 days ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return Empty
	}
	return humanize.Time(t)
}

// Bytes renders a size in IEC units, e.g. "10 MiB".
func Bytes(n int64) string {
	if n < 0 {
		return Empty
	}
	return humanize.IBytes(uint64(n))
}

// Duration renders seconds as h:mm:ss or m:ss.
func Duration(sec int) string {
	if sec <= 0 {
		return "0:00"
	}
	d := time.Duration(sec) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// SelectData converts dictionary values into select options, skipping disabled ones.
func SelectData(data []models.DictData) []models.DictDataCss {
	out := make([]models.DictDataCss, 0, len(data))
	for _, d := range data {
		if d.Status == models.DictStatusDisabled {
			continue
		}
		out = append(out, models.DictDataCss{
			Label:    d.DictLabel,
			Value:    d.DictValue,
			DictType: d.DictType,
			CSSType:  d.CSSType,
		})
	}
	return out
}

// DictLabel returns the label for value, or value itself when no option matches.
// A comma separated value yields the comma joined labels.
func DictLabel(options []models.DictDataCss, value string) string {
	if value == "" {
		return Empty
	}
	parts := strings.Split(value, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		label := p
		for _, o := range options {
			if o.Value == p {
				label = o.Label
				break
			}
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ",")
}
