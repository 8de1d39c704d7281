package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/therapy-console/internal/models"
)

func TestTableEmpty(t *testing.T) {
	var nilPtr *string
	name := "PICO00001"
	assert.Equal(t, Empty, TableEmpty(nil))
	assert.Equal(t, Empty, TableEmpty(""))
	assert.Equal(t, Empty, TableEmpty("   "))
	assert.Equal(t, Empty, TableEmpty(nilPtr))
	assert.Equal(t, Empty, TableEmpty([]string{}))
	assert.Equal(t, "PICO00001", TableEmpty(&name))
	assert.Equal(t, "0", TableEmpty(0))
	assert.Equal(t, "[a b]", TableEmpty([]string{"a", "b"}))
}

func TestDefaultDate(t *testing.T) {
	assert.Equal(t, "2025-01-01 08:00:00", DefaultDate("2025-01-01T08:00:00.000Z", time.UTC))
	assert.Equal(t, "2025-01-01 16:00:00", DefaultDate("2025-01-01T08:00:00Z", time.FixedZone("CST", 8*3600)))
	assert.Equal(t, "2025-02-03 00:00:00", DefaultDate("2025-02-03", time.UTC))
	assert.Equal(t, "yesterday-ish", DefaultDate("yesterday-ish", time.UTC))
	assert.Equal(t, Empty, DefaultDate("", time.UTC))
}

func TestBytesAndDuration(t *testing.T) {
	assert.Equal(t, "10 MiB", Bytes(10*1024*1024))
	assert.Equal(t, Empty, Bytes(-1))
	assert.Equal(t, "0:00", Duration(0))
	assert.Equal(t, "1:05", Duration(65))
	assert.Equal(t, "1:01:01", Duration(3661))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, Empty, Ago(time.Time{}))
	assert.Contains(t, Ago(time.Now().Add(-72*time.Hour)), "ago")
}

func TestSelectDataAndDictLabel(t *testing.T) {
	data := []models.DictData{
		{DictType: "sys_device_status", DictLabel: "空闲", DictValue: "0", CSSType: "success", Status: models.DictStatusActive},
		{DictType: "sys_device_status", DictLabel: "使用中", DictValue: "1", CSSType: "warning"},
		{DictType: "sys_device_status", DictLabel: "报废", DictValue: "2", Status: models.DictStatusDisabled},
	}
	opts := SelectData(data)
	assert.Len(t, opts, 2)
	assert.Equal(t, models.DictDataCss{Label: "空闲", Value: "0", DictType: "sys_device_status", CSSType: "success"}, opts[0])

	assert.Equal(t, "使用中", DictLabel(opts, "1"))
	assert.Equal(t, "空闲,使用中", DictLabel(opts, "0, 1"))
	assert.Equal(t, "9", DictLabel(opts, "9"))
	assert.Equal(t, Empty, DictLabel(opts, ""))
}

type node struct {
	Name     string
	Children []node
}

func TestFlattenTree(t *testing.T) {
	tree := []node{
		{Name: "settings", Children: []node{
			{Name: "video"},
			{Name: "dict", Children: []node{{Name: "data"}}},
		}},
		{Name: "device"},
	}

	flat := FlattenTree(tree, func(n node) []node { return n.Children })

	var names []string
	for _, n := range flat {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"settings", "video", "dict", "data", "device"}, names)
}

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "文本", OptionLabel(ResponseShowTypeOptions, ContentText))
	assert.Equal(t, Empty, OptionLabel(ResponseShowTypeOptions, 99))
}
