package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableFlattens(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	dict, ok := table.ByName("DictData")
	require.True(t, ok)
	assert.Equal(t, "/settings/dict/data/:dictType", dict.FullPath)
	assert.Equal(t, 2, dict.Depth)
	assert.Equal(t, []string{"设置", "字典数据"}, dict.Breadcrumb())

	layout, ok := table.ByName("layout")
	require.True(t, ok)
	assert.Equal(t, "/device", layout.Redirect)
}

func TestMatchStaticAndParams(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	cases := []struct {
		path   string
		name   string
		params map[string]string
	}{
		{"/", "layout", nil},
		{"/device", "device", nil},
		{"/device/", "device", nil},
		{"settings/video", "Video", nil},
		{"/settings/dict", "Dict", nil},
		{"/settings/dict/data/sys_device_status", "DictData", map[string]string{"dictType": "sys_device_status"}},
		{"/login", "login", nil},
	}
	for _, tc := range cases {
		m, ok := table.Match(tc.path)
		require.True(t, ok, tc.path)
		assert.Equal(t, tc.name, m.Record.Name, tc.path)
		assert.Equal(t, tc.params, m.Params, tc.path)
	}

	_, ok := table.Match("/nowhere")
	assert.False(t, ok)
	_, ok = table.Match("/settings/dict/data")
	assert.False(t, ok)
}

func TestStaticSegmentBeatsParam(t *testing.T) {
	table, err := NewTable([]Route{
		{Path: "/items/:id", Name: "item"},
		{Path: "/items/new", Name: "newItem"},
	})
	require.NoError(t, err)

	m, ok := table.Match("/items/new")
	require.True(t, ok)
	assert.Equal(t, "newItem", m.Record.Name)

	m, ok = table.Match("/items/42")
	require.True(t, ok)
	assert.Equal(t, "item", m.Record.Name)
	assert.Equal(t, "42", m.Params["id"])
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Route{{Path: "/a", Name: "x"}, {Path: "/b", Name: "x"}})
	assert.ErrorContains(t, err, "duplicate route name")

	_, err = NewTable([]Route{{Path: "/a", Name: "x"}, {Path: "/a/", Name: "y"}})
	assert.ErrorContains(t, err, "duplicate route path")

	_, err = NewTable([]Route{{Path: "relative", Name: "x"}})
	assert.ErrorContains(t, err, "must be absolute")
}

func TestParseTableRejectsBadYAML(t *testing.T) {
	_, err := ParseTable([]byte("- path: [unclosed"))
	require.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("device?pageNum=2")
	require.NoError(t, err)
	assert.Equal(t, "/device", loc.Path)
	assert.Equal(t, "/device?pageNum=2", loc.FullPath())
	assert.Equal(t, "2", loc.Query().Get("pageNum"))

	_, err = ParseLocation("https://evil.example/device")
	require.Error(t, err)
}

func TestLoginRedirectKeepsSlashes(t *testing.T) {
	assert.Equal(t, "/login?redirect=/device", loginRedirect(LoginPath, "/device"))
	assert.Equal(t, "/login?redirect=/report%3Fpage%3D2", loginRedirect(LoginPath, "/report?page=2"))

	loc, err := ParseLocation(loginRedirect(LoginPath, "/report?page=2&size=5"))
	require.NoError(t, err)
	assert.Equal(t, "/report?page=2&size=5", loc.Query().Get("redirect"))
}

func TestMenuListsLayoutPages(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	var names []string
	for _, rec := range table.Menu() {
		names = append(names, rec.Name)
	}
	require.NotEmpty(t, names)
	assert.Equal(t, "device", names[0])
	assert.Contains(t, names, "DictData")
	assert.NotContains(t, names, "login")
	assert.NotContains(t, names, "layout")

	records := table.Records()
	assert.Equal(t, "layout", records[0].Name)
	settings, ok := table.ByName("settings")
	require.True(t, ok)
	assert.Len(t, settings.Children, 7)
}
