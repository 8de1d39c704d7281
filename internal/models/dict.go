package models

// DictType is a dictionary key, e.g. "sys_device_status".
type DictType struct {
	DictID   int64  `json:"dictId,omitempty"`
	DictName string `json:"dictName,omitempty"`
	DictType string `json:"dictType,omitempty"`
	Status   string `json:"status,omitempty"` // "0" active, "1" disabled
	Remark   string `json:"remark,omitempty"`
	// DateRange only filters list queries and is never stored.
	DateRange []string `json:"dateRange,omitempty"`
}

// DictData is one value of a dictionary.
type DictData struct {
	DictCode  int64  `json:"dictCode,omitempty"`
	DictType  string `json:"dictType,omitempty"`
	DictLabel string `json:"dictLabel,omitempty"`
	DictValue string `json:"dictValue,omitempty"`
	DictSort  int    `json:"dictSort,omitempty"`
	CSSType   string `json:"cssType,omitempty"`
	Status    string `json:"status,omitempty"`
	Remark    string `json:"remark,omitempty"`
}

// DictDataCss is the select-option shape of a dictionary value.
type DictDataCss struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	DictType string `json:"dictType"`
	CSSType  string `json:"cssType,omitempty"`
}

const (
	DictStatusActive   = "0"
	DictStatusDisabled = "1"
)
