package models

// SysConfigInfo holds the speech settings of the chat assistant.
type SysConfigInfo struct {
	AsrSetting AsrSetting `json:"asrSetting"`
	TtsSetting TtsSetting `json:"ttsSetting"`
	// ResponseShowType selects how answers are presented, see format.ResponseShowTypeOptions.
	ResponseShowType int                `json:"responseShowType,omitempty"`
	SearchEngines    []SearchEngineInfo `json:"searchEngines,omitempty"`
}

type AsrSetting struct {
	ModelName         string `json:"model_name"`
	Platform          string `json:"platform"`
	MaxRecordDuration int    `json:"max_record_duration"` // seconds
	MaxFileSize       int64  `json:"max_file_size"`       // bytes
}

type TtsSetting struct {
	SynthesizerSide string `json:"synthesizer_side"` // client or server
	ModelName       string `json:"model_name"`
	Platform        string `json:"platform"`
}

type SearchEngineInfo struct {
	Name   string `json:"name"`
	Enable bool   `json:"enable"`
}
