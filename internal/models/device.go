package models

// Device is a headset registered on the platform.
type Device struct {
	ID              int64  `json:"id,omitempty"`
	PicoNumber      string `json:"picoNumber,omitempty"`
	Status          int    `json:"status"`
	DelFlag         int    `json:"delFlag"`
	CreatedUserID   int64  `json:"createdUserId,omitempty"`
	CreatedUserName string `json:"createdUserName,omitempty"`
	CreatedTime     string `json:"createdTime,omitempty"`
	UpdatedTime     string `json:"updatedTime,omitempty"`
}

// Device status values.
const (
	DeviceIdle  = 0
	DeviceInUse = 1
)
