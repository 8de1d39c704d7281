package models

import "time"

// User captures the identity fields the console displays for the signed-in account.
type User struct {
	ID           int64     `json:"userId"`
	UserName     string    `json:"userName"`
	NickName     string    `json:"nickName,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phonenumber,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Role         string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createTime"`
}

// DisplayName falls back to a fixed placeholder when the account has no user name.
func (u User) DisplayName() string {
	if u.NickName != "" {
		return u.NickName
	}
	if u.UserName != "" {
		return u.UserName
	}
	return DefaultDisplayName
}

// DefaultDisplayName is shown for accounts without a user name.
const DefaultDisplayName = "默认"

// UserInfo is the payload of the identity lookup.
type UserInfo struct {
	User        User     `json:"user"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}
