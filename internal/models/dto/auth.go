package dto

import "github.com/hongminglow/therapy-console/internal/models"

type RegisterRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest carries console credentials. Code and UUID are the optional captcha pair.
type LoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type UserInfoResponse = models.UserInfo
