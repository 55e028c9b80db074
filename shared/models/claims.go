package models

import "github.com/golang-jwt/jwt/v5"

// Claims - пользовательские клеймы JWT родительского аккаунта.
type Claims struct {
	ParentUID string `json:"parent_uid"`
	jwt.RegisteredClaims
}
