package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are carried in both access and refresh tokens; RegisteredClaims.ID is the stored token uuid.
type Claims struct {
	UserID    uuid.UUID `json:"uid"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"adm,omitempty"`
	TokenType string    `json:"typ"`
	jwt.RegisteredClaims
}

// Context keys set by the auth middleware.
const (
	UserIDKey     = "user_id"
	AccessUUIDKey = "access_uuid"
)
