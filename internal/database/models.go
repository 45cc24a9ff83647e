package database

import (
	"database/sql"
	"time"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	DisplayName       string
	ResetToken        sql.NullString
	ResetTokenExpires sql.NullTime
	LastActive        sql.NullTime
	CreatedAt         time.Time
}

type Table struct {
	ID         int64
	Name       string
	InviteCode string
	CreatedBy  sql.NullInt64
	PromptTime string
	CreatedAt  time.Time
}

type Member struct {
	TableID     int64
	UserID      int64
	Role        string
	DisplayName string
	Username    string
	JoinedAt    time.Time
}

// Membership is a table as seen from one of its members.
type Membership struct {
	Table
	Role        string
	DisplayName string
	JoinedAt    time.Time
	MemberCount int
}

type Prompt struct {
	ID        int64
	TableID   int64
	Text      string
	Date      string
	IsCustom  bool
	CreatedAt time.Time
}

type Response struct {
	ID        int64
	PromptID  int64
	UserID    int64
	Text      string
	CreatedAt time.Time
	EditedAt  sql.NullTime
}

type ResponseWithAuthor struct {
	Response
	DisplayName string
	Username    string
}
