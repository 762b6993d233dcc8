package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Board is one design board row. Content and Subjects hold serialized JSON.
type Board struct {
	ID           string
	Slug         string
	Title        string
	RealtimeRoom string
	OwnerID      string
	Content      string
	State        string
	GradeLevel   string
	Subjects     string
	Location     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BoardUpdate lists the columns to change; nil fields are kept.
type BoardUpdate struct {
	Title      *string
	Content    *string
	State      *string
	GradeLevel *string
	Subjects   *string
	Location   *string
}

type LessonPlan struct {
	ID            string
	BoardID       string
	AgendaEntryID string
	Subject       string
	PeriodMinutes int
	Content       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
