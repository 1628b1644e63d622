package model

import "time"

type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionReady        SessionStatus = "ready"
	SessionFailed       SessionStatus = "failed"
	SessionDisconnected SessionStatus = "disconnected"
)

type Session struct {
	ID        string        `json:"sessionId"`
	Name      string        `json:"name,omitempty"`
	Status    SessionStatus `json:"status"`
	LastError string        `json:"lastError,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
