package models

import "github.com/google/uuid"

// WebSocket message types pushed over the per-user updates channel.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type AchievementEarnedEvent struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	TxHash string `json:"tx_hash"`
	Image  string `json:"image"`
}

type SessionEvent struct {
	SessionID           uuid.UUID     `json:"session_id"`
	Status              SessionStatus `json:"status"`
	TotalElapsedSeconds int64         `json:"total_elapsed_seconds"`
}

type StreakEvent struct {
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
