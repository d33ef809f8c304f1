package models

import (
	"time"

	"github.com/google/uuid"
)

// Achievement is the immutable record of a milestone award. At most one row
// exists per (user, milestone key); the database enforces this with a unique
// index, which is the final arbiter when concurrent grant attempts race.
type Achievement struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Key             string    `json:"key"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	TxHash          string    `json:"tx_hash"`
	TokenURI        string    `json:"token_uri"`
	Image           string    `json:"image"`
	AchievementType int       `json:"achievement_type"`
	EarnedAt        time.Time `json:"earned_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// MintJob is the payload queued for the background mint worker after a
// session completes with a milestone condition satisfied.
type MintJob struct {
	UserID        uuid.UUID `json:"user_id"`
	WalletAddress string    `json:"wallet_address"`
	MilestoneKey  string    `json:"milestone_key"`
}
