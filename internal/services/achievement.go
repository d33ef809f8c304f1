package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

// MilestoneKeyFastLearner is granted when a session completes before its
// scheduled duration has elapsed. Inherited naming; a "fast learner" badge for
// cutting a session short is an odd fit, but renaming it would orphan the
// already-minted tokens.
const MilestoneKeyFastLearner = "Fast_Learner"

// MilestoneMeta describes a mintable milestone: display name, IPFS metadata
// URI, and the enum value the achievements contract expects.
type MilestoneMeta struct {
	Name     string
	TokenURI string
	Type     int
}

var milestones = map[string]MilestoneMeta{
	"Collaboration_Champion": {
		Name:     "Collaboration Champion",
		TokenURI: "ipfs://bafkreid73ljt23y2lmjln2daarxnkhd2rjoootqw7r5vguglcqcofsbgru",
		Type:     0,
	},
	"Fast_Learner": {
		Name:     "Fast Learner",
		TokenURI: "ipfs://bafkreicdlio3vjfrdxoveoufojzqe5h55xiuq2but3ihafp6yeztfbnavm",
		Type:     1,
	},
	"Quiz_Conqueror": {
		Name:     "Quiz Conqueror",
		TokenURI: "ipfs://bafkreiff2a5g3ucz4wrc34wrawwcki65vezdiocmggdujcmqrki2f5umba",
		Type:     2,
	},
	"Streak_Scholar": {
		Name:     "Streak Scholar",
		TokenURI: "ipfs://bafkreibyfvldm35myxqa2gab3cbyc5iq5igwd5ctukbwojy2g3lcq4w2im",
		Type:     3,
	},
	"Study_Group_Leader": {
		Name:     "Study Group Leader",
		TokenURI: "ipfs://bafkreidkhjolfhch6drmc2352qbctvixlduprlnuaab6ql43e5353alp7y",
		Type:     4,
	},
	"Subject_Expert": {
		Name:     "Subject Expert",
		TokenURI: "ipfs://bafkreifhmqp7c364plloakm4wpfwzyyuskbhwfgb4qv6i6kceuqwc5rzke",
		Type:     5,
	},
}

// Minter is the external, non-idempotent mint operation. A retry after an
// ambiguous timeout could mint twice on-chain, so the gate never retries it.
type Minter interface {
	Mint(ctx context.Context, walletAddress string, achievementType int, tokenURI string) (string, error)
}

// GrantStore is the grant persistence contract. Create must enforce a
// uniqueness constraint on (user, milestone key) and surface violations as
// repository.ErrDuplicateGrant.
type GrantStore interface {
	FindByUserAndKey(ctx context.Context, userID uuid.UUID, key string) (*models.Achievement, error)
	Create(ctx context.Context, a *models.Achievement) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error)
}

// AchievementService guards milestone issuance: at most one grant ever exists
// per (user, milestone). The pre-mint lookup is an optimization that avoids
// burning gas on an obvious duplicate; the authoritative guarantee is the
// storage uniqueness constraint checked at insert time.
type AchievementService struct {
	store       GrantStore
	minter      Minter
	mintTimeout time.Duration
	locks       *keyedMutex
	clock       func() time.Time
}

func NewAchievementService(store GrantStore, minter Minter, mintTimeout time.Duration) *AchievementService {
	return &AchievementService{
		store:       store,
		minter:      minter,
		mintTimeout: mintTimeout,
		locks:       newKeyedMutex(),
		clock:       time.Now,
	}
}

// Grant issues the milestone to the user, minting the backing token first.
// Failure modes: ErrUnknownMilestone, ErrAlreadyGranted (including races the
// unique index resolved), *MintError (nothing persisted, milestone stays
// grantable). The per-(user, key) lock keeps concurrent local attempts from
// both reaching the mint; it is separate from any session or user lock, so a
// slow mint never blocks session tracking or streak updates.
func (s *AchievementService) Grant(ctx context.Context, userID uuid.UUID, walletAddress, milestoneKey string) (*models.Achievement, error) {
	meta, ok := milestones[milestoneKey]
	if !ok {
		return nil, ErrUnknownMilestone
	}

	unlock := s.locks.Lock(userID.String() + ":" + milestoneKey)
	defer unlock()

	_, err := s.store.FindByUserAndKey(ctx, userID, milestoneKey)
	if err == nil {
		return nil, ErrAlreadyGranted
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// The mint runs detached from the caller's cancellation: a client hanging
	// up (or the server's write timeout closing the connection) must not abort
	// an irreversible mint mid-flight and lose its transaction hash. The
	// deadline still bounds how long the per-milestone lock can be held by a
	// call that never resolves.
	detached := context.WithoutCancel(ctx)
	mintCtx, cancel := context.WithTimeout(detached, s.mintTimeout)
	txHash, err := s.minter.Mint(mintCtx, walletAddress, meta.Type, meta.TokenURI)
	cancel()
	if err != nil {
		return nil, &MintError{Err: err}
	}

	grant := &models.Achievement{
		UserID:          userID,
		Key:             milestoneKey,
		Name:            meta.Name,
		Description:     "NFT awarded for milestone: " + meta.Name,
		TxHash:          txHash,
		TokenURI:        meta.TokenURI,
		Image:           meta.TokenURI + "/image.png",
		AchievementType: meta.Type,
		EarnedAt:        s.clock(),
	}

	// The insert uses the detached context too: once the token is minted, the
	// grant row must land even if the request that triggered it is gone.
	if err := s.store.Create(detached, grant); err != nil {
		if errors.Is(err, repository.ErrDuplicateGrant) {
			// A concurrent grant won the insert race. The token minted here is
			// orphaned on-chain; log-level visibility is handled by callers.
			return nil, ErrAlreadyGranted
		}
		return nil, err
	}
	return grant, nil
}

func (s *AchievementService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	return s.store.ListByUser(ctx, userID)
}
