package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

// MintQueue is the Redis list holding pending achievement-mint jobs. Grants
// triggered by session completion are queued here after the HTTP response has
// already been sent; a failed grant is logged, never surfaced to the request
// that caused it.
const MintQueue = "queue:achievement-mint"

type Pool struct {
	redis        *redis.Client
	achievements *services.AchievementService
	workerCount  int
	stopChan     chan struct{}
}

func NewPool(redisClient *redis.Client, achievements *services.AchievementService, workerCount int) *Pool {
	return &Pool{
		redis:        redisClient,
		achievements: achievements,
		workerCount:  workerCount,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d mint worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Mint worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, MintQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.MintJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Mint worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Dedupe lock so a re-queued job is not minted by two workers at once.
		lockKey := fmt.Sprintf("mint_lock:%s:%s", job.UserID, job.MilestoneKey)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		p.process(ctx, id, job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, id int, job models.MintJob) {
	log.Printf("Mint worker %d: granting %s to user %s", id, job.MilestoneKey, job.UserID)

	grant, err := p.achievements.Grant(ctx, job.UserID, job.WalletAddress, job.MilestoneKey)
	if err != nil {
		// Best-effort policy: every failure is logged, none is fatal to the
		// flow that queued the job.
		var mintErr *services.MintError
		switch {
		case errors.Is(err, services.ErrAlreadyGranted):
			log.Printf("Mint worker %d: %s already granted to user %s, skipping", id, job.MilestoneKey, job.UserID)
		case errors.Is(err, services.ErrUnknownMilestone):
			log.Printf("Mint worker %d: unknown milestone %q in queued job", id, job.MilestoneKey)
		case errors.As(err, &mintErr):
			log.Printf("Mint worker %d: mint failed for user %s milestone %s: %v", id, job.UserID, job.MilestoneKey, mintErr.Err)
		default:
			log.Printf("Mint worker %d: grant failed for user %s milestone %s: %v", id, job.UserID, job.MilestoneKey, err)
		}
		return
	}

	p.publishUpdate(ctx, job, grant)
	log.Printf("Mint worker %d: granted %s to user %s (tx %s)", id, job.MilestoneKey, job.UserID, grant.TxHash)
}

func (p *Pool) publishUpdate(ctx context.Context, job models.MintJob, grant *models.Achievement) {
	msg := models.WSMessage{
		Type: "achievement_earned",
		Payload: models.AchievementEarnedEvent{
			Key:    grant.Key,
			Name:   grant.Name,
			TxHash: grant.TxHash,
			Image:  grant.Image,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, "user_updates:"+job.UserID.String(), data).Err(); err != nil {
		log.Printf("Failed to publish achievement event for user %s: %v", job.UserID, err)
	}
}

// Enqueue queues a mint job for background processing.
func Enqueue(ctx context.Context, redisClient *redis.Client, job models.MintJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal mint job: %w", err)
	}
	return redisClient.RPush(ctx, MintQueue, data).Err()
}
