package jobxredis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robypag/scentsmith/pkg/jobx"
)

// terminalTTL is the backstop expiry for completed/failed job records.
// History lists are the primary retention bound; the TTL catches records
// evicted from a user index but never trimmed from a history list.
const terminalTTL = 24 * time.Hour

// userIndexCap bounds the per-user job index. Stale ids whose job record
// has already been garbage-collected are filtered on read.
const userIndexCap = 500

// RedisQueue implements jobx.Queue backed by Redis. Ready jobs live in
// per-category, per-lane lists; delayed jobs in a per-category sorted set.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a Redis-backed broker.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func jobKey(id string) string       { return "jobs:job:" + id }
func delayedKey(cat string) string  { return "jobs:delayed:" + cat }
func userKey(userID string) string  { return "jobs:user:" + userID }
func historyKey(cat, kind string) string {
	return fmt.Sprintf("jobs:history:%s:%s", cat, kind)
}
func laneKey(cat string, p jobx.Priority) string {
	return fmt.Sprintf("jobs:q:%s:%s", cat, p)
}

// laneKeys returns the ready-list keys for the categories in strict
// priority order: all critical lanes first, then default, then low.
func laneKeys(categories []string) []string {
	keys := make([]string, 0, len(categories)*len(jobx.Lanes()))
	for _, lane := range jobx.Lanes() {
		for _, cat := range categories {
			keys = append(keys, laneKey(cat, lane))
		}
	}
	return keys
}

func (q *RedisQueue) saveJob(ctx context.Context, info *jobx.JobInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", info.ID)
	}
	return q.rdb.Set(ctx, jobKey(info.ID), data, redis.KeepTTL).Err()
}

func newJobInfo(job jobx.Job) *jobx.JobInfo {
	now := time.Now().UTC()
	return &jobx.JobInfo{
		ID:            uuid.New().String(),
		Category:      job.Category,
		UserID:        job.UserID,
		Payload:       job.Payload,
		State:         jobx.StateWaiting,
		Priority:      job.Priority,
		MaxAttempts:   job.MaxAttempts,
		Backoff:       job.Backoff,
		KeepCompleted: job.KeepCompleted,
		KeepFailed:    job.KeepFailed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Enqueue stores the job record and pushes its id onto the ready lane.
func (q *RedisQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	info := newJobInfo(job)

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, jobKey(info.ID), data, 0)
	pipe.LPush(ctx, laneKey(job.Category, job.Priority), info.ID)
	if job.UserID != "" {
		pipe.LPush(ctx, userKey(job.UserID), info.ID)
		pipe.LTrim(ctx, userKey(job.UserID), 0, userIndexCap-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).WithDetail("category", job.Category)
	}

	return info.ID, nil
}

// EnqueueDelayed stores the job record in the delayed set with a future
// due time.
func (q *RedisQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	info := newJobInfo(job)
	info.State = jobx.StateDelayed

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	score := float64(time.Now().UTC().Add(delay).Unix())

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, jobKey(info.ID), data, 0)
	pipe.ZAdd(ctx, delayedKey(job.Category), redis.Z{Score: score, Member: info.ID})
	if job.UserID != "" {
		pipe.LPush(ctx, userKey(job.UserID), info.ID)
		pipe.LTrim(ctx, userKey(job.UserID), 0, userIndexCap-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).
			WithDetail("category", job.Category).
			WithDetail("delay", delay.String())
	}

	return info.ID, nil
}

// GetJob retrieves a job record by id.
func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, redisErrors.New(ErrNotFound).WithDetail("job_id", jobID)
		}
		return nil, redisErrors.NewWithCause(ErrGetJob, err).WithDetail("job_id", jobID)
	}

	var info jobx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", jobID)
	}

	return &info, nil
}

// JobsForUser returns the user's recent jobs, newest first. Ids whose
// record has been garbage-collected are skipped.
func (q *RedisQueue) JobsForUser(ctx context.Context, userID string) ([]jobx.JobInfo, error) {
	ids, err := q.rdb.LRange(ctx, userKey(userID), 0, userIndexCap-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, redisErrors.NewWithCause(ErrUserIndex, err).WithDetail("user_id", userID)
	}

	jobs := make([]jobx.JobInfo, 0, len(ids))
	for _, id := range ids {
		info, err := q.GetJob(ctx, id)
		if err != nil {
			continue // stale index entry
		}
		jobs = append(jobs, *info)
	}

	return jobs, nil
}

// Dequeue blocks on the ready lanes until a job is claimable or timeout
// expires. The pop is the atomic claim: nobody else can receive this id.
func (q *RedisQueue) Dequeue(ctx context.Context, categories []string, timeout time.Duration) (*jobx.JobInfo, error) {
	result, err := q.rdb.BRPop(ctx, timeout, laneKeys(categories)...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // timeout, nothing ready
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, redisErrors.NewWithCause(ErrDequeue, err)
	}

	jobID := result[1]
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	info.State = jobx.StateActive
	info.Attempts++
	info.UpdatedAt = time.Now().UTC()

	if err := q.saveJob(ctx, info); err != nil {
		return nil, redisErrors.NewWithCause(ErrDequeue, err).WithDetail("job_id", jobID)
	}

	return info, nil
}

// trimScript bounds a history list and deletes the job records that fall
// off the end, so terminal history stays finite.
var trimScript = redis.NewScript(`
local history_key = KEYS[1]
local keep = tonumber(ARGV[1])
local removed = 0
while redis.call('LLEN', history_key) > keep do
    local id = redis.call('RPOP', history_key)
    if not id then break end
    redis.call('DEL', 'jobs:job:' .. id)
    removed = removed + 1
end
return removed
`)

func (q *RedisQueue) archive(ctx context.Context, info *jobx.JobInfo, kind string, keep int) error {
	if keep <= 0 {
		keep = 100
	}

	pipe := q.rdb.Pipeline()
	pipe.LPush(ctx, historyKey(info.Category, kind), info.ID)
	pipe.Expire(ctx, jobKey(info.ID), terminalTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return trimScript.Run(ctx, q.rdb,
		[]string{historyKey(info.Category, kind)},
		strconv.Itoa(keep),
	).Err()
}

// Complete marks a job completed and archives it under the bounded
// completed history.
func (q *RedisQueue) Complete(ctx context.Context, jobID string) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	info.State = jobx.StateCompleted
	info.UpdatedAt = time.Now().UTC()

	if err := q.saveJob(ctx, info); err != nil {
		return redisErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", jobID)
	}
	if err := q.archive(ctx, info, "completed", info.KeepCompleted); err != nil {
		return redisErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", jobID)
	}

	return nil
}

// Fail records a failed attempt. Terminal errors and exhausted retry
// budgets move the job to the failed history; otherwise it is left in
// the delayed state for Retry to schedule.
func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string, terminal bool) (bool, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}

	shouldRetry := !terminal && info.Attempts < info.MaxAttempts

	if shouldRetry {
		info.State = jobx.StateDelayed
	} else {
		info.State = jobx.StateFailed
	}
	info.Error = errMsg
	info.UpdatedAt = time.Now().UTC()

	if err := q.saveJob(ctx, info); err != nil {
		return false, redisErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
	}

	if !shouldRetry {
		if err := q.archive(ctx, info, "failed", info.KeepFailed); err != nil {
			return false, redisErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
		}
	}

	return shouldRetry, nil
}

// Retry schedules a failed job to become ready again after delay.
func (q *RedisQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	score := float64(time.Now().UTC().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, delayedKey(info.Category), redis.Z{
		Score:  score,
		Member: jobID,
	}).Err(); err != nil {
		return redisErrors.NewWithCause(ErrRetry, err).WithDetail("job_id", jobID)
	}

	return nil
}

// promoteScript atomically moves due jobs from the delayed set to their
// priority lane, flipping their state back to waiting. The job record is
// JSON so the lane is read with cjson.
var promoteScript = redis.NewScript(`
local delayed_key = KEYS[1]
local category = ARGV[1]
local now = tonumber(ARGV[2])
local ids = redis.call('ZRANGEBYSCORE', delayed_key, '-inf', now)
for _, id in ipairs(ids) do
    local raw = redis.call('GET', 'jobs:job:' .. id)
    if raw then
        local job = cjson.decode(raw)
        job['state'] = 'waiting'
        redis.call('SET', 'jobs:job:' .. id, cjson.encode(job), 'KEEPTTL')
        redis.call('LPUSH', 'jobs:q:' .. category .. ':' .. job['priority'], id)
    end
end
redis.call('ZREMRANGEBYSCORE', delayed_key, '-inf', now)
return #ids
`)

// PromoteDelayed moves due delayed jobs back onto the ready lanes.
func (q *RedisQueue) PromoteDelayed(ctx context.Context, categories []string) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)

	for _, cat := range categories {
		err := promoteScript.Run(ctx, q.rdb,
			[]string{delayedKey(cat)},
			cat, now,
		).Err()
		if err != nil && err != redis.Nil {
			return redisErrors.NewWithCause(ErrPromote, err).WithDetail("category", cat)
		}
	}

	return nil
}
