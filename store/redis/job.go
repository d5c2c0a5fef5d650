package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/id"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

func unixMs(t time.Time) int64 { return t.UnixMilli() }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %w", jobs.ErrStoreUnavailable, op, err)
}

// Enqueue stores the record and places its id on the wait list, or in
// the delayed set when RunAt is in the future.
func (s *Store) Enqueue(ctx context.Context, j *job.Job) error {
	now := time.Now().UTC()
	j.ID = id.NewJobID()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.RunAt.IsZero() {
		j.RunAt = now
	}
	delayed := j.RunAt.After(now)
	j.State = job.StateWaiting
	if delayed {
		j.State = job.StateDelayed
	}

	body, err := s.codec.Marshal(j)
	if err != nil {
		return fmt.Errorf("jobs/redis: encode job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.keys.job(j.Type, j.ID),
		"body", body,
		"state", string(j.State),
		"attempts", j.Attempts,
		"progress", 0,
	)
	switch {
	case delayed:
		pipe.ZAdd(ctx, s.keys.delayed(j.Type), goredis.Z{Score: float64(unixMs(j.RunAt)), Member: j.ID})
	case j.PriorityHint > 0:
		pipe.RPush(ctx, s.keys.wait(j.Type), j.ID)
	default:
		pipe.LPush(ctx, s.keys.wait(j.Type), j.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("enqueue", err)
	}
	return nil
}

// Dequeue promotes due delayed jobs and claims the head of the wait list.
func (s *Store) Dequeue(ctx context.Context, t job.Type, workerID string) (*job.Job, error) {
	now := unixMs(time.Now())
	jobID, err := claimScript.Run(ctx, s.client,
		[]string{s.keys.delayed(t), s.keys.wait(t), s.keys.active(t)},
		now, s.promoteBatch, s.keys.jobPrefix(t), workerID,
	).Text()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("claim", err)
	}

	j, err := s.Get(ctx, t, jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		s.logger.Warn("claimed job without record",
			slog.String("job_id", jobID),
			slog.String("job_type", string(t)),
		)
		s.client.ZRem(ctx, s.keys.active(t), jobID)
		return nil, nil
	}
	return j, err
}

// Get reads and decodes one job record.
func (s *Store) Get(ctx context.Context, t job.Type, jobID string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, s.keys.job(t, jobID)).Result()
	if err != nil {
		return nil, storeErr("get", err)
	}
	if len(vals) == 0 {
		return nil, jobs.ErrJobNotFound
	}
	return s.decode(vals)
}

// decode unmarshals the body and overlays the mutable scalar fields the
// scripts maintain.
func (s *Store) decode(vals map[string]string) (*job.Job, error) {
	var j job.Job
	if err := s.codec.Unmarshal([]byte(vals["body"]), &j); err != nil {
		return nil, fmt.Errorf("jobs/redis: decode job (%s): %w", s.codec.Name(), err)
	}
	if v, ok := vals["state"]; ok {
		j.State = job.State(v)
	}
	if v, ok := vals["attempts"]; ok {
		j.Attempts, _ = strconv.Atoi(v)
	}
	if v, ok := vals["progress"]; ok {
		j.Progress, _ = strconv.Atoi(v)
	}
	j.WorkerID = vals["worker"]
	j.StartedAt = parseMs(vals["started_at"], j.StartedAt)
	j.HeartbeatAt = parseMs(vals["heartbeat_at"], nil)
	return &j, nil
}

func parseMs(v string, fallback *time.Time) *time.Time {
	if v == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// Complete records the result and moves the job to the completed set.
func (s *Store) Complete(ctx context.Context, j *job.Job, result []byte) error {
	now := time.Now().UTC()
	j.State = job.StateCompleted
	j.Result = append([]byte(nil), result...)
	j.Progress = 100
	j.CompletedAt = &now
	j.HeartbeatAt = nil

	if err := s.finish(ctx, j, s.keys.completed(j.Type), unixMs(now)); err != nil {
		return err
	}
	s.trim(ctx, j.Type, s.keys.completed(j.Type), s.retention.Completed)
	return nil
}

// Fail records cause and schedules a retry or moves the job to failed.
func (s *Store) Fail(ctx context.Context, j *job.Job, cause error, delay time.Duration) (job.State, error) {
	now := time.Now().UTC()
	j.LastError = cause.Error()
	j.HeartbeatAt = nil
	j.WorkerID = ""

	next := job.ResolveFailure(j, jobs.IsPermanent(cause))
	j.State = next

	target, score := s.keys.failed(j.Type), unixMs(now)
	if next == job.StateDelayed {
		j.RunAt = now.Add(delay)
		target, score = s.keys.delayed(j.Type), unixMs(j.RunAt)
	} else {
		j.CompletedAt = &now
	}

	if err := s.finish(ctx, j, target, score); err != nil {
		return "", err
	}
	if next == job.StateFailed {
		s.trim(ctx, j.Type, s.keys.failed(j.Type), s.retention.Failed)
	}
	return next, nil
}

func (s *Store) finish(ctx context.Context, j *job.Job, target string, score int64) error {
	body, err := s.codec.Marshal(j)
	if err != nil {
		return fmt.Errorf("jobs/redis: encode job: %w", err)
	}
	moved, err := finishScript.Run(ctx, s.client,
		[]string{s.keys.active(j.Type), target, s.keys.job(j.Type, j.ID)},
		j.ID, score, string(j.State), body,
	).Int()
	if err != nil {
		return storeErr("finish", err)
	}
	if moved == 0 {
		return fmt.Errorf("%w: job %s is not active", jobs.ErrInvalidState, j.ID)
	}
	return nil
}

// trim deletes the oldest terminal jobs beyond limit. Failures are logged;
// the job that triggered the trim has already been recorded.
func (s *Store) trim(ctx context.Context, t job.Type, set string, limit int) {
	if limit <= 0 {
		return
	}
	n, err := s.client.ZCard(ctx, set).Result()
	if err != nil || n <= int64(limit) {
		return
	}
	excess := n - int64(limit)
	ids, err := s.client.ZRange(ctx, set, 0, excess-1).Result()
	if err != nil {
		s.logger.Warn("retention: list terminal jobs", slog.String("error", err.Error()))
		return
	}

	pipe := s.client.TxPipeline()
	for _, jobID := range ids {
		pipe.Del(ctx, s.keys.job(t, jobID))
	}
	pipe.ZRem(ctx, set, toMembers(ids)...)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("retention: trim terminal jobs",
			slog.String("job_type", string(t)),
			slog.String("error", err.Error()),
		)
	}
}

func toMembers(ids []string) []any {
	out := make([]any, len(ids))
	for i, v := range ids {
		out[i] = v
	}
	return out
}

// Release returns an active job to the head of the wait list and refunds
// its attempt.
func (s *Store) Release(ctx context.Context, j *job.Job) error {
	moved, err := releaseScript.Run(ctx, s.client,
		[]string{s.keys.active(j.Type), s.keys.wait(j.Type), s.keys.job(j.Type, j.ID)},
		j.ID,
	).Int()
	if err != nil {
		return storeErr("release", err)
	}
	if moved == 0 {
		return fmt.Errorf("%w: job %s is not active", jobs.ErrInvalidState, j.ID)
	}
	return nil
}

// SetProgress records progress for an active job.
func (s *Store) SetProgress(ctx context.Context, t job.Type, jobID string, pct int) error {
	return s.touch(ctx, t, jobID, "progress", min(max(pct, 0), 100), "")
}

// Heartbeat refreshes the active-set score and heartbeat field.
func (s *Store) Heartbeat(ctx context.Context, t job.Type, jobID string) error {
	now := unixMs(time.Now())
	return s.touch(ctx, t, jobID, "heartbeat_at", now, strconv.FormatInt(now, 10))
}

func (s *Store) touch(ctx context.Context, t job.Type, jobID, field string, value any, score string) error {
	ok, err := touchScript.Run(ctx, s.client,
		[]string{s.keys.active(t), s.keys.job(t, jobID)},
		jobID, field, value, score,
	).Int()
	if err != nil {
		return storeErr("touch", err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: job %s is not active", jobs.ErrInvalidState, jobID)
	}
	return nil
}

// ReapStale resolves active jobs with an expired heartbeat. Jobs with
// attempts left go back to the wait list; the rest fail with
// job.LostWorkerError.
func (s *Store) ReapStale(ctx context.Context, t job.Type, threshold time.Duration) (int, error) {
	cutoff := unixMs(time.Now().Add(-threshold))
	ids, err := s.client.ZRangeByScore(ctx, s.keys.active(t), &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, storeErr("reap", err)
	}

	reaped, failed := 0, 0
	for _, jobID := range ids {
		j, err := s.Get(ctx, t, jobID)
		if errors.Is(err, jobs.ErrJobNotFound) {
			s.client.ZRem(ctx, s.keys.active(t), jobID)
			continue
		}
		if err != nil {
			return reaped, err
		}

		if job.ResolveFailure(j, false) == job.StateFailed {
			now := time.Now().UTC()
			j.State = job.StateFailed
			j.LastError = job.LostWorkerError
			j.CompletedAt = &now
			j.HeartbeatAt = nil
			j.WorkerID = ""
			err := s.finish(ctx, j, s.keys.failed(t), unixMs(now))
			if errors.Is(err, jobs.ErrInvalidState) {
				continue
			}
			if err != nil {
				return reaped, err
			}
			reaped++
			failed++
			continue
		}

		moved, err := requeueScript.Run(ctx, s.client,
			[]string{s.keys.active(t), s.keys.wait(t), s.keys.job(t, jobID)},
			jobID, cutoff,
		).Int()
		if err != nil {
			return reaped, storeErr("reap", err)
		}
		reaped += moved
	}
	if failed > 0 {
		s.trim(ctx, t, s.keys.failed(t), s.retention.Failed)
	}
	return reaped, nil
}

// Counts reads the five queue counters in one round trip.
func (s *Store) Counts(ctx context.Context, t job.Type) (job.StatsView, error) {
	pipe := s.client.Pipeline()
	waiting := pipe.LLen(ctx, s.keys.wait(t))
	active := pipe.ZCard(ctx, s.keys.active(t))
	completed := pipe.ZCard(ctx, s.keys.completed(t))
	failed := pipe.ZCard(ctx, s.keys.failed(t))
	delayed := pipe.ZCard(ctx, s.keys.delayed(t))
	if _, err := pipe.Exec(ctx); err != nil {
		return job.StatsView{}, storeErr("counts", err)
	}
	return job.StatsView{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Succeeded: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val(),
	}, nil
}
