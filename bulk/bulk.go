// Package bulk implements the notification-bulk-send processor: it
// validates and deduplicates recipients, sends in rate-limited chunks and
// retries each item with exponential backoff.
package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/backoff"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/persistence"
)

// Item statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Error stages.
const (
	StageValidation = "validation"
	StageDelivery   = "delivery"
)

// Config tunes the pipeline.
type Config struct {
	// MaxBatchSize is the number of recipients sent concurrently.
	MaxBatchSize int
	// RatePerMinute bounds sustained sends; the pause after a chunk is
	// one minute / RatePerMinute * chunk size. Zero disables the pause.
	RatePerMinute int
	// RetryAttempts is the total number of send attempts per recipient.
	RetryAttempts int
	// Backoff gives the wait after failed attempt n.
	Backoff backoff.Strategy
}

// DefaultConfig returns batches of 10, 60 sends per minute and 3 attempts
// spaced 2s, 4s apart.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:  10,
		RatePerMinute: 60,
		RetryAttempts: 3,
		Backoff:       backoff.PowerOfTwoSeconds(),
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxBatchSize < 1 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.RatePerMinute < 0 {
		c.RatePerMinute = 0
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.Backoff == nil {
		c.Backoff = d.Backoff
	}
	return c
}

// chunkDelay is the pause after a chunk of n items.
func (c Config) chunkDelay(n int) time.Duration {
	if c.RatePerMinute <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / float64(c.RatePerMinute) * float64(n))
}

// Payload is the body of a notification-bulk-send job.
type Payload struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	CampaignID string   `json:"campaignId,omitempty"`
}

// ItemResult is the delivery outcome for one deduplicated recipient.
type ItemResult struct {
	Recipient   string `json:"recipient"`
	Status      string `json:"status"`
	ProviderRef string `json:"providerRef,omitempty"`
	Error       string `json:"error,omitempty"`
	Attempts    int    `json:"attempts"`
}

// ItemError describes a recipient that was rejected or never delivered.
type ItemError struct {
	Recipient string `json:"recipient"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

// Summary is the result of a bulk send. Total counts the deduplicated
// valid recipients; Invalid ones are never counted as Failed.
type Summary struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Invalid    int          `json:"invalid"`
	Duplicates int          `json:"duplicates"`
	Results    []ItemResult `json:"results"`
	Errors     []ItemError  `json:"errors"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConfig sets the batching, rate and retry configuration.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) { p.cfg = cfg.normalized() }
}

// WithValidator replaces the default PhoneValidator.
func WithValidator(v Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithCampaignRecorder records totals for payloads with a campaign id.
func WithCampaignRecorder(r persistence.CampaignRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSleep replaces the timer used for backoff and rate-limit pauses.
func WithSleep(fn SleepFunc) Option {
	return func(p *Pipeline) { p.sleep = fn }
}

// Pipeline is the notification-bulk-send processor.
type Pipeline struct {
	sender    Sender
	validator Validator
	recorder  persistence.CampaignRecorder
	cfg       Config
	logger    *slog.Logger
	sleep     SleepFunc
}

var _ job.Processor = (*Pipeline)(nil)

// NewPipeline returns a pipeline delivering through sender.
func NewPipeline(sender Sender, opts ...Option) *Pipeline {
	p := &Pipeline{
		sender:    sender,
		validator: NewPhoneValidator(),
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
		sleep:     sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process implements job.Processor.
func (p *Pipeline) Process(ctx context.Context, raw json.RawMessage) (any, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, jobs.Permanent(fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err))
	}
	if payload.Message == "" {
		return nil, jobs.Permanent(fmt.Errorf("%w: message must not be empty", jobs.ErrInvalidPayload))
	}

	summary, err := p.Dispatch(ctx, payload.Recipients, payload.Message)
	if err != nil {
		return nil, err
	}

	if payload.CampaignID != "" && p.recorder != nil {
		// Sends already happened; a recording failure must not retry them.
		if recErr := p.recorder.RecordDispatch(context.WithoutCancel(ctx), payload.CampaignID, summary.Successful, summary.Failed); recErr != nil {
			p.logger.Warn("failed to record campaign dispatch",
				slog.String("campaign_id", payload.CampaignID),
				slog.String("error", recErr.Error()),
			)
		}
	}
	return summary, nil
}

// Dispatch sends message to recipients and returns the summary once every
// item has resolved. It fails only when ctx is done.
func (p *Pipeline) Dispatch(ctx context.Context, recipients []string, message string) (Summary, error) {
	summary := Summary{Results: []ItemResult{}, Errors: []ItemError{}}

	unique := make([]string, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, raw := range recipients {
		v := p.validator.ValidateRecipient(raw)
		if !v.Valid {
			summary.Invalid++
			summary.Errors = append(summary.Errors, ItemError{Recipient: raw, Stage: StageValidation, Error: v.Reason})
			continue
		}
		if _, dup := seen[v.Normalized]; dup {
			summary.Duplicates++
			continue
		}
		seen[v.Normalized] = struct{}{}
		unique = append(unique, v.Normalized)
	}
	summary.Total = len(unique)
	if summary.Total == 0 {
		return summary, nil
	}

	results := make([]ItemResult, len(unique))
	for start := 0; start < len(unique); start += p.cfg.MaxBatchSize {
		end := min(start+p.cfg.MaxBatchSize, len(unique))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				res, err := p.deliver(gctx, unique[i], message)
				results[i] = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return Summary{}, err
		}

		if err := job.ReportProgress(ctx, end*100/len(unique)); err != nil {
			p.logger.Debug("bulk progress update failed", slog.String("error", err.Error()))
		}
		p.logger.Debug("bulk chunk sent",
			slog.Int("from", start),
			slog.Int("to", end),
			slog.Int("total", len(unique)),
		)

		if end < len(unique) {
			if err := p.sleep(ctx, p.cfg.chunkDelay(end-start)); err != nil {
				return Summary{}, err
			}
		}
	}

	for _, res := range results {
		summary.Results = append(summary.Results, res)
		if res.Status == StatusSent {
			summary.Successful++
			continue
		}
		summary.Failed++
		summary.Errors = append(summary.Errors, ItemError{Recipient: res.Recipient, Stage: StageDelivery, Error: res.Error})
	}
	return summary, nil
}

// deliver sends to one recipient with retries. The returned error is
// non-nil only when ctx is done.
func (p *Pipeline) deliver(ctx context.Context, recipient, message string) (ItemResult, error) {
	res := ItemResult{Recipient: recipient, Status: StatusFailed}
	for attempt := 1; attempt <= p.cfg.RetryAttempts; attempt++ {
		res.Attempts = attempt

		out, err := p.sender.Send(ctx, recipient, message)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return res, err
			}
			res.Error = err.Error()
		case !out.Success:
			res.Error = out.Error
			if res.Error == "" {
				res.Error = "provider rejected message"
			}
		default:
			res.Status = StatusSent
			res.ProviderRef = out.ProviderRef
			res.Error = ""
			return res, nil
		}

		if attempt == p.cfg.RetryAttempts {
			break
		}
		if err := p.sleep(ctx, p.cfg.Backoff.Delay(attempt)); err != nil {
			return res, err
		}
	}

	p.logger.Warn("recipient delivery failed",
		slog.String("recipient", recipient),
		slog.Int("attempts", res.Attempts),
		slog.String("error", res.Error),
	)
	return res, nil
}
