// Package orchestrator drives the multi-account upload workflow.
//
// A cycle processes every account strictly in sequence: resolve the account's
// proxy, snapshot its identity, list its eligible campaigns, then run the
// quota-bounded upload loop for each campaign. Failures at any depth become
// skip decisions, never fatal errors; the account loop is the outermost catch
// boundary, so one poisoned account cannot take down the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/poseidon-uploader/internal/config"
	"github.com/jonathan/poseidon-uploader/internal/credentials"
	"github.com/jonathan/poseidon-uploader/internal/logging"
	"github.com/jonathan/poseidon-uploader/internal/poseidon"
	"github.com/jonathan/poseidon-uploader/internal/request"
	"github.com/jonathan/poseidon-uploader/internal/transport"
	"github.com/jonathan/poseidon-uploader/internal/tts"
)

// ErrNoAccounts ends a cycle when the token file yields no credentials. The
// outer loop logs it and waits for the next cycle; it never kills the process.
var ErrNoAccounts = errors.New("no account tokens loaded")

// CampaignAPI is the slice of the Poseidon client the orchestrator drives.
// Tests substitute a scripted fake.
type CampaignAPI interface {
	UserInfo(ctx context.Context) (poseidon.UserInfo, error)
	Campaigns(ctx context.Context) ([]poseidon.Campaign, error)
	Quota(ctx context.Context, campaignID string) (poseidon.Quota, error)
	NextScript(ctx context.Context, languageCode, campaignID string) (*poseidon.ScriptAssignment, error)
	UploadSlot(ctx context.Context, campaignID, fileName, assignmentID string) (*poseidon.PresignedTarget, error)
	Transfer(ctx context.Context, presignedURL string, data []byte) error
	ConfirmUpload(ctx context.Context, req poseidon.ConfirmRequest) error
	PublicIP(ctx context.Context) (string, error)
}

// ClientFactory builds the API client for one account. The HTTP client
// already carries the account's transport.
type ClientFactory func(token string, httpClient *http.Client, logger *zap.Logger) CampaignAPI

// Reporter renders run progress for humans. The orchestrator only calls it;
// rendering lives in internal/display.
type Reporter interface {
	AccountHeader(tag, ip string, info poseidon.UserInfo)
	Campaigns(campaigns []poseidon.Campaign)
	Uploads(records []UploadRecord)
	AccountStats(tag string, info poseidon.UserInfo)
}

// NopReporter discards all progress output.
type NopReporter struct{}

func (NopReporter) AccountHeader(string, string, poseidon.UserInfo) {}
func (NopReporter) Campaigns([]poseidon.Campaign)                   {}
func (NopReporter) Uploads([]UploadRecord)                          {}
func (NopReporter) AccountStats(string, poseidon.UserInfo)          {}

// Runner executes cycles. All waiting goes through its sleeper so tests can
// run the state machine without wall-clock delay.
type Runner struct {
	cfg      config.Config
	factory  ClientFactory
	synth    tts.Synthesizer
	reporter Reporter
	logger   *zap.Logger
	sleep    request.Sleeper
	rng      *rand.Rand
	now      func() time.Time
}

// NewRunner wires a runner with real time and randomness.
func NewRunner(cfg config.Config, factory ClientFactory, synth tts.Synthesizer, reporter Reporter, logger *zap.Logger) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Runner{
		cfg:      cfg,
		factory:  factory,
		synth:    synth,
		reporter: reporter,
		logger:   logger,
		sleep:    request.SleepContext,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
	}
}

// WithSleeper returns a copy of the runner using the given sleeper.
func (r *Runner) WithSleeper(sleep request.Sleeper) *Runner {
	clone := *r
	clone.sleep = sleep
	return &clone
}

// WithRand returns a copy of the runner drawing jitter from rng.
func (r *Runner) WithRand(rng *rand.Rand) *Runner {
	clone := *r
	clone.rng = rng
	return &clone
}

// WithClock returns a copy of the runner reading time from now.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	clone := *r
	clone.now = now
	return &clone
}

// RunCycle processes every account once. It returns ErrNoAccounts when the
// token file is missing or empty; any other condition is absorbed and logged.
func (r *Runner) RunCycle(ctx context.Context) error {
	cycleLog := r.logger.With(zap.String("cycle", uuid.NewString()))

	tokens, err := credentials.ReadTokens(r.cfg.TokenFile)
	if err != nil {
		cycleLog.Error("failed to load tokens", zap.String("file", r.cfg.TokenFile), zap.Error(err))
		return ErrNoAccounts
	}
	if len(tokens) == 0 {
		cycleLog.Error("token file is empty", zap.String("file", r.cfg.TokenFile))
		return ErrNoAccounts
	}
	cycleLog.Info("loaded tokens", zap.Int("count", len(tokens)))

	proxies := r.loadProxies(cycleLog)

	for i, token := range tokens {
		proxySpec := ""
		if len(proxies) > 0 {
			proxySpec = proxies[i%len(proxies)]
		}
		tag := logging.AccountTag(i, len(tokens))
		if err := r.safeProcessAccount(ctx, token, proxySpec, tag); err != nil {
			logging.WithTag(cycleLog, tag).Error("account processing failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i < len(tokens)-1 {
			r.sleep(ctx, r.cfg.AccountDelay())
		}
	}
	return nil
}

// loadProxies resolves the proxy pool for this cycle. An unusable pool
// degrades to direct connections, never to a failed cycle.
func (r *Runner) loadProxies(log *zap.Logger) []string {
	if !r.cfg.UseProxy {
		return nil
	}
	proxies := credentials.ReadProxies(r.cfg.ProxyFile)
	if len(proxies) == 0 {
		log.Warn("no proxies available, proceeding without proxy", zap.String("file", r.cfg.ProxyFile))
		return nil
	}
	log.Info("loaded proxies", zap.Int("count", len(proxies)))
	return proxies
}

// safeProcessAccount is the isolation boundary: a panicking account is
// converted into an error for the cycle loop to log and move past.
func (r *Runner) safeProcessAccount(ctx context.Context, token, proxySpec, tag string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while processing account: %v", p)
		}
	}()
	return r.processAccount(ctx, token, proxySpec, tag)
}

func (r *Runner) processAccount(ctx context.Context, token, proxySpec, tag string) error {
	log := logging.WithTag(r.logger, tag)
	log.Info("starting account processing")

	if info, ok := credentials.Inspect(token); ok {
		fields := []zap.Field{zap.String("subject", info.Subject)}
		if !info.ExpiresAt.IsZero() {
			fields = append(fields, zap.Time("expires_at", info.ExpiresAt))
		}
		log.Debug("token claims", fields...)
		if info.Expired(r.now()) {
			log.Warn("token appears expired", zap.Time("expires_at", info.ExpiresAt))
		}
	}

	httpClient := r.httpClientFor(proxySpec, log)
	client := r.factory(token, httpClient, log)

	ip, err := client.PublicIP(ctx)
	if err != nil {
		ip = "Error retrieving IP"
	}
	userInfo, err := client.UserInfo(ctx)
	if err != nil {
		userInfo = poseidon.UserInfo{Username: "Unknown", Address: "N/A"}
	}
	r.reporter.AccountHeader(tag, ip, userInfo)

	campaigns, err := client.Campaigns(ctx)
	if err != nil || len(campaigns) == 0 {
		log.Info("no campaigns available")
		return nil
	}
	r.reporter.Campaigns(campaigns)

	log.Info("starting voice upload process", zap.Int("campaigns", len(campaigns)))

	var records []UploadRecord
	for i, campaign := range campaigns {
		records = append(records, r.runCampaign(ctx, client, campaign, tag)...)
		if i < len(campaigns)-1 {
			r.cooldown(ctx, log)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if len(records) > 0 {
		r.reporter.Uploads(records)
	} else {
		log.Info("no uploads performed")
	}

	if finalInfo, err := client.UserInfo(ctx); err == nil {
		r.reporter.AccountStats(tag, finalInfo)
	}
	log.Info("completed account processing")
	return nil
}

// httpClientFor builds the account's HTTP client. Unsupported proxy schemes
// degrade to a direct connection with a warning.
func (r *Runner) httpClientFor(proxySpec string, log *zap.Logger) *http.Client {
	client := &http.Client{Timeout: r.cfg.RequestTimeout()}
	if proxySpec == "" {
		return client
	}
	tr, ok := transport.Select(proxySpec)
	if !ok {
		log.Warn("unsupported proxy, connecting direct", zap.String("proxy", proxySpec))
		return client
	}
	client.Transport = tr
	return client
}

// cooldown waits a randomized span between campaigns of one account so the
// cross-campaign request pattern is not bursty.
func (r *Runner) cooldown(ctx context.Context, log *zap.Logger) {
	minWait, maxWait := r.cfg.CooldownRange()
	wait := minWait
	if span := int64(maxWait - minWait); span > 0 {
		wait += time.Duration(r.rng.Int64N(span + 1))
	}
	log.Info("cooldown before next campaign", zap.Duration("wait", wait))
	r.sleep(ctx, wait)
}
