package orchestrator

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/poseidon-uploader/internal/config"
	"github.com/jonathan/poseidon-uploader/internal/poseidon"
)

// fakeAPI is a scripted CampaignAPI. Error slices are consumed per call; a
// missing entry means success.
type fakeAPI struct {
	userInfo    poseidon.UserInfo
	userInfoErr error

	campaigns        []poseidon.Campaign
	campaignsErr     error
	panicOnCampaigns bool
	campaignsCalls   int

	quotas     []poseidon.Quota // consumed in order; the last entry repeats
	quotaErr   error
	quotaCalls int

	script      *poseidon.ScriptAssignment
	scriptErrs  []error
	scriptCalls int
	scriptLangs []string

	slot     *poseidon.PresignedTarget
	slotErrs []error

	transferErrs  []error
	transferCalls int
	transfers     [][]byte

	confirmErrs  []error
	confirmCalls int
	confirms     []poseidon.ConfirmRequest
}

func errAt(errs []error, call int) error {
	if call < len(errs) {
		return errs[call]
	}
	return nil
}

func (f *fakeAPI) UserInfo(context.Context) (poseidon.UserInfo, error) {
	return f.userInfo, f.userInfoErr
}

func (f *fakeAPI) Campaigns(context.Context) ([]poseidon.Campaign, error) {
	f.campaignsCalls++
	if f.panicOnCampaigns {
		panic("campaign fetch blew up")
	}
	return f.campaigns, f.campaignsErr
}

func (f *fakeAPI) Quota(context.Context, string) (poseidon.Quota, error) {
	call := f.quotaCalls
	f.quotaCalls++
	if f.quotaErr != nil {
		return poseidon.Quota{}, f.quotaErr
	}
	if len(f.quotas) == 0 {
		return poseidon.Quota{}, nil
	}
	if call >= len(f.quotas) {
		call = len(f.quotas) - 1
	}
	return f.quotas[call], nil
}

func (f *fakeAPI) NextScript(_ context.Context, languageCode, _ string) (*poseidon.ScriptAssignment, error) {
	call := f.scriptCalls
	f.scriptCalls++
	f.scriptLangs = append(f.scriptLangs, languageCode)
	if err := errAt(f.scriptErrs, call); err != nil {
		return nil, err
	}
	if f.script != nil {
		return f.script, nil
	}
	return &poseidon.ScriptAssignment{AssignmentID: "as-1", Content: "read me"}, nil
}

func (f *fakeAPI) UploadSlot(_ context.Context, _, _, _ string) (*poseidon.PresignedTarget, error) {
	if err := errAt(f.slotErrs, 0); err != nil {
		return nil, err
	}
	if f.slot != nil {
		return f.slot, nil
	}
	return &poseidon.PresignedTarget{PresignedURL: "https://bucket.example/put", ObjectKey: "obj-1", FileID: "f-1"}, nil
}

func (f *fakeAPI) Transfer(_ context.Context, _ string, data []byte) error {
	call := f.transferCalls
	f.transferCalls++
	f.transfers = append(f.transfers, data)
	return errAt(f.transferErrs, call)
}

func (f *fakeAPI) ConfirmUpload(_ context.Context, req poseidon.ConfirmRequest) error {
	call := f.confirmCalls
	f.confirmCalls++
	f.confirms = append(f.confirms, req)
	return errAt(f.confirmErrs, call)
}

func (f *fakeAPI) PublicIP(context.Context) (string, error) {
	return "203.0.113.7", nil
}

// fakeSynth returns fixed audio bytes, with optional per-call errors.
type fakeSynth struct {
	audio []byte
	errs  []error
	calls int
}

func (f *fakeSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	call := f.calls
	f.calls++
	if err := errAt(f.errs, call); err != nil {
		return nil, err
	}
	if f.audio != nil {
		return f.audio, nil
	}
	return []byte("audio-bytes"), nil
}

// sleepRecorder captures every wait instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TokenFile = "token.txt"
	return cfg
}

func newTestRunner(cfg config.Config, api CampaignAPI, synth *fakeSynth) (*Runner, *sleepRecorder) {
	rec := &sleepRecorder{}
	factory := func(string, *http.Client, *zap.Logger) CampaignAPI { return api }
	runner := NewRunner(cfg, factory, synth, NopReporter{}, zap.NewNop()).
		WithSleeper(rec.sleep).
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return runner, rec
}
