package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/poseidon-uploader/internal/logging"
	"github.com/jonathan/poseidon-uploader/internal/poseidon"
)

// audioContentType matches what the upload slot was presigned for.
const audioContentType = "audio/webm"

// UploadStatus is the terminal state of one recorded upload attempt.
type UploadStatus string

const (
	StatusSuccess UploadStatus = "Success"
	StatusFailed  UploadStatus = "Failed"
)

// UploadRecord is one line of the end-of-account upload report. Records are
// appended only for attempts that reached the confirm step.
type UploadRecord struct {
	CampaignTitle string
	Status        UploadStatus
}

// runCampaign drives the quota-bounded attempt loop for one campaign.
//
// The loop is double-bounded: it stops when the re-fetched remaining count
// hits zero or when the attempt counter reaches the cap captured at entry.
// The cap is a hard ceiling guarding against a server that keeps reporting
// remaining quota it will not honor.
func (r *Runner) runCampaign(ctx context.Context, client CampaignAPI, campaign poseidon.Campaign, accountTag string) []UploadRecord {
	log := logging.WithTag(r.logger, logging.CampaignTag(accountTag, campaign.Name))

	quota, err := client.Quota(ctx, campaign.VirtualID)
	if err != nil {
		// Treated as zero quota: the campaign is skipped, not the account.
		quota = poseidon.Quota{}
	}
	log.Info("campaign quota",
		zap.String("campaign", campaign.Name),
		zap.Int("remaining", quota.Remaining),
		zap.Int("cap", quota.Cap))

	if quota.Remaining <= 0 {
		log.Info("no remaining quota, skipping campaign")
		return nil
	}

	var records []UploadRecord
	remaining := quota.Remaining
	for attempt := 0; remaining > 0 && attempt < quota.Cap; attempt++ {
		log.Info("processing upload", zap.Int("attempt", attempt+1))

		if record, recorded := r.attemptUpload(ctx, client, campaign, log); recorded {
			records = append(records, record)
		}
		if ctx.Err() != nil {
			break
		}

		refreshed, err := client.Quota(ctx, campaign.VirtualID)
		if err != nil {
			refreshed = poseidon.Quota{}
		}
		remaining = refreshed.Remaining

		if remaining > 0 {
			r.sleep(ctx, r.cfg.UploadPacing())
		}
	}
	return records
}

// attemptUpload runs one fetch-script → synthesize → slot → transfer →
// confirm sequence. A failure at any sub-step aborts only this attempt.
// Attempts that fail before the confirm step produce no record; a confirm
// failure is recorded as Failed because the bytes are already on the server.
func (r *Runner) attemptUpload(ctx context.Context, client CampaignAPI, campaign poseidon.Campaign, log *zap.Logger) (UploadRecord, bool) {
	lang := campaign.Language()

	script, err := client.NextScript(ctx, lang, campaign.VirtualID)
	if err != nil {
		log.Warn("failed to get script", zap.Error(err))
		return UploadRecord{}, false
	}

	audio, err := r.synth.Synthesize(ctx, script.Content, lang)
	if err != nil {
		log.Warn("failed to generate audio", zap.Error(err))
		return UploadRecord{}, false
	}

	fileName := fmt.Sprintf("audio_recording_%d.webm", r.now().UnixMilli())

	slot, err := client.UploadSlot(ctx, campaign.VirtualID, fileName, script.AssignmentID)
	if err != nil {
		log.Warn("failed to get upload slot", zap.Error(err))
		return UploadRecord{}, false
	}

	if err := client.Transfer(ctx, slot.PresignedURL, audio); err != nil {
		log.Warn("failed to transfer audio", zap.Error(err))
		return UploadRecord{}, false
	}

	if err := client.ConfirmUpload(ctx, buildConfirm(campaign, slot, fileName, audio)); err != nil {
		log.Warn("failed to confirm upload", zap.Error(err))
		return UploadRecord{CampaignTitle: campaign.Name, Status: StatusFailed}, true
	}

	log.Info("uploaded successfully", zap.String("file", fileName))
	return UploadRecord{CampaignTitle: campaign.Name, Status: StatusSuccess}, true
}

// buildConfirm assembles the confirmation payload. The digest is computed
// over the exact buffer that was transferred.
func buildConfirm(campaign poseidon.Campaign, slot *poseidon.PresignedTarget, fileName string, audio []byte) poseidon.ConfirmRequest {
	digest := sha256.Sum256(audio)
	return poseidon.ConfirmRequest{
		ContentType: audioContentType,
		ObjectKey:   slot.ObjectKey,
		SHA256Hash:  hex.EncodeToString(digest[:]),
		Filesize:    len(audio),
		FileName:    fileName,
		VirtualID:   slot.FileID,
		CampaignID:  campaign.VirtualID,
	}
}
