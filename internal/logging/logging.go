// Package logging constructs the shared zap logger and the context-tag
// convention used across the agent. Every log line that pertains to a
// specific account or campaign carries a "context" field such as
// "Account 2/5" or "Account 2/5|Voices of ", so interleaved output from a
// long run stays attributable.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// campaignPrefixLen bounds how much of a campaign name makes it into a tag.
const campaignPrefixLen = 10

// New builds the process logger. Verbose switches the level to debug.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// WithTag returns a child logger whose lines carry the given context tag.
func WithTag(logger *zap.Logger, tag string) *zap.Logger {
	return logger.With(zap.String("context", tag))
}

// AccountTag formats the tag for the i-th of total accounts (1-based display).
func AccountTag(index, total int) string {
	return fmt.Sprintf("Account %d/%d", index+1, total)
}

// CampaignTag extends an account tag with a short campaign-name prefix.
func CampaignTag(accountTag, campaignName string) string {
	prefix := campaignName
	if len(prefix) > campaignPrefixLen {
		prefix = prefix[:campaignPrefixLen]
	}
	return accountTag + "|" + prefix
}
