package poseidon

import "fmt"

// Campaign types and flags the orchestrator filters on.
const (
	CampaignTypeAudio     = "AUDIO"
	registrationConfirmed = "CONFIRMED"
)

// Campaign is a unit of upload work defined by the remote service.
type Campaign struct {
	VirtualID          string   `json:"virtual_id"`
	Name               string   `json:"campaign_name"`
	SupportedLanguages []string `json:"supported_languages"`
	Tags               []string `json:"tags"`
	RegistrationStatus string   `json:"registration_status"`
	CampaignType       string   `json:"campaign_type"`
	IsScripted         bool     `json:"is_scripted"`
}

// Active reports whether the account's registration for the campaign is
// confirmed. Used for display only; eligibility is type + scripted.
func (c Campaign) Active() bool {
	return c.RegistrationStatus == registrationConfirmed
}

// Language returns the campaign's first supported language code, or a
// placeholder when the server sent none.
func (c Campaign) Language() string {
	if len(c.SupportedLanguages) == 0 {
		return "N/A"
	}
	return c.SupportedLanguages[0]
}

// Quota holds the server-tracked upload counters for one (account, campaign)
// pair. The server is the source of truth; the orchestrator re-fetches it
// after every attempt instead of decrementing locally.
type Quota struct {
	Remaining int `json:"remaining"`
	Cap       int `json:"cap"`
}

// ScriptAssignment is one script handed out for exactly one upload attempt.
type ScriptAssignment struct {
	AssignmentID string
	Content      string
}

// PresignedTarget is a short-lived, single-use upload destination.
type PresignedTarget struct {
	PresignedURL string `json:"presigned_url"`
	ObjectKey    string `json:"object_key"`
	FileID       string `json:"file_id"`
}

// UserInfo is the identity snapshot shown before and after an account's pass.
type UserInfo struct {
	Username string
	Points   float64
	Address  string
}

// ConfirmRequest finalizes an upload. SHA256Hash must be computed over the
// exact byte buffer that was transferred.
type ConfirmRequest struct {
	ContentType string `json:"content_type"`
	ObjectKey   string `json:"object_key"`
	SHA256Hash  string `json:"sha256_hash"`
	Filesize    int    `json:"filesize"`
	FileName    string `json:"file_name"`
	VirtualID   string `json:"virtual_id"`
	CampaignID  string `json:"campaign_id"`
}

// ClientError carries the operation name and HTTP status of a failed API
// call. Callers match on it with errors.As and turn it into a skip decision;
// it never aborts a run on its own.
type ClientError struct {
	Op      string
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
