// Package poseidon is the typed client for the Poseidon campaign/upload API.
//
// Every operation is a thin wrapper over the retrying executor: build the URL
// and payload, run the request, decode the response. Failures come back as a
// typed *ClientError and are logged here; the orchestrator decides what to
// skip. Nothing in this package panics or aborts a run.
package poseidon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/jonathan/poseidon-uploader/internal/request"
)

// ipEndpoint reports the connection's public address for diagnostics.
const ipEndpoint = "https://api.ipify.org?format=json"

// audioContentType is the MIME type of every uploaded recording.
const audioContentType = "audio/webm"

// Client issues authenticated operations for one account. It is built per
// account with that account's token and proxy transport.
type Client struct {
	base   string
	token  string
	http   *http.Client
	exec   *request.Executor
	logger *zap.Logger
}

// NewClient builds a client for one account. httpClient carries the account's
// transport (direct or proxied).
func NewClient(base, token string, httpClient *http.Client, exec *request.Executor, logger *zap.Logger) *Client {
	return &Client{
		base:   base,
		token:  token,
		http:   httpClient,
		exec:   exec,
		logger: logger,
	}
}

func (c *Client) fail(op string, out request.Outcome) error {
	err := &ClientError{Op: op, Status: out.Status, Message: out.Message}
	c.logger.Error("api call failed", zap.String("op", op), zap.Int("status", out.Status), zap.String("message", out.Message))
	return err
}

func (c *Client) get(ctx context.Context, op, url string, v any) error {
	out := c.exec.Do(ctx, c.http, request.Get, url, nil, request.BrowserHeaders(c.token))
	if !out.OK {
		return c.fail(op, out)
	}
	if err := json.Unmarshal(out.Body, v); err != nil {
		return c.fail(op, request.Outcome{Message: fmt.Sprintf("decode response: %v", err), Status: out.Status})
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, url string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &ClientError{Op: op, Message: fmt.Sprintf("encode payload: %v", err)}
	}
	header := request.BrowserHeaders(c.token)
	header.Set("content-type", "application/json")
	out := c.exec.Do(ctx, c.http, request.Post, url, body, header)
	if !out.OK {
		return c.fail(op, out)
	}
	if v != nil {
		if err := json.Unmarshal(out.Body, v); err != nil {
			return c.fail(op, request.Outcome{Message: fmt.Sprintf("decode response: %v", err), Status: out.Status})
		}
	}
	return nil
}

// UserInfo fetches the account's identity. The wallet address defaults to
// "N/A" when the server omits it.
func (c *Client) UserInfo(ctx context.Context) (UserInfo, error) {
	var wire struct {
		Name          string  `json:"name"`
		Points        float64 `json:"points"`
		DynamicWallet string  `json:"dynamic_wallet"`
	}
	if err := c.get(ctx, "fetch user info", c.base+"/users/me", &wire); err != nil {
		return UserInfo{}, err
	}
	info := UserInfo{Username: wire.Name, Points: wire.Points, Address: wire.DynamicWallet}
	if info.Address == "" {
		info.Address = "N/A"
	}
	return info, nil
}

// Campaigns lists the campaigns this agent can work: audio campaigns with
// scripted content. The filter is applied once here, at fetch time.
func (c *Client) Campaigns(ctx context.Context) ([]Campaign, error) {
	var wire struct {
		Items []Campaign `json:"items"`
	}
	if err := c.get(ctx, "fetch campaigns", c.base+"/campaigns?page=1&size=100", &wire); err != nil {
		return nil, err
	}
	var eligible []Campaign
	for _, campaign := range wire.Items {
		if campaign.CampaignType == CampaignTypeAudio && campaign.IsScripted {
			eligible = append(eligible, campaign)
		}
	}
	return eligible, nil
}

// Quota fetches the remaining/cap counters for one campaign.
func (c *Client) Quota(ctx context.Context, campaignID string) (Quota, error) {
	var quota Quota
	url := fmt.Sprintf("%s/campaigns/%s/access", c.base, campaignID)
	if err := c.get(ctx, "fetch quota", url, &quota); err != nil {
		return Quota{}, err
	}
	return quota, nil
}

// NextScript fetches the next script assignment for a campaign in the given
// language.
func (c *Client) NextScript(ctx context.Context, languageCode, campaignID string) (*ScriptAssignment, error) {
	var wire struct {
		AssignmentID string `json:"assignment_id"`
		Script       struct {
			Content string `json:"content"`
		} `json:"script"`
	}
	u := fmt.Sprintf("%s/scripts/next?language_code=%s&campaign_id=%s",
		c.base, url.QueryEscape(languageCode), url.QueryEscape(campaignID))
	if err := c.get(ctx, "fetch next script", u, &wire); err != nil {
		return nil, err
	}
	return &ScriptAssignment{AssignmentID: wire.AssignmentID, Content: wire.Script.Content}, nil
}

// UploadSlot requests a presigned upload target for one recording.
func (c *Client) UploadSlot(ctx context.Context, campaignID, fileName, assignmentID string) (*PresignedTarget, error) {
	payload := struct {
		ContentType        string `json:"content_type"`
		FileName           string `json:"file_name"`
		ScriptAssignmentID string `json:"script_assignment_id"`
	}{
		ContentType:        audioContentType,
		FileName:           fileName,
		ScriptAssignmentID: assignmentID,
	}
	var target PresignedTarget
	url := fmt.Sprintf("%s/files/uploads/%s", c.base, campaignID)
	if err := c.post(ctx, "request upload slot", url, payload, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// Transfer puts the raw audio bytes to a presigned URL. Presigned requests
// carry no Authorization and no browser header set, only the content type.
func (c *Client) Transfer(ctx context.Context, presignedURL string, data []byte) error {
	header := http.Header{}
	header.Set("content-type", audioContentType)
	out := c.exec.Do(ctx, c.http, request.Put, presignedURL, data, header)
	if !out.OK {
		return c.fail("transfer upload", out)
	}
	return nil
}

// ConfirmUpload finalizes a transferred recording.
func (c *Client) ConfirmUpload(ctx context.Context, req ConfirmRequest) error {
	return c.post(ctx, "confirm upload", c.base+"/files", req, nil)
}

// PublicIP reports the connection's public address through the account's
// transport. Unauthenticated; failures are diagnostic only.
func (c *Client) PublicIP(ctx context.Context) (string, error) {
	var wire struct {
		IP string `json:"ip"`
	}
	out := c.exec.Do(ctx, c.http, request.Get, ipEndpoint, nil, request.BrowserHeaders(""))
	if !out.OK {
		return "", c.fail("fetch public ip", out)
	}
	if err := json.Unmarshal(out.Body, &wire); err != nil {
		return "", &ClientError{Op: "fetch public ip", Message: err.Error()}
	}
	return wire.IP, nil
}
