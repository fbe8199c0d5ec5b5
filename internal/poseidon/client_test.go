package poseidon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/poseidon-uploader/internal/request"
)

func noSleep(context.Context, time.Duration) {}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	exec := request.NewExecutor(zap.NewNop(), 2, time.Millisecond, time.Millisecond).WithSleeper(noSleep)
	return NewClient(server.URL, "test-token", server.Client(), exec, zap.NewNop())
}

func TestUserInfo(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"name": "poseidonfan", "points": 321.5, "dynamic_wallet": "0xabc",
		})
	}))

	info, err := client.UserInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "poseidonfan", info.Username)
	assert.Equal(t, 321.5, info.Points)
	assert.Equal(t, "0xabc", info.Address)
}

func TestUserInfoWalletDefaultsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "poseidonfan", "points": 0})
	}))

	info, err := client.UserInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "N/A", info.Address)
}

func TestCampaignsFiltersToScriptedAudio(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("size"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"virtual_id": "c1", "campaign_name": "Scripted Audio", "campaign_type": "AUDIO", "is_scripted": true},
				{"virtual_id": "c2", "campaign_name": "Freeform Audio", "campaign_type": "AUDIO", "is_scripted": false},
				{"virtual_id": "c3", "campaign_name": "Scripted Video", "campaign_type": "VIDEO", "is_scripted": true},
			},
		})
	}))

	campaigns, err := client.Campaigns(context.Background())
	require.NoError(t, err)

	require.Len(t, campaigns, 1)
	assert.Equal(t, "c1", campaigns[0].VirtualID)
}

func TestQuota(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/c1/access", r.URL.Path)
		json.NewEncoder(w).Encode(Quota{Remaining: 4, Cap: 10})
	}))

	quota, err := client.Quota(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, Quota{Remaining: 4, Cap: 10}, quota)
}

func TestQuotaFailureReturnsClientError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"campaign not found"}`))
	}))

	_, err := client.Quota(context.Background(), "gone")
	require.Error(t, err)

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, http.StatusNotFound, clientErr.Status)
	assert.Equal(t, "campaign not found", clientErr.Message)
}

func TestNextScript(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scripts/next", r.URL.Path)
		assert.Equal(t, "hi", r.URL.Query().Get("language_code"))
		assert.Equal(t, "c1", r.URL.Query().Get("campaign_id"))
		json.NewEncoder(w).Encode(map[string]any{
			"assignment_id": "as-9",
			"script":        map[string]any{"content": "read me aloud"},
		})
	}))

	script, err := client.NextScript(context.Background(), "hi", "c1")
	require.NoError(t, err)

	assert.Equal(t, "as-9", script.AssignmentID)
	assert.Equal(t, "read me aloud", script.Content)
}

func TestUploadSlot(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/uploads/c1", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "audio/webm", payload["content_type"])
		assert.Equal(t, "audio_recording_1.webm", payload["file_name"])
		assert.Equal(t, "as-9", payload["script_assignment_id"])

		json.NewEncoder(w).Encode(PresignedTarget{
			PresignedURL: "https://bucket.example/put", ObjectKey: "obj-1", FileID: "f-1",
		})
	}))

	target, err := client.UploadSlot(context.Background(), "c1", "audio_recording_1.webm", "as-9")
	require.NoError(t, err)

	assert.Equal(t, "obj-1", target.ObjectKey)
	assert.Equal(t, "f-1", target.FileID)
}

func TestTransferPutsRawBytes(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "audio/webm", r.Header.Get("content-type"))
		assert.Empty(t, r.Header.Get("authorization"), "presigned requests carry no bearer token")
		received, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	exec := request.NewExecutor(zap.NewNop(), 2, time.Millisecond, time.Millisecond).WithSleeper(noSleep)
	client := NewClient("http://unused", "test-token", server.Client(), exec, zap.NewNop())

	audio := []byte{0x1a, 0x45, 0xdf, 0xa3}
	require.NoError(t, client.Transfer(context.Background(), server.URL, audio))
	assert.Equal(t, audio, received)
}

func TestConfirmUpload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		var payload ConfirmRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "obj-1", payload.ObjectKey)
		assert.Equal(t, "deadbeef", payload.SHA256Hash)
		assert.Equal(t, 4, payload.Filesize)
		json.NewEncoder(w).Encode(map[string]any{"id": "rec-1"})
	}))

	err := client.ConfirmUpload(context.Background(), ConfirmRequest{
		ContentType: "audio/webm",
		ObjectKey:   "obj-1",
		SHA256Hash:  "deadbeef",
		Filesize:    4,
		FileName:    "audio_recording_1.webm",
		VirtualID:   "f-1",
		CampaignID:  "c1",
	})
	assert.NoError(t, err)
}

func TestCampaignLanguage(t *testing.T) {
	assert.Equal(t, "mr", Campaign{SupportedLanguages: []string{"mr", "en"}}.Language())
	assert.Equal(t, "N/A", Campaign{}.Language())
}
