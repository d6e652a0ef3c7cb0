package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() domain.WebhookPayload {
	return domain.WebhookPayload{
		AppointmentID: "apt-1",
		Title:         "Consult",
		StartTime:     "2024-12-20T14:00:00Z",
		EndTime:       "2024-12-20T15:00:00Z",
		Timezone:      "UTC",
		AttendeeEmail: "john@example.com",
		SendEmail:     true,
	}
}

func TestClient_Dispatch(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","event_id":"evt_9"}`))
	}))
	defer srv.Close()

	client := webhook.NewClient(srv.URL, webhook.WithAPIKey("secret"))

	resp, err := client.Dispatch(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "evt_9", resp["event_id"])
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Consult", gotBody["title"])
	assert.Equal(t, "john@example.com", gotBody["attendee_email"])
}

func TestClient_AcceptedStatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			w.Write([]byte(`{"ok":true}`))
		}))

		client := webhook.NewClient(srv.URL)
		_, err := client.Dispatch(context.Background(), samplePayload())
		assert.NoError(t, err, "status %d must be treated as success", code)
		srv.Close()
	}
}

func TestClient_PlainTextSuccessIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := webhook.NewClient(srv.URL)

	resp, err := client.Dispatch(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "ok", resp["raw"])
}

func TestClient_ErrorStatusCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "hook disabled", http.StatusForbidden)
	}))
	defer srv.Close()

	client := webhook.NewClient(srv.URL)

	_, err := client.Dispatch(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "hook disabled")
}

func TestClient_NotConfigured(t *testing.T) {
	client := webhook.NewClient("")
	assert.False(t, client.IsConfigured())

	_, err := client.Dispatch(context.Background(), samplePayload())
	assert.ErrorIs(t, err, domain.ErrWebhookNotConfigured)
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := webhook.NewClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Dispatch(ctx, samplePayload())
	assert.Error(t, err)
}
