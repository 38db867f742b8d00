package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"domainflow/internal/domain"
)

func TestWebhookSinkSend(t *testing.T) {
	var (
		gotSecret string
		gotBody   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Webhook-Secret")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	drm := domain.EmployeeNo(100)
	sink := NewWebhookSink(srv.URL, "s3cr3t", time.Second)
	err := sink.Send(context.Background(), &domain.NotificationEvent{
		Type:        domain.EventHODVerified,
		Timestamp:   time.Now().UTC(),
		TriggeredBy: domain.TriggeredBy{EmployeeNo: 102, Role: domain.RoleHOD},
		Data:        domain.EventData{DomainID: 7, DomainName: "a.example.org", Remarks: "ok"},
		Recipients:  domain.Recipients{DRM: &drm},
	})
	require.NoError(t, err)

	require.Equal(t, "s3cr3t", gotSecret)
	require.Equal(t, "DOMAIN_HOD_VERIFIED", gotBody["eventType"])

	data := gotBody["data"].(map[string]any)
	require.Equal(t, "a.example.org", data["domainName"])

	recipients := gotBody["recipients"].(map[string]any)
	require.Equal(t, float64(100), recipients["drm_emp_no"])
	require.NotContains(t, recipients, "hod_emp_no")

	triggered := gotBody["triggeredBy"].(map[string]any)
	require.Equal(t, float64(102), triggered["emp_no"])
}

func TestWebhookSinkRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "s3cr3t", time.Second)
	err := sink.Send(context.Background(), &domain.NotificationEvent{Type: domain.EventExpiryWarning})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
