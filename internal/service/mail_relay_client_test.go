package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact_form/internal/domain"
	apperrors "contact_form/pkg/errors"
)

func TestMailRelayClient_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":"true","message":"The form was submitted successfully."}`))
	}))
	defer srv.Close()

	client := NewMailRelayClient(srv.URL, time.Second, map[string]string{
		"_captcha": "false",
		"email":    "override@example.com",
	})
	payload := domain.NewSubmissionPayload(validValues(), testStart)

	require.NoError(t, client.Send(context.Background(), payload))

	want := map[string]string{
		"_captcha": "false",
		"name":     "Jane Doe",
		"email":    "jane@example.com",
		"subject":  "Hello",
		"message":  "This is a normal length test message.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("relay body mismatch (-want +got):\n%s", diff)
	}
}

func TestMailRelayClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "rejected in body", status: http.StatusOK, body: `{"success":"false","message":"Activation required"}`},
		{name: "rejected boolean", status: http.StatusOK, body: `{"success":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewMailRelayClient(srv.URL, time.Second, nil).Send(context.Background(), domain.SubmissionPayload{})
			assert.ErrorIs(t, err, apperrors.ErrRelayUnavailable)
		})
	}
}

func TestMailRelayClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewMailRelayClient(url, time.Second, nil).Send(context.Background(), domain.SubmissionPayload{})
	assert.ErrorIs(t, err, apperrors.ErrRelayUnavailable)
}

func TestMailRelayClient_NonJSONSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>thanks</html>"))
	}))
	defer srv.Close()

	assert.NoError(t, NewMailRelayClient(srv.URL, time.Second, nil).Send(context.Background(), domain.SubmissionPayload{}))
}
