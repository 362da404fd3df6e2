package jobs

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestHandlerHealth(t *testing.T) {
	h := NewHandler(nil, slog.Default())
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/jobs/health", nil))

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestNewSendEmailTask(t *testing.T) {
	task, err := NewSendEmailTask(SendEmailPayload{To: "billing@acme.test", Subject: "Quote Q-2608-0001"})
	require.NoError(t, err)
	require.Equal(t, TaskTypeSendEmail, task.Type())
	require.Contains(t, string(task.Payload()), "billing@acme.test")
	require.NoError(t, HandleSendEmailTask(context.Background(), task))
}
