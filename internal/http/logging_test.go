package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coaching-scheduler/internal/application"
)

func TestHandlerLoggerTagsPrincipal(t *testing.T) {
	var requestLog, fallbackLog bytes.Buffer
	requestLogger := slog.New(slog.NewJSONHandler(&requestLog, nil))
	fallback := slog.New(slog.NewJSONHandler(&fallbackLog, nil))

	ctx := ContextWithLogger(context.Background(), requestLogger)
	ctx = ContextWithPrincipal(ctx, application.Principal{ActorID: "office-1", TeacherID: "t-9"})

	handlerLogger(ctx, fallback, "BookingHandler", "create", "booking_id", "b-1").Info("handled")

	assert.Zero(t, fallbackLog.Len(), "request logger must win over the fallback")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(requestLog.Bytes(), &entry))
	assert.Equal(t, "BookingHandler", entry["handler"])
	assert.Equal(t, "create", entry["operation"])
	assert.Equal(t, "office-1", entry["actor_id"])
	assert.Equal(t, "t-9", entry["principal_teacher_id"])
	assert.Equal(t, "b-1", entry["booking_id"])
}

func TestHandlerLoggerFallsBackWithoutRequestScope(t *testing.T) {
	var fallbackLog bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&fallbackLog, nil))

	handlerLogger(context.Background(), fallback, "SubjectHandler", "list").Info("handled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(fallbackLog.Bytes(), &entry))
	assert.Equal(t, "SubjectHandler", entry["handler"])
	assert.NotContains(t, entry, "actor_id")
	assert.NotContains(t, entry, "principal_teacher_id")
}
