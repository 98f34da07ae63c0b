package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger prefers the request logger installed by RequestLogger and
// tags it with the handler, the operation and the principal headers.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	tags := make([]any, 0, 8+len(attrs))
	tags = append(tags, "handler", handlerName, "operation", operation)
	if principal, ok := PrincipalFromContext(ctx); ok {
		if principal.ActorID != "" {
			tags = append(tags, "actor_id", principal.ActorID)
		}
		if principal.TeacherID != "" {
			tags = append(tags, "principal_teacher_id", principal.TeacherID)
		}
	}
	return logger.With(append(tags, attrs...)...)
}
