package utilities

import (
	"context"

	"bookmarker/internal/app/interceptors"
	"bookmarker/internal/domain/models"
)

// CallerFromContext extracts the request caller, anonymous when none was attached
func CallerFromContext(ctx context.Context) models.Caller {
	if caller, ok := ctx.Value(interceptors.CallerKey).(models.Caller); ok {
		return caller
	}
	return models.Caller{}
}
