package utilities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarker/internal/app/interceptors"
	"bookmarker/internal/domain/models"
)

func TestRandomString(t *testing.T) {
	s, err := RandomString(10)
	require.NoError(t, err)
	assert.Len(t, s, 10)
	assert.Regexp(t, `^[A-Za-z0-9]{10}$`, s)

	other, err := RandomString(10)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestCallerFromContext(t *testing.T) {
	assert.False(t, CallerFromContext(context.Background()).Authenticated())

	caller := models.Caller{UserID: "u1"}
	ctx := context.WithValue(context.Background(), interceptors.CallerKey, caller)
	assert.Equal(t, caller, CallerFromContext(ctx))
}

func TestEnvFromContext(t *testing.T) {
	assert.Equal(t, interceptors.EnvLocal, EnvFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), interceptors.EnvKey, interceptors.EnvProd)
	assert.Equal(t, interceptors.EnvProd, EnvFromContext(ctx))
}

func TestMap(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Map([]string{"a", "bb", "ccc"}, func(s string) int { return len(s) }))
}
