package logger

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBuildsForEveryEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", "test"} {
		l, err := New(env)
		require.NoError(t, err, env)
		require.NotNil(t, l, env)
		_ = l.Sync()
	}
}

// Feature: storefront, Property 6: Request-scoped fields reach every log entry
func TestProperty_ContextLoggerCarriesRequestFields(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("entries written through FromContext keep the request id", prop.ForAll(
		func(requestID string, message string) bool {
			core, logs := observer.New(zap.DebugLevel)
			base := zap.New(core)

			ctx := WithContext(context.Background(), base.With(zap.String("request_id", requestID)))
			FromContext(ctx, zap.NewNop()).Info(message)

			entries := logs.All()
			if len(entries) != 1 {
				return false
			}
			return entries[0].Message == message && entries[0].ContextMap()["request_id"] == requestID
		},
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFromContextFallsBack(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
}
