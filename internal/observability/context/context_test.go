package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationFieldsRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithDealershipID(ctx, "77")
	ctx = WithActor(ctx, "user", "12")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "77", DealershipIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "user", actorType)
	assert.Equal(t, "12", actorID)
}
