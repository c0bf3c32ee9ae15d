package resolver

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/trellis/pkg/blackboard"
)

func setupClient(t *testing.T) *blackboard.Client {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func createInsight(t *testing.T, client *blackboard.Client, id string) *blackboard.Insight {
	t.Helper()
	ins := &blackboard.Insight{
		ID:          id,
		UserID:      "user-1",
		EntityType:  blackboard.EntityTypeGlobal,
		InsightType: blackboard.InsightTypeRecommendation,
		Title:       "t",
		CreatedAtMs: 1,
	}
	require.NoError(t, client.CreateInsight(context.Background(), ins))
	return ins
}

func TestResolveInsightID(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	t.Run("full UUID verified and returned", func(t *testing.T) {
		ins := createInsight(t, client, uuid.New().String())
		got, err := ResolveInsightID(ctx, client, ins.ID)
		require.NoError(t, err)
		assert.Equal(t, ins.ID, got)
	})

	t.Run("full UUID that does not exist", func(t *testing.T) {
		_, err := ResolveInsightID(ctx, client, uuid.New().String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insight not found")
	})

	t.Run("prefix too short", func(t *testing.T) {
		_, err := ResolveInsightID(ctx, client, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6 characters")
	})

	t.Run("unique prefix resolves", func(t *testing.T) {
		ins := createInsight(t, client, "aaaaaa11-0000-4000-8000-000000000001")
		got, err := ResolveInsightID(ctx, client, "aaaaaa")
		require.NoError(t, err)
		assert.Equal(t, ins.ID, got)
	})

	t.Run("unknown prefix is a NotFoundError", func(t *testing.T) {
		_, err := ResolveInsightID(ctx, client, "ffffff")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("ambiguous prefix lists matches", func(t *testing.T) {
		createInsight(t, client, "bbbbbb11-0000-4000-8000-000000000001")
		createInsight(t, client, "bbbbbb22-0000-4000-8000-000000000002")

		_, err := ResolveInsightID(ctx, client, "bbbbbb")
		require.Error(t, err)
		require.True(t, IsAmbiguousError(err))

		ambiguous := err.(*AmbiguousError)
		assert.Len(t, ambiguous.Matches, 2)
		assert.Contains(t, FormatAmbiguousError(ambiguous), "bbbbbb11")
	})
}
