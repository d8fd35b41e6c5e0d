package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xraph/depot/store"
	"github.com/xraph/depot/store/mongo"
	"github.com/xraph/depot/store/storetest"
)

// TestStore runs the conformance suite against DEPOT_TEST_MONGO_URL. Each
// subtest gets its own database, dropped afterwards.
func TestStore(t *testing.T) {
	uri := os.Getenv("DEPOT_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("DEPOT_TEST_MONGO_URL not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := mongo.New(ctx, uri, "depot_test_"+uuid.NewString()[:8])
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Database().Drop(context.Background())
			_ = s.Close()
		})

		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
