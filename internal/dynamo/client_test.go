package dynamo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/internal/dynamo"
)

func TestNewClient(t *testing.T) {
	t.Run("creates a client with a local endpoint", func(t *testing.T) {
		client, err := dynamo.NewClient(context.Background(), dynamo.Config{
			Endpoint: "http://localhost:4566",
			Region:   "us-east-1",
			Timeout:  time.Second,
		})

		require.NoError(t, err)
		assert.NotNil(t, client.DB)
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	type item struct {
		TenantID string `dynamodbav:"tenant_id"`
		Name     string `dynamodbav:"instance_name"`
		Weight   int    `dynamodbav:"weight"`
	}

	av, err := dynamo.MarshalMap(item{TenantID: "t1", Name: "main", Weight: 3})
	require.NoError(t, err)

	var out item
	require.NoError(t, dynamo.UnmarshalMap(av, &out))
	assert.Equal(t, item{TenantID: "t1", Name: "main", Weight: 3}, out)
}
