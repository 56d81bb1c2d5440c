package registry_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/gateway/registry"
)

func TestLookup(t *testing.T) {
	reg := registry.New()

	t.Run("known key returns its descriptor", func(t *testing.T) {
		d, err := reg.Lookup("message.sendText")

		require.NoError(t, err)
		assert.Equal(t, "message.sendText", d.Key)
		assert.Equal(t, http.MethodPost, d.Method)
		assert.Equal(t, domain.QuotaMessages, d.QuotaType)
		assert.True(t, d.RequiresInstance)
		assert.False(t, d.Cacheable)
	})

	t.Run("unknown key fails closed", func(t *testing.T) {
		_, err := reg.Lookup("message.sendTelegram")

		assert.ErrorIs(t, err, domain.ErrEndpointNotFound)
	})

	t.Run("empty key fails closed", func(t *testing.T) {
		_, err := reg.Lookup("")

		assert.ErrorIs(t, err, domain.ErrEndpointNotFound)
	})
}

func TestResolvePath(t *testing.T) {
	reg := registry.New()

	t.Run("substitutes the instance placeholder", func(t *testing.T) {
		d, err := reg.Lookup("message.sendText")
		require.NoError(t, err)

		path, err := registry.ResolvePath(d, "customer-main", nil)

		require.NoError(t, err)
		assert.Equal(t, "/message/sendText/customer-main", path)
	})

	t.Run("is pure: identical inputs produce identical output", func(t *testing.T) {
		d, err := reg.Lookup("chat.fetchChats")
		require.NoError(t, err)

		first, err := registry.ResolvePath(d, "inst-a", map[string]string{"page": "2"})
		require.NoError(t, err)
		second, err := registry.ResolvePath(d, "inst-a", map[string]string{"page": "2"})
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("missing instance on an instance-scoped endpoint fails", func(t *testing.T) {
		d, err := reg.Lookup("message.sendText")
		require.NoError(t, err)

		_, err = registry.ResolvePath(d, "", nil)

		assert.ErrorIs(t, err, domain.ErrInstanceRequired)
	})

	t.Run("instance-free endpoints resolve without one", func(t *testing.T) {
		d, err := reg.Lookup("instance.fetchInstances")
		require.NoError(t, err)

		path, err := registry.ResolvePath(d, "", nil)

		require.NoError(t, err)
		assert.Equal(t, "/instance/fetchInstances", path)
	})

	t.Run("unresolved placeholder fails", func(t *testing.T) {
		d := registry.EndpointDescriptor{
			Key:          "test.withParam",
			PathTemplate: "/test/{instance}/item/{itemId}",
			Method:       http.MethodGet,
		}

		_, err := registry.ResolvePath(d, "inst-a", nil)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("path params fill extra placeholders", func(t *testing.T) {
		d := registry.EndpointDescriptor{
			Key:          "test.withParam",
			PathTemplate: "/test/{instance}/item/{itemId}",
			Method:       http.MethodGet,
		}

		path, err := registry.ResolvePath(d, "inst-a", map[string]string{"itemId": "42"})

		require.NoError(t, err)
		assert.Equal(t, "/test/inst-a/item/42", path)
	})
}

// TestTableSanity guards the compiled table against descriptor mistakes that
// the type system cannot catch.
func TestTableSanity(t *testing.T) {
	reg := registry.New()
	keys := reg.Keys()

	assert.GreaterOrEqual(t, len(keys), 55, "table should cover the provider surface")

	for _, key := range keys {
		d, err := reg.Lookup(key)
		require.NoError(t, err)

		t.Run(key, func(t *testing.T) {
			parts := strings.Split(d.Key, ".")
			assert.Len(t, parts, 2, "key must be category.action")
			assert.NotEmpty(t, parts[0])
			assert.NotEmpty(t, parts[1])

			assert.NotEmpty(t, d.PathTemplate)
			assert.True(t, strings.HasPrefix(d.PathTemplate, "/"))
			assert.NotEmpty(t, d.Method)
			assert.NotEmpty(t, string(d.QuotaType))
			assert.GreaterOrEqual(t, d.QuotaWeight, int64(1))

			if d.RequiresInstance {
				assert.Contains(t, d.PathTemplate, "{instance}",
					"instance-scoped endpoints must place the instance in the path")
			} else {
				assert.NotContains(t, d.PathTemplate, "{instance}")
			}

			if d.Cacheable {
				assert.True(t, d.ReadOnly(), "only read-only methods may be cacheable")
				assert.Greater(t, d.CacheTTL, time.Duration(0))
				assert.LessOrEqual(t, d.CacheTTL, domain.MaxCacheTTL)
			} else {
				assert.Zero(t, d.CacheTTL)
			}
		})
	}
}
