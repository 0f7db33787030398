package mojang_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triskcraft/custodian/internal/mojang"
	"go.uber.org/zap"
)

func TestNicknameToUUID(t *testing.T) {
	t.Parallel()

	t.Run("resolves a known nickname", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/steve", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":"069a79f444e94726a5befca90e38aaf5","name":"steve"}`))
		}))
		defer server.Close()

		client := mojang.NewClient(zap.NewNop(), mojang.WithBaseURL(server.URL+"/"))

		uuid, err := client.NicknameToUUID(t.Context(), "steve")
		require.NoError(t, err)
		assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", uuid)
	})

	t.Run("unknown nickname is not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := mojang.NewClient(zap.NewNop(), mojang.WithBaseURL(server.URL+"/"))

		_, err := client.NicknameToUUID(t.Context(), "nobody")
		require.ErrorIs(t, err, mojang.ErrProfileNotFound)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":"abc123","name":"alex"}`))
		}))
		defer server.Close()

		client := mojang.NewClient(zap.NewNop(), mojang.WithBaseURL(server.URL+"/"))

		uuid, err := client.NicknameToUUID(t.Context(), "alex")
		require.NoError(t, err)
		assert.Equal(t, "abc123", uuid)
		assert.GreaterOrEqual(t, calls.Load(), int64(2))
	})
}
