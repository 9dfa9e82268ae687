package util_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zecswap/zecswap-daemon/pkg/util"
)

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/echo":
				require.Equal(t, "application/json", r.Header.Get("Content-Type"))
				require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
				body := map[string]string{}
				_ = json.NewDecoder(r.Body).Decode(&body)
				_ = json.NewEncoder(w).Encode(body)
			case "/empty":
				w.WriteHeader(http.StatusNoContent)
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"order not found"}`))
			default:
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down\n"))
			}
		},
	))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	header := map[string]string{"Authorization": "Bearer token"}

	t.Run("echo", func(t *testing.T) {
		out := map[string]string{}
		err := util.DoJSON(
			ctx, http.MethodPost, srv.URL+"/echo", map[string]string{"a": "b"}, &out, header,
		)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"a": "b"}, out)
	})

	t.Run("no content", func(t *testing.T) {
		out := map[string]string{}
		err := util.DoJSON(ctx, http.MethodDelete, srv.URL+"/empty", nil, &out, nil)
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("error responses", func(t *testing.T) {
		tests := []struct {
			path       string
			statusCode int
			message    string
		}{
			{"/missing", http.StatusNotFound, "order not found"},
			{"/other", http.StatusBadGateway, "upstream down"},
		}
		for _, tt := range tests {
			err := util.DoJSON(ctx, http.MethodGet, srv.URL+tt.path, nil, nil, nil)
			require.Error(t, err)

			var httpErr *util.HTTPError
			require.True(t, errors.As(err, &httpErr))
			require.Equal(t, tt.statusCode, httpErr.StatusCode)
			require.Equal(t, tt.message, httpErr.Message)
		}
	})

	t.Run("unsupported verb", func(t *testing.T) {
		_, _, err := util.NewHTTPRequest(ctx, http.MethodPut, srv.URL, nil, nil)
		require.Error(t, err)
	})
}
