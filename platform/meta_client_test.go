package platform_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobradar/adpilot/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *platform.MetaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return platform.NewMetaClient(platform.Config{
		BaseURL:     srv.URL,
		APIVersion:  "v21.0",
		AccessToken: "test-token",
		Timeout:     5 * time.Second,
		PageSize:    2,
	})
}

func TestMetaClientCreateCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v21.0/act_123/campaigns", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "test-token", r.FormValue("access_token"))
			assert.Equal(t, "Backend Engineer", r.FormValue("name"))
			assert.Equal(t, "PAUSED", r.FormValue("status"))
			assert.Equal(t, `["EMPLOYMENT"]`, r.FormValue("special_ad_categories"))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "111"})
		}))

		id, err := client.CreateCampaign(ctx, platform.CreateCampaignRequest{
			AccountID:  "123",
			Name:       "Backend Engineer",
			Objective:  "OUTCOME_TRAFFIC",
			Status:     "PAUSED",
			Categories: []string{"EMPLOYMENT"},
		})
		require.NoError(t, err)
		assert.Equal(t, "111", id)
	})

	t.Run("PlatformErrorDecoded", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,"error_subcode":1487}}`))
		}))

		_, err := client.CreateCampaign(ctx, platform.CreateCampaignRequest{AccountID: "123"})
		require.Error(t, err)
		var pe *platform.Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 100, pe.Code)
		assert.Equal(t, 1487, pe.Subcode)
		assert.Equal(t, "Invalid parameter", pe.Message)
		assert.False(t, platform.IsTransient(err))
	})

	t.Run("TransientPlatformError", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Application request limit reached","code":4}}`))
		}))

		_, err := client.CreateCampaign(ctx, platform.CreateCampaignRequest{AccountID: "123"})
		require.Error(t, err)
		assert.True(t, platform.IsTransient(err))
	})

	t.Run("NonEnvelopeErrorBody", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad gateway"))
		}))

		_, err := client.CreateCampaign(ctx, platform.CreateCampaignRequest{AccountID: "123"})
		require.Error(t, err)
		var pe *platform.Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
		assert.True(t, platform.IsTransient(err))
	})
}

func TestMetaClientListCampaigns(t *testing.T) {
	ctx := context.Background()

	t.Run("Pagination", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v21.0/act_123/campaigns", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("limit"))

			if r.URL.Query().Get("after") == "" {
				_, _ = w.Write([]byte(`{
					"data":[{"id":"c1","name":"First","status":"ACTIVE","effective_status":"ACTIVE","start_time":"2026-08-01T10:00:00+0000"},{"id":"c2","name":"Second","status":"PAUSED","effective_status":"PAUSED"}],
					"paging":{"cursors":{"after":"CURSOR1"},"next":"https://example.invalid/next"}
				}`))
				return
			}
			assert.Equal(t, "CURSOR1", r.URL.Query().Get("after"))
			_, _ = w.Write([]byte(`{
				"data":[{"id":"c3","name":"Third","status":"ACTIVE","effective_status":"ACTIVE"}],
				"paging":{"cursors":{"after":"CURSOR2"}}
			}`))
		}))

		page, next, err := client.ListCampaigns(ctx, "123", "")
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "c1", page[0].ID)
		require.NotNil(t, page[0].StartTime)
		assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), page[0].StartTime.UTC())
		assert.Nil(t, page[1].StartTime)
		assert.Equal(t, "CURSOR1", next)

		// Final page carries an 'after' cursor but no next link
		page, next, err = client.ListCampaigns(ctx, "123", next)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "c3", page[0].ID)
		assert.Empty(t, next)
	})

	t.Run("EmptyAccount", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[],"paging":{"cursors":{"after":""}}}`))
		}))

		page, next, err := client.ListCampaigns(ctx, "123", "")
		require.NoError(t, err)
		assert.Empty(t, page)
		assert.Empty(t, next)
	})
}

func TestMetaClientListAds(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/set-1/ads", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"a1","adset_id":"set-1","name":"Ad","status":"ACTIVE","effective_status":"ACTIVE","creative":{"id":"cr-9"}}]}`))
	}))

	page, next, err := client.ListAds(context.Background(), "set-1", "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "cr-9", page[0].CreativeID)
	assert.Empty(t, next)
}

func TestMetaClientGetInsights(t *testing.T) {
	window := platform.DateWindow{
		Since: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/cmp-1/insights", r.URL.Path)
		assert.Equal(t, "campaign", r.URL.Query().Get("level"))
		assert.Equal(t, "1", r.URL.Query().Get("time_increment"))
		assert.JSONEq(t, `{"since":"2026-08-24","until":"2026-08-31"}`, r.URL.Query().Get("time_range"))
		_, _ = w.Write([]byte(`{"data":[{"date_start":"2026-08-30","date_stop":"2026-08-30","impressions":"1500","clicks":"42","spend":"12.34","actions":[{"action_type":"lead","value":"3"}]}]}`))
	}))

	rows, next, err := client.GetInsights(context.Background(), platform.InsightsRequest{
		ObjectID: "cmp-1",
		Level:    "campaign",
		Window:   window,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-08-30", rows[0].DateStart)
	assert.Equal(t, "1500", rows[0].Impressions)
	require.Len(t, rows[0].Actions, 1)
	assert.Equal(t, "lead", rows[0].Actions[0].ActionType)
	assert.Empty(t, next)
}

func TestMetaClientUploadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creative.png")
	require.NoError(t, os.WriteFile(path, []byte("not-really-a-png"), 0o644))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/act_123/adimages", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-token", r.FormValue("access_token"))
		_, _ = w.Write([]byte(`{"images":{"creative.png":{"hash":"abc123"}}}`))
	}))

	hash, err := client.UploadImage(context.Background(), platform.UploadImageRequest{AccountID: "123", LocalPath: path})
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
}
