package poi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
)

func kakaoDoc(id, name string, north, east float64, distance string) map[string]any {
	loc := pangyo.Offset(north, east)
	return map[string]any{
		"id":                  id,
		"place_name":          name,
		"category_group_code": "CS2",
		"address_name":        "경기 성남시 분당구 백현동",
		"road_address_name":   "경기 성남시 분당구 판교역로",
		"phone":               "031-000-0000",
		"x":                   strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		"y":                   strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		"distance":            distance,
	}
}

func writeKakao(w http.ResponseWriter, isEnd bool, docs ...map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"meta":      map[string]any{"is_end": isEnd, "total_count": len(docs), "pageable_count": len(docs)},
		"documents": docs,
	})
}

func TestKakaoClient_SearchNearby(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "KakaoAK secret", r.Header.Get("Authorization"))
		assert.Equal(t, "cvs-compass/1.2.3", r.Header.Get("User-Agent"))

		q := r.URL.Query()
		assert.Equal(t, "CS2", q.Get("category_group_code"))
		assert.Equal(t, "distance", q.Get("sort"))
		assert.Equal(t, "500", q.Get("radius"))
		assert.Equal(t, "127.110341", q.Get("x"))
		assert.Equal(t, "37.394225", q.Get("y"))

		writeKakao(w, true,
			kakaoDoc("2", "CU 판교점", 0, 200, "200"),
			kakaoDoc("1", "GS25 판교역점", 100, 0, "100"),
		)
	}))
	defer server.Close()

	client := NewKakaoClient("secret", WithKakaoURL(server.URL), WithKakaoVersion("1.2.3"))
	assert.Equal(t, "kakao", client.Name())

	items, err := client.SearchNearby(context.Background(), Query{Center: pangyo, Radius: 500, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "kakao:1", items[0].ID)
	assert.Equal(t, "GS25 판교역점", items[0].Name)
	assert.Equal(t, "GS25", items[0].Brand)
	assert.Equal(t, "kakao", items[0].Source)
	require.NotNil(t, items[0].Distance)
	assert.Equal(t, 100.0, *items[0].Distance)
	assert.InDelta(t, pangyo.Offset(100, 0).Latitude, items[0].Location.Latitude, 1e-9)
	assert.Equal(t, "kakao:2", items[1].ID)
}

func TestKakaoClient_Paging(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		switch r.URL.Query().Get("page") {
		case "1":
			writeKakao(w, false, kakaoDoc("1", "CU 1", 10, 0, "10"))
		case "2":
			writeKakao(w, false, kakaoDoc("2", "CU 2", 20, 0, "20"))
		default:
			writeKakao(w, true, kakaoDoc("3", "CU 3", 30, 0, "30"))
		}
	}))
	defer server.Close()

	client := NewKakaoClient("secret", WithKakaoURL(server.URL))

	items, err := client.SearchNearby(context.Background(), Query{Center: pangyo, Radius: 1000, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int32(3), pages.Load())

	pages.Store(0)
	items, err = client.SearchNearby(context.Background(), Query{Center: pangyo, Radius: 1000, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), pages.Load())
}

func TestKakaoClient_SkipsInvalidCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		bad := kakaoDoc("9", "broken", 0, 0, "")
		bad["x"] = "not-a-number"
		writeKakao(w, true, bad, kakaoDoc("1", "CU", 50, 0, ""))
	}))
	defer server.Close()

	client := NewKakaoClient("secret", WithKakaoURL(server.URL))
	items, err := client.SearchNearby(context.Background(), Query{Center: pangyo, Radius: 1000})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Distance)
	assert.InDelta(t, 50, *items[0].Distance, 1)
}

func TestKakaoClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeKakao(w, true, kakaoDoc("1", "CU", 50, 0, "50"))
	}))
	defer server.Close()

	client := NewKakaoClient("secret", WithKakaoURL(server.URL), WithKakaoRetries(2, time.Millisecond))
	items, err := client.SearchNearby(context.Background(), Query{Center: pangyo, Radius: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestKakaoClient_UnauthorizedIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorType":"AccessDeniedError","message":"wrong appKey"}`))
	}))
	defer server.Close()

	client := NewKakaoClient("bad", WithKakaoURL(server.URL), WithKakaoRetries(3, time.Millisecond))
	_, err := client.SearchNearby(context.Background(), Query{Center: pangyo, Radius: 1000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong appKey")
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, apperrors.GetCode(err))
}
