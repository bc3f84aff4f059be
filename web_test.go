package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/roombox/internal/store"
)

func testConfig() *Config {
	return &Config{
		bind:        "127.0.0.1",
		corsOrigins: []string{"*"},
		port:        8080,
		roomTTL:     12 * time.Hour,
	}
}

func testRouter() *httprouter.Router {
	cfg := testConfig()
	svcs := newServices(cfg, store.NewMemory(), clockwork.NewFakeClock())
	return newRouter(cfg, svcs)
}

func do(t *testing.T, mux *httprouter.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestHomePage(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var home struct {
		Name  string   `json:"name"`
		Games []string `json:"games"`
	}
	decodeBody(t, rec, &home)
	assert.Equal(t, "roombox", home.Name)
	assert.Len(t, home.Games, 3)
}

func TestHealthCheck(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityIssuesUniqueDeviceIDs(t *testing.T) {
	mux := testRouter()

	var first, second struct {
		DeviceID string `json:"deviceId"`
	}

	rec := do(t, mux, http.MethodPost, "/identity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &first)

	rec = do(t, mux, http.MethodPost, "/identity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &second)

	assert.NotEmpty(t, first.DeviceID)
	assert.NotEqual(t, first.DeviceID, second.DeviceID)
}

func TestScoringFlow(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodPost, "/scoring", map[string]string{"hostName": "Talent Night"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		RoomID   string `json:"roomId"`
		RoomCode string `json:"roomCode"`
	}
	decodeBody(t, rec, &created)
	require.Len(t, created.RoomCode, 6)

	rec = do(t, mux, http.MethodGet, "/scoring/join/"+created.RoomCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPost, "/scoring/rooms/"+created.RoomID+"/judges", map[string]string{"name": "Alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var judge struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	decodeBody(t, rec, &judge)
	assert.NotEmpty(t, judge.Token)

	rec = do(t, mux, http.MethodPost, "/scoring/rooms/"+created.RoomID+"/performances", map[string]string{"name": "Dance Crew"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var perf struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &perf)

	rec = do(t, mux, http.MethodPost, "/scoring/rooms/"+created.RoomID+"/scores", map[string]any{
		"judgeId":       judge.ID,
		"performanceId": perf.ID,
		"score":         8,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodPost, "/scoring/rooms/"+created.RoomID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var completed struct {
		Ranking []struct {
			AverageScore float64 `json:"averageScore"`
			Rank         int     `json:"rank"`
		} `json:"ranking"`
	}
	decodeBody(t, rec, &completed)
	require.Len(t, completed.Ranking, 1)
	assert.Equal(t, 8.0, completed.Ranking[0].AverageScore)
	assert.Equal(t, 1, completed.Ranking[0].Rank)

	// Completed rooms reject joins and further writes.
	rec = do(t, mux, http.MethodGet, "/scoring/join/"+created.RoomCode, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodPost, "/scoring/rooms/"+created.RoomID+"/scores", map[string]any{
		"judgeId":       judge.ID,
		"performanceId": perf.ID,
		"score":         3,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScoringValidationStatusCodes(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodPost, "/scoring", map[string]string{"hostName": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/scoring/join/NOPE99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/scoring/rooms/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDressCodeFlow(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodPost, "/dresscode", map[string]string{"hostName": "Gala"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		RoomCode string `json:"roomCode"`
	}
	decodeBody(t, rec, &created)

	photo := "data:image/jpeg;base64,dGVzdA=="
	for _, p := range []map[string]string{
		{"deviceId": "device-1", "name": "Dana", "photoURL": photo},
		{"deviceId": "device-2", "name": "Eli", "photoURL": photo},
	} {
		rec = do(t, mux, http.MethodPost, "/dresscode/rooms/"+created.RoomCode+"/submissions", p)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec = do(t, mux, http.MethodPost, "/dresscode/rooms/"+created.RoomCode+"/votes", map[string]any{
		"deviceId": "device-1",
		"votedFor": []string{"device-2"},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodGet, "/dresscode/rooms/"+created.RoomCode+"/status?deviceId=device-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		HasSubmitted bool `json:"hasSubmitted"`
		HasVoted     bool `json:"hasVoted"`
	}
	decodeBody(t, rec, &status)
	assert.True(t, status.HasSubmitted)
	assert.True(t, status.HasVoted)

	rec = do(t, mux, http.MethodPost, "/dresscode/rooms/"+created.RoomCode+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Votes after completion are rejected, but the room stays readable.
	rec = do(t, mux, http.MethodPost, "/dresscode/rooms/"+created.RoomCode+"/votes", map[string]any{
		"deviceId": "device-2",
		"votedFor": []string{"device-1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, mux, http.MethodGet, "/dresscode/rooms/"+created.RoomCode, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSpyFlow(t *testing.T) {
	mux := testRouter()

	rec := do(t, mux, http.MethodPost, "/spy", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		RoomID   string `json:"roomId"`
		RoomCode string `json:"roomCode"`
		HostID   string `json:"hostId"`
	}
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.HostID)

	playerIDs := make([]string, 0, 3)
	for _, name := range []string{"Ana", "Ben", "Cleo"} {
		rec = do(t, mux, http.MethodPost, "/spy/rooms/"+created.RoomID+"/players", map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code)
		var player struct {
			ID string `json:"id"`
		}
		decodeBody(t, rec, &player)
		playerIDs = append(playerIDs, player.ID)
	}

	rec = do(t, mux, http.MethodPost, "/spy/rooms/"+created.RoomID+"/start", map[string]any{
		"spyCount":        1,
		"civilianKeyword": "beach",
		"spyKeyword":      "pool",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodPost, "/spy/rooms/"+created.RoomID+"/eliminate", map[string]string{
		"playerId": playerIDs[1],
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodPost, "/spy/rooms/"+created.RoomID+"/end", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodGet, "/spy/join/"+created.RoomCode, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodPost, "/spy/rooms/"+created.RoomID+"/restart", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodGet, "/spy/join/"+created.RoomCode, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	mux := testRouter()

	req := httptest.NewRequest(http.MethodPost, "/scoring", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.validate())

	bad := testConfig()
	bad.port = 0
	assert.Error(t, bad.validate())

	bad = testConfig()
	bad.tlsCert = "/tmp/cert.pem"
	assert.Error(t, bad.validate())

	bad = testConfig()
	bad.roomTTL = 0
	assert.Error(t, bad.validate())

	bad = testConfig()
	bad.natsURL = "nats://localhost:4222"
	assert.Error(t, bad.validate())

	bad = testConfig()
	bad.natsURL = "nats://localhost:4222"
	bad.databaseURL = "postgres://localhost/roombox"
	assert.NoError(t, bad.validate())
}
