package experiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAPIStore(t *testing.T, handler http.HandlerFunc) (*APIStore, *logger.TestLogger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	client := apiclient.New(apiclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, log)
	return NewAPIStore(client, log), log
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestAPIStore_List(t *testing.T) {
	store, _ := setupAPIStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/experiments/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		respond(w, http.StatusOK, `[
			{"id": 2, "agent_id": 1, "status": "completed", "input_data": {"prompt": "x"},
			 "result": {"output": "done"}, "created_at": "2024-03-01T10:00:00"},
			{"id": 1, "agent_id": 1, "status": "pending", "input_data": {}, "created_at": null}
		]`)
	})

	ctx := apiclient.WithToken(context.Background(), "tok")
	experiments, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, experiments, 2)
	assert.Equal(t, int64(2), experiments[0].ID)
	assert.Equal(t, StatusCompleted, experiments[0].Status)
	assert.Equal(t, "done", experiments[0].Output())
	require.NotNil(t, experiments[0].CreatedAt)
	assert.Equal(t, time.March, experiments[0].CreatedAt.Month())
	assert.Equal(t, StatusPending, experiments[1].Status)
}

func TestAPIStore_List_UnknownStatus(t *testing.T) {
	store, log := setupAPIStore(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `[
			{"id": 3, "agent_id": 1, "status": "queued"},
			{"id": 2, "agent_id": 1, "status": "running"}
		]`)
	})

	experiments, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, experiments, 2)
	assert.Equal(t, CategoryOther, experiments[0].Status.Category())

	var warned []interface{}
	for _, e := range log.Entries() {
		if e.Level == "warn" && e.Message == "unknown experiment status" {
			warned = append(warned, e.Fields["experiment_id"])
		}
	}
	assert.Equal(t, []interface{}{int64(3)}, warned)
}

func TestAPIStore_List_Error(t *testing.T) {
	store, _ := setupAPIStore(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`)
	})

	_, err := store.List(context.Background())
	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))
}

func TestAPIStore_Get(t *testing.T) {
	store, _ := setupAPIStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/experiments/5" {
			respond(w, http.StatusOK, `{"id": 5, "agent_id": 2, "status": "failed", "error": "boom"}`)
			return
		}
		respond(w, http.StatusNotFound, `{"detail": "Experiment not found"}`)
	})

	e, err := store.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, e.Status)
	assert.Equal(t, "boom", e.ResultError())

	_, err = store.Get(context.Background(), 6)
	assert.ErrorIs(t, err, ErrExperimentNotFound)
}

func TestAPIStore_Create(t *testing.T) {
	var got CreateRequest
	store, log := setupAPIStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/experiments/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(w, http.StatusOK, `{"id": 9, "agent_id": 4, "status": "pending", "input_data": {"prompt": "go"}}`)
	})

	e, err := store.Create(context.Background(), CreateRequest{
		AgentID:   4,
		InputData: map[string]interface{}{"prompt": "go"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(9), e.ID)
	assert.Equal(t, int64(4), got.AgentID)
	assert.Equal(t, "go", got.InputData["prompt"])
	assert.True(t, log.HasMessage("info", "experiment created"))
}
