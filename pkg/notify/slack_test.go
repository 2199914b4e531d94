package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackSink_Notify_PostsBlocksToChannel(t *testing.T) {
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("blocks")), &struct{}{}))
		captured = map[string]any{
			"channel": r.FormValue("channel"),
			"blocks":  r.FormValue("blocks"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1234.5678"}`))
	}))
	defer srv.Close()

	sink := NewSlackSinkWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	err := sink.Notify(context.Background(), Notification{
		Title:  "Circuit breaker opened",
		Body:   "provider openai: closed -> open",
		Fields: map[string]string{"provider": "openai"},
	})
	require.NoError(t, err)
	assert.Equal(t, "C123", captured["channel"])
	assert.Contains(t, captured["blocks"], "Circuit breaker opened")
}

func TestBuildBlocks_IncludesSortedFields(t *testing.T) {
	blocks := buildBlocks(Notification{
		Title:  "Task failed",
		Body:   "boom",
		Fields: map[string]string{"task_id": "t1", "attempt": "3"},
	})
	require.Len(t, blocks, 1)
}
