package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/screenwise/cinerag/pkg/catalog"
	"github.com/screenwise/cinerag/pkg/collector"
	"github.com/screenwise/cinerag/pkg/llm"
	"github.com/screenwise/cinerag/pkg/rag"
	"github.com/screenwise/cinerag/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog serves a tiny two-item popular listing plus the per-item
// endpoints the collector fans out to.
func fakeCatalog() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

		if len(parts) == 2 && parts[1] == "popular" {
			json.NewEncoder(w).Encode(catalog.ListingPage{
				Page:       1,
				Results:    []catalog.Detail{{ID: 1}, {ID: 2}},
				TotalPages: 1,
			})
			return
		}

		id, _ := strconv.Atoi(parts[1])
		switch {
		case len(parts) == 2:
			json.NewEncoder(w).Encode(catalog.Detail{
				ID:          id,
				Title:       fmt.Sprintf("Movie %d", id),
				ReleaseDate: "2016-03-04",
				Overview:    "An overview.",
				Genres:      []catalog.Named{{Name: "Animation"}},
			})
		case parts[2] == "credits":
			json.NewEncoder(w).Encode(catalog.Credits{})
		case parts[2] == "keywords":
			json.NewEncoder(w).Encode(catalog.Keywords{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestServer(t *testing.T, streaming bool) *httptest.Server {
	t.Helper()

	catalogServer := httptest.NewServer(fakeCatalog())
	t.Cleanup(catalogServer.Close)

	client, err := catalog.NewWithConfig(catalog.ClientConfig{
		BaseURL:   catalogServer.URL,
		RateLimit: 1000,
	})
	require.NoError(t, err)

	coll := collector.NewWithConfig(client, collector.CollectorConfig{Workers: 2})
	embedder := llm.NewEmbedderWithClient(nil, llm.EmbedderConfig{}, coll)
	chat := llm.NewWithModel(nil, llm.ChatConfig{})
	vs := store.NewWithConfig(store.NewMemoryKV(), store.VectorStoreConfig{SnapshotKey: "test"})

	service := rag.NewWithConfig(coll, embedder, vs, chat, rag.ServiceConfig{})

	ws := NewWSServer(service, Config{Streaming: streaming, InitLimit: 10})
	server := httptest.NewServer(ws.Handler())
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil drains messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) Message {
	t.Helper()

	for i := 0; i < 50; i++ {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == msgType || msg.Type == "error" {
			return msg
		}
	}
	t.Fatalf("never received %q", msgType)
	return Message{}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, false)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInitAndCount(t *testing.T) {
	server := newTestServer(t, false)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(Message{Type: "init", Content: "2"}))
	done := readUntil(t, conn, "done")
	assert.Equal(t, "2 documents added", done.Content)

	require.NoError(t, conn.WriteJSON(Message{Type: "count"}))
	count := readUntil(t, conn, "response")
	assert.Equal(t, "2", count.Content)
}

func TestQueryFallbackResponse(t *testing.T) {
	server := newTestServer(t, false)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(Message{Type: "init", Content: "2"}))
	readUntil(t, conn, "done")

	// No chat credential: the query still gets a deterministic answer
	require.NoError(t, conn.WriteJSON(Message{Type: "query", Content: "movie 1"}))
	resp := readUntil(t, conn, "response")
	assert.Contains(t, resp.Content, "Movie 1")
}

func TestQueryStreaming(t *testing.T) {
	server := newTestServer(t, true)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(Message{Type: "query", Content: "anything"}))

	var chunks []string
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "done" {
			break
		}
		require.Equal(t, "stream", msg.Type)
		chunks = append(chunks, msg.Content)
	}
	assert.NotEmpty(t, chunks)
}

func TestClearMessage(t *testing.T) {
	server := newTestServer(t, false)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(Message{Type: "init", Content: "2"}))
	readUntil(t, conn, "done")

	require.NoError(t, conn.WriteJSON(Message{Type: "clear"}))
	done := readUntil(t, conn, "done")
	assert.Equal(t, "cleared", done.Content)

	require.NoError(t, conn.WriteJSON(Message{Type: "count"}))
	count := readUntil(t, conn, "response")
	assert.Equal(t, "0", count.Content)
}

func TestUnknownMessageType(t *testing.T) {
	server := newTestServer(t, false)
	conn := dialWS(t, server)

	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))
	msg := readUntil(t, conn, "error")
	assert.Contains(t, msg.Content, "unknown message type")
}
