package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/screenwise/cinerag/internal/models"
	"github.com/screenwise/cinerag/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the wire envelope both directions of the socket use.
// Client types: "query", "init", "count", "clear".
// Server types: "status", "progress", "stream", "response", "done", "error".
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Config struct {
	// Streaming switches query answers between incremental "stream"
	// chunks and a single "response" message.
	Streaming bool
	// InitLimit caps how many popular titles an "init" request ingests.
	InitLimit int
}

// WSServer exposes the RAG pipeline to the browser UI over a websocket.
type WSServer struct {
	config  Config
	service *rag.Service
}

func NewWSServer(service *rag.Service, config Config) *WSServer {
	if config.InitLimit == 0 {
		config.InitLimit = 100
	}
	return &WSServer{
		config:  config,
		service: service,
	}
}

// Handler returns the HTTP mux with the websocket and health endpoints.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	switch msg.Type {
	case "init":
		s.handleInit(ctx, conn, msg.Content)
	case "query":
		s.handleQuery(ctx, conn, msg.Content)
	case "count":
		s.sendMessage(conn, "response", strconv.Itoa(s.service.DocumentCount()))
	case "clear":
		s.service.Clear()
		s.sendMessage(conn, "done", "cleared")
	default:
		s.sendMessage(conn, "error", "unknown message type: "+msg.Type)
	}
}

func (s *WSServer) handleInit(ctx context.Context, conn *websocket.Conn, content string) {
	limit := s.config.InitLimit
	if n, err := strconv.Atoi(strings.TrimSpace(content)); err == nil && n > 0 && n <= s.config.InitLimit {
		limit = n
	}

	s.sendMessage(conn, "status", "Collecting popular titles...")

	added, err := s.service.InitializePopular(ctx, models.KindMovie, limit, func(done, total int) {
		s.sendMessage(conn, "progress", strconv.Itoa(done)+"/"+strconv.Itoa(total))
	})
	if err != nil {
		s.sendMessage(conn, "error", "Failed to initialize: "+err.Error())
		return
	}

	s.sendMessage(conn, "done", strconv.Itoa(added)+" documents added")
}

func (s *WSServer) handleQuery(ctx context.Context, conn *websocket.Conn, query string) {
	if !s.config.Streaming {
		s.sendMessage(conn, "response", s.service.Answer(ctx, query))
		return
	}

	stream, err := s.service.AnswerStream(ctx, query)
	if err != nil {
		s.sendMessage(conn, "response", s.service.Answer(ctx, query))
		return
	}

	for chunk := range stream {
		s.sendMessage(conn, "stream", chunk)
	}
	s.sendMessage(conn, "done", "")
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
