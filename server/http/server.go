package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type Server struct {
	options    Options
	router     *mux.Router
	httpServer *http.Server
}

func (s *Server) Run() error {
	slog.InfoContext(s.options.Context, "http server listening", "address", s.options.Address)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func NewServer(opts ...Option) *Server {
	options := NewOptions(opts...)

	s := &Server{
		options: options,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(s.authenticate))
	for _, m := range options.Middleware {
		api.Use(mux.MiddlewareFunc(m))
	}

	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/confirm-tool", s.handleConfirmTool).Methods(http.MethodPost)
	api.HandleFunc("/chats", s.handleListChats).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}/messages", s.handleChatMessages).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}/rename", s.handleRenameChat).Methods(http.MethodPost)
	api.HandleFunc("/source-documents", s.handleSourceDocuments).Methods(http.MethodPost)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              options.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}
