// Package server is the HTTP surface: identity resolution, request
// binding, and the mapping from routed results to response statuses.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finadvisor-poc/server/internal/advisor"
	errx "github.com/finadvisor-poc/server/internal/core/error"
	"github.com/finadvisor-poc/server/internal/history"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Config tunes the HTTP listener.
type Config struct {
	Addr string `envconfig:"SERVER_ADDR" default:":8080"`
	Mode string `envconfig:"GIN_MODE" default:"release"`
}

// QueryRouter is the routed-query surface the server depends on.
// advisor.Router is the production implementation.
type QueryRouter interface {
	Route(ctx context.Context, conv advisor.Conversation) (*advisor.Result, error)
}

type Server struct {
	engine *gin.Engine
	router QueryRouter
	store  history.Store
}

func New(cfg Config, router QueryRouter, store history.Store, auth Validator) *Server {
	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(), Auth(auth))

	s := &Server{engine: engine, router: router, store: store}
	engine.GET("/agent/chat", s.info)
	engine.POST("/agent/chat", s.chat)
	engine.POST("/agent/session", s.newSession)
	return s
}

// Run blocks serving on the configured address.
func (s *Server) Run(cfg Config) error {
	logx.Info().Str("addr", cfg.Addr).Msg("starting http server")
	return s.engine.Run(cfg.Addr)
}

// ServeHTTP makes the server mountable and testable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":    "finadvisor",
		"status":     "ok",
		"categories": advisor.Categories(),
		"suggestions": []string{
			"How is my portfolio performing?",
			"Should I re-balance my investments?",
			"Help me plan for buying a house",
		},
	})
}

type chatRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response   string  `json:"response"`
	SessionID  string  `json:"session_id"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	userID := c.GetString(userKey)
	ctx := c.Request.Context()

	res, err := s.router.Route(ctx, advisor.Conversation{
		UserID:    userID,
		SessionID: req.SessionID,
		Query:     req.Query,
		Store:     s.store,
	})
	if err != nil {
		msg := errx.SystemErrorMessage
		var ae *errx.AppError
		if errors.As(err, &ae) {
			msg = ae.Message
		}
		logx.Error().Err(err).Str(userKey, userID).Str("session_id", req.SessionID).
			Msg("query handling failed")
		c.JSON(errx.StatusOf(err, http.StatusInternalServerError), gin.H{"error": msg, "session_id": req.SessionID})
		return
	}
	if res.Status != advisor.StatusSuccess {
		c.JSON(http.StatusBadRequest, gin.H{"error": res.Message, "session_id": req.SessionID})
		return
	}

	// the turn is recorded only once an answer exists, user first
	if err := s.store.Append(ctx, userID, req.SessionID, history.RoleUser, req.Query); err != nil {
		c.JSON(errx.StatusOf(err, http.StatusBadGateway), gin.H{"error": errx.StorageErrorMessage})
		return
	}
	if err := s.store.Append(ctx, userID, req.SessionID, history.RoleAssistant, res.Message); err != nil {
		c.JSON(errx.StatusOf(err, http.StatusBadGateway), gin.H{"error": errx.StorageErrorMessage})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:   res.Message,
		SessionID:  req.SessionID,
		Category:   string(res.Category),
		Confidence: res.Confidence,
	})
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// newSession opens a fresh session for the user. All of the user's prior
// sessions are discarded, the one-active-session policy, so clients should
// warn before calling this on a user with ongoing conversations.
func (s *Server) newSession(c *gin.Context) {
	var req sessionRequest
	_ = c.ShouldBindJSON(&req)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	userID := c.GetString(userKey)

	if err := s.store.StartNewSession(c.Request.Context(), userID, req.SessionID); err != nil {
		c.JSON(errx.StatusOf(err, http.StatusBadGateway), gin.H{"error": errx.StorageErrorMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": req.SessionID})
}
