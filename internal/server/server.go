package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding-builder/internal/models"
)

// Store is the persistence the API serves from
type Store interface {
	CreateInvitation(ctx context.Context, ownerID string, in models.InvitationInput) (*models.Invitation, error)
	GetInvitation(ctx context.Context, id string) (*models.Invitation, error)
	GetOwnedInvitation(ctx context.Context, ownerID, id string) (*models.Invitation, error)
	UpdateInvitation(ctx context.Context, ownerID, id string, in models.InvitationInput) (*models.Invitation, error)
	ListInvitations(ctx context.Context, ownerID string) ([]*models.Invitation, error)
	PublishInvitation(ctx context.Context, ownerID, id string) (*models.Invitation, error)
	SaveRSVP(ctx context.Context, resp models.RSVPResponse) (*models.RSVPResponse, error)
	ListRSVPs(ctx context.Context, invitationID string) ([]models.RSVPResponse, error)
}

// Authenticator validates bearer tokens
type Authenticator interface {
	Validate(token string) (uuid.UUID, error)
}

// Config holds router settings
type Config struct {
	AllowedOrigins []string
}

// Server is the invitation API
type Server struct {
	store  Store
	auth   Authenticator
	router *gin.Engine
	log    zerolog.Logger
	now    func() time.Time
}

// NewServer creates the API server and its routes
func NewServer(store Store, auth Authenticator, logger zerolog.Logger, cfg Config) *Server {
	router := gin.New()

	s := &Server{
		store:  store,
		auth:   auth,
		router: router,
		log:    logger.With().Str("component", "API").Logger(),
		now:    time.Now,
	}

	router.Use(gin.Recovery(), s.requestLogger())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		public := api.Group("/public")
		public.GET("/invitations/:id", s.handlePublicInvitation)
		public.POST("/invitations/:id/rsvp", s.handleSubmitRSVP)

		protected := api.Group("/")
		protected.Use(s.requireAuth())
		protected.GET("/invitations", s.handleListInvitations)
		protected.POST("/invitations", s.handleCreateInvitation)
		protected.GET("/invitations/:id", s.handleGetInvitation)
		protected.PUT("/invitations/:id", s.handleUpdateInvitation)
		protected.POST("/invitations/:id/publish", s.handlePublishInvitation)
		protected.GET("/invitations/:id/rsvps", s.handleListRSVPs)
	}

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
