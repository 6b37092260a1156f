package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wedding-builder/internal/models"
	"wedding-builder/internal/repository"
)

const maxBodySize = 1 << 20 // 1MB

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListInvitations(c *gin.Context) {
	invitations, err := s.store.ListInvitations(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if invitations == nil {
		invitations = []*models.Invitation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    invitations,
		"count":   len(invitations),
	})
}

func (s *Server) handleCreateInvitation(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}

	inv, err := s.store.CreateInvitation(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info().Str("invitation_id", inv.ID).Str("owner_id", inv.OwnerID).Msg("Invitation created")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    inv,
	})
}

func (s *Server) handleGetInvitation(c *gin.Context) {
	inv, err := s.store.GetOwnedInvitation(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inv,
	})
}

func (s *Server) handleUpdateInvitation(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}

	inv, err := s.store.UpdateInvitation(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inv,
	})
}

// handlePublishInvitation is called once checkout has completed
func (s *Server) handlePublishInvitation(c *gin.Context) {
	inv, err := s.store.PublishInvitation(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info().Str("invitation_id", inv.ID).Msg("Invitation published")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inv,
	})
}

func (s *Server) handleListRSVPs(c *gin.Context) {
	inv, err := s.store.GetOwnedInvitation(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	responses, err := s.store.ListRSVPs(c.Request.Context(), inv.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if responses == nil {
		responses = []models.RSVPResponse{}
	}

	attending := 0
	for _, r := range responses {
		if r.Attending {
			attending += r.GuestCount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      responses,
		"count":     len(responses),
		"attending": attending,
	})
}

func (s *Server) handlePublicInvitation(c *gin.Context) {
	inv, err := s.publishedInvitation(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inv.Public(),
	})
}

func (s *Server) handleSubmitRSVP(c *gin.Context) {
	inv, err := s.publishedInvitation(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := BuildRSVP(inv, req, s.now())
	if err != nil {
		s.respondError(c, err)
		return
	}

	saved, err := s.store.SaveRSVP(c.Request.Context(), resp)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info().Str("invitation_id", inv.ID).Bool("attending", saved.Attending).Msg("RSVP received")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    saved,
	})
}

func (s *Server) publishedInvitation(c *gin.Context) (*models.Invitation, error) {
	inv, err := s.store.GetInvitation(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	// drafts are private
	if !inv.Published() {
		return nil, repository.ErrNotFound
	}
	return inv, nil
}

func bindInput(c *gin.Context) (models.InvitationInput, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var in models.InvitationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return in, false
	}
	if in.Plan != "" && !in.Plan.Valid() {
		abortError(c, http.StatusBadRequest, "unknown plan")
		return in, false
	}
	return in, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	var rsvpErr *RSVPError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		abortError(c, http.StatusNotFound, "invitation not found")
	case errors.Is(err, repository.ErrPublished):
		abortError(c, http.StatusConflict, "invitation is published and can no longer be edited")
	case errors.As(err, &rsvpErr):
		abortError(c, rsvpErr.Status, rsvpErr.Message)
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		abortError(c, http.StatusInternalServerError, "internal error")
	}
}
