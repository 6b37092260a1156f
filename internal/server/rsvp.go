package server

import (
	"net/http"
	"strings"
	"time"

	"wedding-builder/internal/models"
)

// RSVPRequest is a guest's reply as posted by the public page
type RSVPRequest struct {
	GuestName   string            `json:"guestName" binding:"required"`
	Email       string            `json:"email"`
	Attending   *bool             `json:"attending" binding:"required"`
	GuestCount  int               `json:"guestCount"`
	PlusOneName string            `json:"plusOneName"`
	Dietary     string            `json:"dietary"`
	Message     string            `json:"message"`
	Song        string            `json:"song"`
	Answers     map[string]string `json:"answers"`
}

// RSVPError is a reply the invitation does not accept
type RSVPError struct {
	Status  int
	Message string
}

func (e *RSVPError) Error() string { return e.Message }

// BuildRSVP validates req against the invitation and keeps only the inputs
// its plan offers.
func BuildRSVP(inv *models.Invitation, req RSVPRequest, now time.Time) (models.RSVPResponse, error) {
	cfg := inv.RSVPConfig
	if !cfg.Enabled {
		return models.RSVPResponse{}, &RSVPError{Status: http.StatusForbidden, Message: "this invitation does not collect replies"}
	}
	if cfg.DeadlinePassed(now) {
		return models.RSVPResponse{}, &RSVPError{Status: http.StatusGone, Message: "the reply deadline has passed"}
	}

	name := strings.TrimSpace(req.GuestName)
	if name == "" {
		return models.RSVPResponse{}, &RSVPError{Status: http.StatusBadRequest, Message: "guest name is required"}
	}

	fields := models.EffectiveFields(inv.Plan, cfg)
	resp := models.RSVPResponse{
		InvitationID: inv.ID,
		GuestName:    name,
		Email:        strings.TrimSpace(req.Email),
		Attending:    *req.Attending,
		SubmittedAt:  now.UTC(),
	}

	if !resp.Attending {
		if fields.Message {
			resp.Message = req.Message
		}
		return resp, nil
	}

	resp.GuestCount = 1
	if fields.PlusOne {
		if req.GuestCount > 1 {
			resp.GuestCount = 2
		}
		if req.PlusOneName != "" {
			resp.GuestCount = 2
			resp.PlusOneName = strings.TrimSpace(req.PlusOneName)
		}
	}
	if fields.Dietary {
		resp.Dietary = req.Dietary
	}
	if fields.Message {
		resp.Message = req.Message
	}
	if fields.Song {
		resp.Song = req.Song
	}

	for _, q := range models.EffectiveQuestions(inv.Plan, cfg) {
		answer := strings.TrimSpace(req.Answers[q.ID])
		if answer == "" {
			if q.Required {
				return models.RSVPResponse{}, &RSVPError{Status: http.StatusBadRequest, Message: "missing answer: " + q.Question}
			}
			continue
		}
		if resp.Answers == nil {
			resp.Answers = make(map[string]string)
		}
		resp.Answers[q.ID] = answer
	}

	return resp, nil
}
