package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/safar/farmmarket/internal/models"
)

type profileRequest struct {
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Role          models.Role `json:"role"`
	LocationLabel *string     `json:"locationLabel,omitempty"`
}

func (s *Server) getOwnProfile(c *gin.Context) {
	s.respondProfile(c, userID(c))
}

func (s *Server) getProfile(c *gin.Context) {
	s.respondProfile(c, c.Param("id"))
}

func (s *Server) respondProfile(c *gin.Context, id string) {
	profile, err := s.profiles.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (s *Server) upsertProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	profile, err := s.profiles.Upsert(c.Request.Context(), models.UserProfile{
		ID:            userID(c),
		Name:          req.Name,
		Phone:         req.Phone,
		Role:          req.Role,
		LocationLabel: req.LocationLabel,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (s *Server) uploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.badRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.badRequest(c, "unreadable upload: "+err.Error())
		return
	}
	defer f.Close()

	url, err := s.profiles.SetAvatar(c.Request.Context(), userID(c), filepath.Ext(fh.Filename), fh.Header.Get("Content-Type"), f)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatarRef": url})
}
