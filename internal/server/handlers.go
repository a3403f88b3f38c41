package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/rxguard/internal/auth"
	"github.com/Skufu/rxguard/internal/store"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handlers) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	case errors.Is(err, auth.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
	case errors.Is(err, store.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
	}
}

func (h *handlers) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	username, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success", "username": username})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
	}
}

func (h *handlers) history(c *gin.Context) {
	patientID := strings.TrimSpace(c.Query("patient_id"))
	if patientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patient_id is required"})
		return
	}

	reports, err := h.repo.ReportsForPatient(c.Request.Context(), patientID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if reports == nil {
		reports = []store.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": reports})
}

func (h *handlers) drugs(c *gin.Context) {
	drugs, err := h.repo.SearchDrugs(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search drugs"})
		return
	}
	if drugs == nil {
		drugs = []store.Drug{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": drugs})
}
