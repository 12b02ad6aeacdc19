package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/liberianpost/healthgate/core"
)

// PortalHandlers contains the dev portal's HTTP handlers.
type PortalHandlers struct {
	portal *Portal
}

// NewPortalHandlers creates handlers over one portal state.
func NewPortalHandlers(portal *Portal) *PortalHandlers {
	return &PortalHandlers{portal: portal}
}

// VerifyDSSN handles the DSSN pre-check for both scopes.
func (h *PortalHandlers) VerifyDSSN(c *gin.Context) {
	var req struct {
		DSSN string `json:"dssn" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if _, err := core.ParseDSSN(req.DSSN); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "DSSN must be 15-20 alphanumeric characters"})
		return
	}

	h.portal.mu.Lock()
	user, ok := h.portal.users[req.DSSN]
	h.portal.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No user found with this DSSN"})
		return
	}

	h.portal.record("verify-dssn", req.DSSN, c.Param("scope"))
	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"user":                 user.Profile,
		"isProfessional":       user.IsProfessional && user.Approved,
		"requiresRegistration": !user.IsProfessional,
	})
}

// Login handles the basic password login, returning a bare token.
func (h *PortalHandlers) Login(c *gin.Context) {
	var req struct {
		DSSN     string `json:"dssn" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	user, ok := h.authenticate(req.DSSN, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid DSSN or password"})
		return
	}

	sess := h.portal.createSession(req.DSSN)
	access, _, err := h.portal.tokens.IssuePair(req.DSSN, sess.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to issue token"})
		return
	}

	h.portal.record("login", req.DSSN, c.Param("scope"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user.Profile,
		"token":   access,
	})
}

// ProfessionalLogin handles the enhanced login, returning a token pair and
// a session.
func (h *PortalHandlers) ProfessionalLogin(c *gin.Context) {
	var req struct {
		DSSN       string `json:"dssn" binding:"required"`
		Password   string `json:"password" binding:"required"`
		ModuleType string `json:"moduleType" binding:"required"`
		RememberMe bool   `json:"rememberMe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if _, err := core.ParseScope(req.ModuleType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown module type"})
		return
	}

	user, ok := h.authenticate(req.DSSN, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid DSSN or password"})
		return
	}
	if !user.IsProfessional || !user.Approved {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Professional profile not approved"})
		return
	}

	sess := h.portal.createSession(req.DSSN)
	access, refresh, err := h.portal.tokens.IssuePair(req.DSSN, sess.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to issue tokens"})
		return
	}

	h.portal.record("professional-login", req.DSSN, req.ModuleType)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user.Profile,
		"tokens":  gin.H{"accessToken": access, "refreshToken": refresh},
		"session": gin.H{"sessionId": sess.ID},
	})
}

// RequestMobileAuth creates a mobile-approval challenge.
func (h *PortalHandlers) RequestMobileAuth(c *gin.Context) {
	var req struct {
		DSSN       string `json:"dssn" binding:"required"`
		ModuleType string `json:"moduleType" binding:"required"`
		FCMToken   string `json:"fcmToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	scope, err := core.ParseScope(req.ModuleType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown module type"})
		return
	}

	h.portal.mu.Lock()
	user, ok := h.portal.users[req.DSSN]
	h.portal.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No user found with this DSSN"})
		return
	}

	ch := h.portal.createChallenge(core.DSSN(req.DSSN), scope, req.FCMToken)

	// The dev portal has no push provider; delivery succeeds when the
	// directory knows the device.
	delivery := core.PushDelivery{HasToken: user.PushToken != ""}
	delivery.Sent = delivery.HasToken && user.PushToken == req.FCMToken
	if !delivery.Sent && delivery.HasToken {
		delivery.Error = "token mismatch"
	}

	h.portal.record("mobile-auth", req.DSSN, ch.ID)
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"challengeId":      ch.ID,
		"pushNotification": delivery,
	})
}

// MobileAuthStatus reports one challenge's lifecycle state.
func (h *PortalHandlers) MobileAuthStatus(c *gin.Context) {
	ch, ok := h.portal.challengeStatus(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Unknown challenge"})
		return
	}

	resp := gin.H{"success": true, "status": ch.Status}
	if ch.Status == core.StatusApproved {
		h.portal.mu.Lock()
		user := h.portal.users[ch.DSSN.String()]
		h.portal.mu.Unlock()

		sess := h.portal.createSession(ch.DSSN.String())
		access, _, err := h.portal.tokens.IssuePair(ch.DSSN.String(), sess.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to issue token"})
			return
		}
		resp["token"] = access
		resp["sessionId"] = sess.ID
		if user != nil {
			resp["user"] = user.Profile
		}
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterProfessional handles the public registration intake, enforcing
// the duplicate/unknown taxonomy the real backend reports.
func (h *PortalHandlers) RegisterProfessional(c *gin.Context) {
	var draft core.RegistrationDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if err := draft.ValidateIdentity(time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err := draft.ValidateFacility(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	h.portal.mu.Lock()
	defer h.portal.mu.Unlock()

	user, ok := h.portal.users[draft.DSSN]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No user found with this DSSN. Please register through the Digital Liberia mobile app first."})
		return
	}
	if user.IsProfessional && user.Approved {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "A professional profile with this DSSN already exists and is already approved."})
		return
	}
	for _, reg := range h.portal.registrations {
		if reg.Status != "pending" {
			continue
		}
		if reg.Draft.DSSN == draft.DSSN {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "A professional profile is already registered with this DSSN and is pending review."})
			return
		}
		if reg.Draft.LicenseNumber == draft.LicenseNumber {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "License number already registered."})
			return
		}
	}

	reg := &pendingRegistration{
		ID:          uuid.New().String(),
		Draft:       draft,
		Status:      "pending",
		SubmittedAt: time.Now(),
	}
	h.portal.registrations[reg.ID] = reg
	h.portal.logs = append(h.portal.logs, logEntry{
		At:     time.Now(),
		Action: "register-professional",
		Actor:  draft.DSSN,
		Detail: reg.ID,
	})

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Registration submitted for review"})
}

// ValidateSession checks a persisted session id.
func (h *PortalHandlers) ValidateSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	h.portal.mu.Lock()
	_, ok := h.portal.sessions[req.SessionID]
	h.portal.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session is no longer valid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout invalidates a session id.
func (h *PortalHandlers) Logout(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	h.portal.mu.Lock()
	sess, ok := h.portal.sessions[req.SessionID]
	delete(h.portal.sessions, req.SessionID)
	h.portal.mu.Unlock()

	if ok && h.portal.events != nil {
		_ = h.portal.events.PublishLogout(c.Request.Context(), sess.DSSN, sess.ID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// RefreshToken exchanges a refresh token for a new pair.
func (h *PortalHandlers) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	dssn, sessionID, err := h.portal.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid refresh token"})
		return
	}
	h.portal.mu.Lock()
	_, ok := h.portal.sessions[sessionID]
	h.portal.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session is no longer valid"})
		return
	}

	access, refresh, err := h.portal.tokens.IssuePair(dssn, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tokens":  gin.H{"accessToken": access, "refreshToken": refresh},
	})
}

// Dashboard returns the authenticated professional's dashboard.
func (h *PortalHandlers) Dashboard(c *gin.Context) {
	dssn := c.GetString(ctxKeyDSSN)

	h.portal.mu.Lock()
	user := h.portal.users[dssn]
	pending := 0
	for _, reg := range h.portal.registrations {
		if reg.Status == "pending" {
			pending++
		}
	}
	logCount := len(h.portal.logs)
	h.portal.mu.Unlock()

	resp := gin.H{
		"success": true,
		"stats": gin.H{
			"pendingRegistrations": pending,
			"accessLogEntries":     logCount,
		},
	}
	if user != nil {
		resp["professional"] = user.Profile
	}
	c.JSON(http.StatusOK, resp)
}

// Profile returns the authenticated professional's profile.
func (h *PortalHandlers) Profile(c *gin.Context) {
	dssn := c.GetString(ctxKeyDSSN)

	h.portal.mu.Lock()
	user, ok := h.portal.users[dssn]
	h.portal.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "professional": user.Profile})
}

// AccessLogs returns the most recent log entries, newest last.
func (h *PortalHandlers) AccessLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 50
	}

	h.portal.mu.Lock()
	entries := h.portal.logs
	if offset > len(entries) {
		offset = len(entries)
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"timestamp": e.At.UTC().Format(time.RFC3339),
			"action":    e.Action,
			"actor":     e.Actor,
			"detail":    e.Detail,
		})
	}
	h.portal.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "logs": out})
}

// PendingProfessionals lists registrations awaiting review.
func (h *PortalHandlers) PendingProfessionals(c *gin.Context) {
	h.portal.mu.Lock()
	out := make([]gin.H, 0)
	for _, reg := range h.portal.registrations {
		if reg.Status != "pending" {
			continue
		}
		out = append(out, gin.H{
			"id":               reg.ID,
			"dssn":             reg.Draft.DSSN,
			"professionalType": reg.Draft.ProfessionalType,
			"licenseNumber":    reg.Draft.LicenseNumber,
			"facilityName":     reg.Draft.FacilityName,
			"submittedAt":      reg.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}
	h.portal.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "professionals": out})
}

// VerifyProfessionalAdmin records an admin decision on a registration.
func (h *PortalHandlers) VerifyProfessionalAdmin(c *gin.Context) {
	var req struct {
		ProfessionalID string   `json:"professionalId" binding:"required"`
		Status         string   `json:"status" binding:"required"`
		Permissions    []string `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if req.Status != "approved" && req.Status != "denied" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status must be approved or denied"})
		return
	}

	h.portal.mu.Lock()
	reg, ok := h.portal.registrations[req.ProfessionalID]
	if ok && reg.Status == "pending" {
		reg.Status = req.Status
		if req.Status == "approved" {
			if user, exists := h.portal.users[reg.Draft.DSSN]; exists {
				user.IsProfessional = true
				user.Approved = true
			}
		}
	} else {
		ok = false
	}
	h.portal.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No pending registration with that id"})
		return
	}
	h.portal.record("admin-verify", c.GetString(ctxKeyDSSN), req.ProfessionalID+" "+req.Status)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Decision recorded"})
}

// ApproveChallenge is the dev stand-in for the phone's approve action.
func (h *PortalHandlers) ApproveChallenge(c *gin.Context) {
	h.resolve(c, core.StatusApproved)
}

// DenyChallenge is the dev stand-in for the phone's deny action.
func (h *PortalHandlers) DenyChallenge(c *gin.Context) {
	h.resolve(c, core.StatusDenied)
}

func (h *PortalHandlers) resolve(c *gin.Context, status core.ChallengeStatus) {
	if !h.portal.ResolveChallenge(c.Request.Context(), c.Param("id"), status) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No pending challenge with that id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PortalHandlers) authenticate(dssn, password string) (*DirectoryUser, bool) {
	h.portal.mu.Lock()
	defer h.portal.mu.Unlock()
	user, ok := h.portal.users[dssn]
	if !ok || user.Password != password {
		return nil, false
	}
	return user, true
}
