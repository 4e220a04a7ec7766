package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildsync/guild"
	mw "github.com/kasuganosora/guildsync/middleware"
)

// GuildHandler exposes guild operations over REST. Every mutation goes
// through the guild service; reads come straight from the registry.
type GuildHandler struct {
	svc *guild.Service
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(svc *guild.Service) *GuildHandler {
	return &GuildHandler{svc: svc}
}

// fail translates service sentinels into HTTP statuses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guild.ErrNoSuchGuild),
		errors.Is(err, guild.ErrNoHome):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, guild.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, guild.ErrDuplicateName),
		errors.Is(err, guild.ErrAlreadyAMember),
		errors.Is(err, guild.ErrAlreadyInvited),
		errors.Is(err, guild.ErrAlreadyAllied):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, guild.ErrStoreUnavailable),
		errors.Is(err, guild.ErrTransportUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

type createGuildRequest struct {
	Name string `json:"name" binding:"required,min=2,max=32"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	var req createGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := h.svc.Create(c.Request.Context(), mw.GetPlayerID(c), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// List handles GET /api/guilds.
func (h *GuildHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count": h.svc.Registry().Count(),
		"names": h.svc.Registry().Names(),
	})
}

// Detail handles GET /api/guilds/:id.
func (h *GuildHandler) Detail(c *gin.Context) {
	info, ok := h.svc.Registry().Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "guild not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Mine handles GET /api/guild: the caller's own guild.
func (h *GuildHandler) Mine(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	guildID, ok := h.svc.Registry().FindByPlayer(playerID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not in a guild"})
		return
	}
	info, _ := h.svc.Registry().Snapshot(guildID)
	c.JSON(http.StatusOK, info)
}

// Join handles POST /api/guilds/:id/join.
func (h *GuildHandler) Join(c *gin.Context) {
	if err := h.svc.Join(c.Request.Context(), mw.GetPlayerID(c), c.Param("id"), false); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// Quit handles POST /api/guild/quit.
func (h *GuildHandler) Quit(c *gin.Context) {
	if err := h.svc.Quit(c.Request.Context(), mw.GetPlayerID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// Disband handles POST /api/guild/disband.
func (h *GuildHandler) Disband(c *gin.Context) {
	if err := h.svc.Disband(c.Request.Context(), mw.GetPlayerID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disbanded"})
}

type targetPlayerRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// Invite handles POST /api/guild/invites.
func (h *GuildHandler) Invite(c *gin.Context) {
	var req targetPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Invite(c.Request.Context(), mw.GetPlayerID(c), req.PlayerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invited"})
}

// RevokeInvite handles DELETE /api/guild/invites/:pid.
func (h *GuildHandler) RevokeInvite(c *gin.Context) {
	if err := h.svc.RevokeInvite(c.Request.Context(), mw.GetPlayerID(c), c.Param("pid")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "revoked"})
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Deposit handles POST /api/guild/deposit.
func (h *GuildHandler) Deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Deposit(c.Request.Context(), mw.GetPlayerID(c), req.Amount); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deposited"})
}

// Withdraw handles POST /api/guild/withdraw.
func (h *GuildHandler) Withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Withdraw(c.Request.Context(), mw.GetPlayerID(c), req.Amount); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "withdrawn"})
}

type homeRequest struct {
	World string  `json:"world" binding:"required"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Home handles GET /api/guild/home.
func (h *GuildHandler) Home(c *gin.Context) {
	loc, err := h.svc.Home(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// SetHome handles PUT /api/guild/home.
func (h *GuildHandler) SetHome(c *gin.Context) {
	var req homeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loc := guild.Location{World: req.World, X: req.X, Y: req.Y, Z: req.Z}
	if err := h.svc.SetHome(c.Request.Context(), mw.GetPlayerID(c), loc); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "home set"})
}

// DelHome handles DELETE /api/guild/home.
func (h *GuildHandler) DelHome(c *gin.Context) {
	if err := h.svc.DelHome(c.Request.Context(), mw.GetPlayerID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "home cleared"})
}

// Kick handles POST /api/guild/kick.
func (h *GuildHandler) Kick(c *gin.Context) {
	var req targetPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Kick(c.Request.Context(), mw.GetPlayerID(c), req.PlayerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "kicked"})
}

// Promote handles POST /api/guild/promote.
func (h *GuildHandler) Promote(c *gin.Context) {
	var req targetPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Promote(c.Request.Context(), mw.GetPlayerID(c), req.PlayerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "promoted"})
}

// Demote handles POST /api/guild/demote.
func (h *GuildHandler) Demote(c *gin.Context) {
	var req targetPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Demote(c.Request.Context(), mw.GetPlayerID(c), req.PlayerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "demoted"})
}

// Transfer handles POST /api/guild/transfer.
func (h *GuildHandler) Transfer(c *gin.Context) {
	var req targetPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Transfer(c.Request.Context(), mw.GetPlayerID(c), req.PlayerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transferred"})
}

// ToggleChatMode handles POST /api/guild/chatmode.
func (h *GuildHandler) ToggleChatMode(c *gin.Context) {
	mode, err := h.svc.ToggleChatMode(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_mode": mode.String()})
}

type targetGuildRequest struct {
	GuildID string `json:"guild_id" binding:"required"`
}

// RequestAlliance handles POST /api/guild/alliances/request.
func (h *GuildHandler) RequestAlliance(c *gin.Context) {
	var req targetGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RequestAlliance(c.Request.Context(), mw.GetPlayerID(c), req.GuildID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "requested"})
}

// AcceptAlliance handles POST /api/guild/alliances/accept.
func (h *GuildHandler) AcceptAlliance(c *gin.Context) {
	var req targetGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AcceptAlliance(c.Request.Context(), mw.GetPlayerID(c), req.GuildID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "accepted"})
}

// RevokeAlliance handles POST /api/guild/alliances/revoke.
func (h *GuildHandler) RevokeAlliance(c *gin.Context) {
	var req targetGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RevokeAlliance(c.Request.Context(), mw.GetPlayerID(c), req.GuildID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "revoked"})
}
