package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildsync/guild"
	mw "github.com/kasuganosora/guildsync/middleware"
	"github.com/kasuganosora/guildsync/model"
	"gorm.io/gorm"
)

// LogHandler serves the guild action log. Entries are written asynchronously
// by the audit service; a just-performed action may not be visible yet.
type LogHandler struct {
	db  *gorm.DB
	reg *guild.Registry
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(db *gorm.DB, reg *guild.Registry) *LogHandler {
	return &LogHandler{db: db, reg: reg}
}

// List handles GET /api/guild/log. Moderator rank and up.
func (h *LogHandler) List(c *gin.Context) {
	m, ok := h.reg.MemberOf(mw.GetPlayerID(c))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": guild.ErrNotAMember.Error()})
		return
	}
	if !m.Rank.Granted(guild.RankModerator) {
		c.JSON(http.StatusForbidden, gin.H{"error": guild.ErrNotAuthorized.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []model.GuildLog
	err := h.db.Where("guild_id = ?", m.GuildID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
