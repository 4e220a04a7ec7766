package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildsync/chat"
	"github.com/kasuganosora/guildsync/config"
	"github.com/kasuganosora/guildsync/guild"
	mw "github.com/kasuganosora/guildsync/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// NewRouter builds the full HTTP surface: ambient middleware, a health
// probe, and the authenticated guild API.
func NewRouter(cfg *config.Config, svc *guild.Service, chatH *chat.Handler, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok", "guilds": svc.Registry().Count()})
	})

	guildH := NewGuildHandler(svc)
	chatRestH := NewChatHandler(chatH)
	logH := NewLogHandler(db, svc.Registry())

	// Rate limiting runs after Auth so buckets are keyed per player.
	api := r.Group("/api")
	api.Use(mw.Auth(cfg.Security))
	api.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	{
		guildsG := api.Group("/guilds")
		guildsG.POST("", guildH.Create)
		guildsG.GET("", guildH.List)
		guildsG.GET("/:id", guildH.Detail)
		guildsG.POST("/:id/join", guildH.Join)

		guildG := api.Group("/guild")
		guildG.GET("", guildH.Mine)
		guildG.POST("/quit", guildH.Quit)
		guildG.POST("/disband", guildH.Disband)
		guildG.POST("/invites", guildH.Invite)
		guildG.DELETE("/invites/:pid", guildH.RevokeInvite)
		guildG.POST("/deposit", guildH.Deposit)
		guildG.POST("/withdraw", guildH.Withdraw)
		guildG.GET("/home", guildH.Home)
		guildG.PUT("/home", guildH.SetHome)
		guildG.DELETE("/home", guildH.DelHome)
		guildG.POST("/kick", guildH.Kick)
		guildG.POST("/promote", guildH.Promote)
		guildG.POST("/demote", guildH.Demote)
		guildG.POST("/transfer", guildH.Transfer)
		guildG.POST("/chatmode", guildH.ToggleChatMode)
		guildG.GET("/log", logH.List)
		guildG.POST("/alliances/request", guildH.RequestAlliance)
		guildG.POST("/alliances/accept", guildH.AcceptAlliance)
		guildG.POST("/alliances/revoke", guildH.RevokeAlliance)

		chatG := api.Group("/chat")
		chatG.POST("", chatRestH.Send)
		chatG.POST("/guild", chatRestH.SendGuild)
	}

	return r
}
