package rest

import (
	"github.com/gin-gonic/gin"

	mw "github.com/kasuganosora/enemyai/middleware"
)

// Register mounts the AI and world routes. Mutations require the admin key.
func Register(r gin.IRouter, aiH *AIHandler, worldH *WorldHandler, adminKey string) {
	api := r.Group("/api")
	admin := mw.AdminAuth(adminKey)

	aiG := api.Group("/ai")
	aiG.GET("/stats", aiH.Stats)
	aiG.GET("/archetypes", aiH.ListArchetypes)
	aiG.GET("/entities", aiH.ListEntities)
	aiG.GET("/entities/:id", aiH.GetEntity)
	aiG.GET("/events", aiH.RecentEvents)
	aiG.GET("/journal", aiH.Journal)

	aiAdmin := aiG.Group("", admin)
	aiAdmin.POST("/enable", aiH.Enable)
	aiAdmin.POST("/disable", aiH.Disable)
	aiAdmin.PUT("/rate", aiH.SetRate)
	aiAdmin.POST("/entities", aiH.AddEntity)
	aiAdmin.DELETE("/entities/:id", aiH.RemoveEntity)
	aiAdmin.PUT("/entities/:id/ai", aiH.SetEntityAI)

	api.GET("/world", worldH.Get)
	api.POST("/path", worldH.FindPath)
	worldAdmin := api.Group("/world", admin)
	worldAdmin.PUT("/player", worldH.SetPlayer)
	worldAdmin.DELETE("/player", worldH.ClearPlayer)
	worldAdmin.PUT("/obstacles", worldH.SetObstacles)
}
