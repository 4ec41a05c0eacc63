package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/placementlab/gdroom/internal/api/handlers"
)

type Deps struct {
	Discussion *handlers.DiscussionHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "AI GD Simulation Platform API", "version": "1.0"})
	})

	r.POST("/session/create", d.Discussion.Create)
	r.POST("/session/:session_id/start", d.Discussion.Start)
	r.POST("/session/:session_id/inject-candidates", d.Discussion.InjectCandidates)
	r.POST("/session/:session_id/end", d.Discussion.End)
	r.GET("/session/:session_id/status", d.Discussion.Status)
	r.DELETE("/session/:session_id", d.Discussion.Delete)

	r.POST("/message/send", d.Discussion.SendMessage)
	r.POST("/discussion/tick", d.Discussion.Tick)
}
