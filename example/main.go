package main

import (
	"context"
	"log"
	"time"

	presence "github.com/cydxin/presence-sdk"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Embedding the engine in an existing gin application that already issues
// JWTs for its users.
func main() {
	// 1. database
	dsn := "root:password@tcp(127.0.0.1:3306)/app_db?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("open database: ", err)
	}

	// 2. identity: the host signs HS256 tokens with sub = user id
	verifier, err := service.NewJWTVerifier("change-me", "app")
	if err != nil {
		log.Fatal(err)
	}

	lg, _ := zap.NewDevelopment()
	engine, err := presence.NewEngine(
		presence.WithDB(db),
		presence.WithVerifier(verifier),
		presence.WithLogger(lg),
		presence.WithTablePrefix("app_rt_"),
		presence.WithAutoMigrate(true),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	// 3. routes
	r := gin.Default()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
	// ws://localhost:8080/api/v1/ws?token=<jwt>
	engine.RegisterGinRoutes(r, presence.RouteOptions{Swagger: true})

	// 4. domain events: a task assignment in the host app becomes a notification
	r.POST("/demo/assign", engine.GinAuthMiddleware(nil), func(c *gin.Context) {
		actor := c.GetString("user_id")
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()
		results, err := engine.Dispatcher.DispatchToProjectMembers(ctx, c.Query("project_id"), service.Input{
			Type:    "task_assigned",
			Title:   "A task was assigned",
			Message: "Open the board to see it.",
			Data:    map[string]string{"task_id": c.Query("task_id")},
		}, actor)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"notified": len(results)})
	})

	log.Println("listening on :8080, swagger at http://localhost:8080/swagger/index.html")
	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
