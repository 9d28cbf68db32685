package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string, version string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey, version)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, version string) {
	// Public feed endpoints
	r.GET("/feed", handler.GetFeed)
	r.GET("/feed/foryou", handler.GetForYou)
	r.GET("/feed/recent", handler.GetRecent)
	r.GET("/feed/items/:id", handler.GetItem)
	r.GET("/sources", handler.GetSources)

	// Ingestion trigger (conditionally protected with authentication)
	ingestHandlers := []gin.HandlerFunc{handler.Ingest}
	if apiAccessKey != "" {
		ingestHandlers = append([]gin.HandlerFunc{authMiddleware(apiAccessKey)}, ingestHandlers...)
		slog.Info("Ingest endpoint enabled with authentication")
	} else {
		slog.Info("Ingest endpoint enabled without authentication (API_ACCESS_KEY not set)")
	}
	r.GET("/ingest", ingestHandlers...)
	r.POST("/ingest", ingestHandlers...)

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"feed":    "/feed",
			"foryou":  "/feed/foryou?interests=<csv>",
			"recent":  "/feed/recent?since=<rfc3339>",
			"item":    "/feed/items/<id>",
			"sources": "/sources",
			"ingest":  "/ingest?source_id=<id>",
			"health":  "/health",
			"stats":   "/stats",
		}

		c.JSON(200, gin.H{
			"service":     "Robotics Hub News Feed",
			"version":     version,
			"description": "Aggregated news and video feed with per-viewer ranking",
			"endpoints":   endpoints,
			"ingest_auth": map[string]interface{}{
				"required": apiAccessKey != "",
				"header":   "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for protected endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
