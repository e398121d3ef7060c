package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/budgetsync"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/config"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/middlewares"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
)

const defaultPort = "8080"

const statsCacheKey = "construcost:stats"

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var verr validator.ValidationErrors
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		adminUser := strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
		if adminUser == "" {
			adminUser = "admin"
		}
		adminHash := strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))
		if adminHash == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "login is not configured"})
			return
		}

		if req.Username != adminUser || utils.ComparePassword(adminHash, req.Password) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(req.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func listBudgetsHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.GetAll(c.Request.Context()))
	}
}

func saveBudgetHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBudget
		if err := c.ShouldBindJSON(&input); err != nil {
			var verr validator.ValidationErrors
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		saved, err := store.Upsert(c.Request.Context(), input.ToBudget())
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "saveBudgetHandler", "Upsert", input, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist budget"})
			return
		}
		_ = config.RemoveRedisKey(statsCacheKey)
		c.JSON(http.StatusOK, saved)
	}
}

func deleteBudgetHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := store.Delete(c.Request.Context(), id); err != nil {
			config.LogError(config.GetLogger(), "server.go", "deleteBudgetHandler", "Delete", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete budget"})
			return
		}
		_ = config.RemoveRedisKey(statsCacheKey)
		c.Status(http.StatusNoContent)
	}
}

func statsHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cached models.Stats
		if found, err := config.GetRedisObject(statsCacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		stats := models.ComputeStats(store.GetAll(c.Request.Context()))
		_ = config.SetRedisObject(statsCacheKey, stats, time.Minute)
		c.JSON(http.StatusOK, stats)
	}
}

func exportBudgetsHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		budgets := store.GetAll(c.Request.Context())
		f, err := models.BudgetsToExcel(budgets)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "exportBudgetsHandler", "BudgetsToExcel", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build export"})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=orcamentos.xlsx")
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "exportBudgetsHandler", "Write", nil, err)
		}
	}
}

func getSettingsHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.GetSettings(c.Request.Context()))
	}
}

func saveSettingsHandler(store models.LedgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings models.AppSettings
		if err := c.ShouldBindJSON(&settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := store.SaveSettings(c.Request.Context(), settings); err != nil {
			config.LogError(config.GetLogger(), "server.go", "saveSettingsHandler", "SaveSettings", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist settings"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	r.Use(cors.New(corsConfig))

	store := models.NewGormLedgerStore(nil, logger)
	syncCfg := budgetsync.ConfigFromEnv()
	orchestrator := budgetsync.NewOrchestrator(
		store,
		budgetsync.NewSheetSource(syncCfg),
		budgetsync.NewFileSource(syncCfg),
		budgetsync.NewExtractor(syncCfg),
		logger,
		syncCfg,
	)

	r.POST("/auth/login", loginHandler())

	api := r.Group("/api", middlewares.AuthMiddleware())
	api.GET("/budgets", listBudgetsHandler(store))
	api.POST("/budgets", saveBudgetHandler(store))
	api.DELETE("/budgets/:id", deleteBudgetHandler(store))
	api.GET("/budgets/export", exportBudgetsHandler(store))
	api.GET("/stats", statsHandler(store))
	api.GET("/settings", getSettingsHandler(store))
	api.PUT("/settings", saveSettingsHandler(store))
	api.POST("/sync", budgetsync.SyncHandler(orchestrator))
	api.GET("/sync/status", budgetsync.SyncStatusHandler(orchestrator))

	// Scheduled sync push endpoint (Cloud Scheduler / Pub/Sub push).
	// Authenticated at the infrastructure level, not with the API JWT.
	r.POST("/tasks/sync", budgetsync.ScheduledSyncHandler(orchestrator))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	// Dependencies come up after the listener (Cloud Run startup contract).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateLedgerTables(config.GetDB()); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.LogError(logger, "server.go", "main", "Shutdown", nil, err)
	}
}
