package budgetsync

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/config"
)

// SyncHandler starts a full sync pass in the background and returns
// immediately; the UI polls SyncStatusHandler for progress. 409 while a pass
// is already running.
func SyncHandler(o *Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if o.IsRunning() {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
			return
		}

		go func() {
			// Detached from the request context on purpose: closing the
			// browser tab must not kill a half-finished pass.
			result, err := o.Run(context.Background())
			if err != nil {
				config.LogError(config.GetLogger(), "handlers.go", "SyncHandler", "Run", nil, err)
				return
			}
			_ = config.SetRedisObject("construcost:last_sync_result", result, 0)
		}()

		c.JSON(http.StatusAccepted, gin.H{"started": true})
	}
}

// SyncStatusHandler reports whether a pass is running, its progress counters,
// the last completion time and the last result.
func SyncStatusHandler(o *Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		progress := o.Progress()

		lastSync, _, _ := config.GetRedisValue(LastSyncRedisKey)

		var lastResult *SyncResult
		var cached SyncResult
		if found, err := config.GetRedisObject("construcost:last_sync_result", &cached); err == nil && found {
			lastResult = &cached
		}

		c.JSON(http.StatusOK, gin.H{
			"progress":   progress,
			"lastSync":   lastSync,
			"lastResult": lastResult,
		})
	}
}

// pushMessage is the Pub/Sub push envelope Cloud Scheduler delivers.
type pushMessage struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ScheduledSyncHandler is the push endpoint for scheduled syncs. Malformed
// bodies are acked (204) to avoid infinite redelivery; the pass only starts
// when the autoSync setting is on and no pass is running.
func ScheduledSyncHandler(o *Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg pushMessage
		if err := json.NewDecoder(c.Request.Body).Decode(&msg); err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "ScheduledSyncHandler", "decode push body", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		settings := o.store.GetSettings(c.Request.Context())
		if !settings.AutoSync {
			c.Status(http.StatusNoContent)
			return
		}
		if o.IsRunning() {
			c.Status(http.StatusNoContent)
			return
		}

		go func() {
			result, err := o.Run(context.Background())
			if err != nil {
				config.LogError(config.GetLogger(), "handlers.go", "ScheduledSyncHandler", "Run", nil, err)
				return
			}
			_ = config.SetRedisObject("construcost:last_sync_result", result, 0)
		}()

		c.Status(http.StatusNoContent)
	}
}
