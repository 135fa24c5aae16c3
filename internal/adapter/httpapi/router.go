// Package httpapi exposes the scheduler over HTTP: health, status, control
// signals and the fire journal.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kingwingfly/cradle-system/internal/adapter/journal"
	"github.com/kingwingfly/cradle-system/internal/adapter/scheduler"
)

// API serves the operational HTTP surface.
type API struct {
	sched *scheduler.Scheduler
	store journal.Store
	log   *slog.Logger
}

// New creates the API. store may be nil when journaling is disabled.
func New(sched *scheduler.Scheduler, store journal.Store, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		store = journal.NoopStore{}
	}
	return &API{sched: sched, store: store, log: log}
}

// Router builds the gin engine with all routes attached.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", a.healthz)
	api := r.Group("/api")
	{
		api.GET("/status", a.status)
		api.POST("/signal/:name", a.signal)
		api.GET("/journal", a.journal)
	}
	return r
}

func (a *API) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":    a.sched.State().String(),
		"elapsed":  a.sched.Elapsed(),
		"triggers": a.sched.TriggerCount(),
	})
}

// signal translates a URL name into a control signal. Start is not exposed:
// the process starts its scheduler itself, and remote starts of a stopped
// loop are meaningless.
func (a *API) signal(c *gin.Context) {
	name := c.Param("name")
	switch name {
	case "reset":
		a.sched.Reset()
	case "fire":
		a.sched.ForceFire()
	case "stop":
		a.sched.Stop()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown signal: " + name})
		return
	}
	a.log.Info("signal accepted over http", "signal", name)
	c.JSON(http.StatusAccepted, gin.H{"signal": name})
}

func (a *API) journal(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 1000"})
			return
		}
		limit = n
	}

	entries, err := a.store.Recent(c.Request.Context(), limit)
	if err != nil {
		a.log.Error("failed to read journal", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":       e.ID,
			"trigger":  e.Trigger,
			"elapsed":  e.Elapsed,
			"fired_at": e.FiredAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}
