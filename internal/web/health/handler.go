package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Checker is satisfied by *event.Consumer.
type Checker interface {
	IsHealthy() bool
}

type Handler struct {
	consumer Checker
}

func NewHandler(consumer Checker) *Handler {
	return &Handler{consumer: consumer}
}

func (h *Handler) PublicRoutes(server *gin.Engine) {
	server.GET("/livez", h.Live)
	server.GET("/healthz", h.Health)
}

// Live only says the process is serving.
func (h *Handler) Live(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, Status{Status: "ok"})
}

// Health is unavailable while the event consumer is stopped or holds no partitions.
func (h *Handler) Health(ctx *gin.Context) {
	if !h.consumer.IsHealthy() {
		ctx.JSON(http.StatusServiceUnavailable, Status{Status: "unavailable", Consumer: "unhealthy"})
		return
	}
	ctx.JSON(http.StatusOK, Status{Status: "ok", Consumer: "healthy"})
}

type Status struct {
	Status   string `json:"status"`
	Consumer string `json:"consumer,omitempty"`
}
