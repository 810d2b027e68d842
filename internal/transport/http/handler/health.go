package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GET /health
// Process liveness for the browser app; dependency checks live on the
// metrics port (/readyz).
func Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
}
