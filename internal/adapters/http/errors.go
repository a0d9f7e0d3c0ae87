package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
)

// noRoute answers unknown paths with the standard error envelope instead of
// gin's plain-text 404.
func noRoute(c *gin.Context) {
	dto.AbortWithCode(c, dto.ErrorCodeNoRoute, "no route for "+c.Request.Method+" "+c.Request.URL.Path)
}

// noMethod answers known paths hit with an unsupported method.
func noMethod(c *gin.Context) {
	dto.AbortWithCode(c, dto.ErrorCodeNoMethod, "method "+c.Request.Method+" not allowed on "+c.Request.URL.Path)
}
