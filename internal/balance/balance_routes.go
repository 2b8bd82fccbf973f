package balance

import "github.com/gin-gonic/gin"

// RegisterRoutes expects r to already carry the auth middleware. Ownership
// checks happen in the service because they depend on the path id.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/leaves/balance", handler.Mine)
	r.GET("/employees/:id/balance", handler.GetByEmployee)
}
