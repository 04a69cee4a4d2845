package router

import "github.com/gin-gonic/gin"

// Module is a route bundle. Each surface (public identity routes, the admin
// group) implements it and mounts itself on the shared /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
