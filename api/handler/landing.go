package handler

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Landing serves index.html from dir.
func Landing(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		c.File(index)
	}
}
