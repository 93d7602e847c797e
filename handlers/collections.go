package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobboard/backend/go-services/internal/docstore"
	"github.com/jobboard/backend/go-services/pkg/logger"
)

var log = logger.Named("handlers")

// findRequest is the body of POST /api/collections/:name/find. Sort holds at
// most one key, e.g. {"created_at": -1}.
type findRequest struct {
	Filter     map[string]any `json:"filter"`
	Sort       map[string]int `json:"sort"`
	Skip       int64          `json:"skip"`
	Limit      int64          `json:"limit"`
	Projection map[string]any `json:"projection"`
}

type countRequest struct {
	Filter map[string]any `json:"filter"`
}

// RegisterCollectionRoutes registers a read-only inspection API over the
// document store.
func RegisterCollectionRoutes(r gin.IRouter, store docstore.Store) {
	g := r.Group("/api/collections/:name")
	g.Use(func(c *gin.Context) {
		if !docstore.ValidCollectionName(c.Param("name")) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid collection name"})
			return
		}
		c.Next()
	})

	g.GET("/documents/:id", func(c *gin.Context) {
		d, err := store.Collection(c.Param("name")).FindOne(c.Request.Context(), docstore.M{"_id": c.Param("id")})
		if err != nil {
			internalError(c, err)
			return
		}
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, d)
	})

	g.POST("/find", func(c *gin.Context) {
		var req findRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(req.Sort) > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sort accepts a single key"})
			return
		}
		cur := store.Collection(c.Param("name")).Find(req.Filter).Skip(req.Skip).Limit(req.Limit)
		for field, dir := range req.Sort {
			cur = cur.Sort(field, dir)
		}
		if len(req.Projection) > 0 {
			cur = cur.Project(req.Projection)
		}
		docs, err := cur.ToArray(c.Request.Context())
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	})

	g.POST("/count", func(c *gin.Context) {
		var req countRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := store.Collection(c.Param("name")).CountDocuments(c.Request.Context(), req.Filter)
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
	})
}

func internalError(c *gin.Context, err error) {
	log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
