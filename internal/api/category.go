package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Cache TTL

	"finance_tracker/internal/domain" // Domain models
	"finance_tracker/internal/utils"  // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// categoriesCacheKey caches the full category list; categories are a
// shared lookup table, so one key serves every user
const categoriesCacheKey = "categories:all"

// CategoryRequest is the JSON body for category create and update
type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=64"` // Category name
}

// invalidateCategoryCache drops the cached category list
func invalidateCategoryCache(rdb *redis.Client) {
	_ = utils.DeleteCache(context.Background(), rdb, categoriesCacheKey)
}

// CreateCategoryHandler adds a category to the shared lookup table
func CreateCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		category := domain.Category{Name: strings.TrimSpace(req.Name)}
		if err := db.Create(&category).Error; err != nil {
			// Creation fails on a duplicate name
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category already exists"})
			return
		}
		invalidateCategoryCache(rdb) // Drop the stale list cache
		c.JSON(http.StatusCreated, gin.H{"category": category})
	}
}

// ListCategoriesHandler returns all categories, cache-aside
func ListCategoriesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		var categories []domain.Category
		found, err := utils.GetCache(ctx, rdb, categoriesCacheKey, &categories) // Try the cache first
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"categories": categories, "cached": true})
			return
		}
		if err := db.Order("name asc").Find(&categories).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("Category list failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		_ = utils.SetCache(ctx, rdb, categoriesCacheKey, categories, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"categories": categories, "cached": false})
	}
}

// UpdateCategoryHandler renames a category
func UpdateCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id")) // Target primary key
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
			return
		}
		var req CategoryRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var category domain.Category
		if err := db.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			} else {
				logrus.WithField("error", err.Error()).Error("Category lookup failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
			}
			return
		}
		category.Name = strings.TrimSpace(req.Name)
		if err := db.Save(&category).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("Category update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
			return
		}
		invalidateCategoryCache(rdb) // Drop the stale list cache
		c.JSON(http.StatusOK, gin.H{"category": category})
	}
}

// DeleteCategoryHandler removes a category
func DeleteCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id")) // Target primary key
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
			return
		}
		res := db.Delete(&domain.Category{}, id)
		if res.Error != nil {
			// Referenced categories fail the foreign key constraint
			logrus.WithField("error", res.Error.Error()).Error("Category delete failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		invalidateCategoryCache(rdb) // Drop the stale list cache
		c.Status(http.StatusNoContent)
	}
}
