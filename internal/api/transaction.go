package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Date parsing and cache TTL

	"finance_tracker/internal/domain"     // Domain models
	"finance_tracker/internal/middleware" // Verified identity access
	"finance_tracker/internal/utils"      // Cache and upload helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// dateLayout is the accepted transaction date format
const dateLayout = "2006-01-02"

// CreateTransactionRequest is the multipart form for transaction creation.
// There is deliberately no owner field here: the owner is always taken from
// the verified session identity, never from client input.
type CreateTransactionRequest struct {
	Description string  `form:"description" binding:"required"`                 // What the money was for
	Amount      float64 `form:"amount" binding:"required,gt=0"`                 // Must be positive
	Type        string  `form:"type" binding:"required,oneof=income expense"`   // income or expense
	Date        string  `form:"date" binding:"required"`                        // YYYY-MM-DD
	CategoryID  uint    `form:"idCategory" binding:"required"`                  // Category reference
}

// UpdateTransactionRequest is the JSON body for transaction updates
type UpdateTransactionRequest struct {
	Description string  `json:"description" binding:"required"`               // What the money was for
	Amount      float64 `json:"amount" binding:"required,gt=0"`               // Must be positive
	Type        string  `json:"type" binding:"required,oneof=income expense"` // income or expense
	Date        string  `json:"date" binding:"required"`                      // YYYY-MM-DD
	CategoryID  uint    `json:"idCategory" binding:"required"`                // Category reference
}

// txCacheKey is the per-user transaction list cache key
func txCacheKey(userID uint) string {
	return "transactions:user:" + strconv.Itoa(int(userID))
}

// invalidateTxCache drops the cached transaction list for a user
func invalidateTxCache(rdb *redis.Client, userID uint) {
	_ = utils.DeleteCache(context.Background(), rdb, txCacheKey(userID))
}

// CreateTransactionHandler persists a new transaction for the caller
func CreateTransactionHandler(db *gorm.DB, rdb *redis.Client, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c) // Verified identity from the chain
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateTransactionRequest // Bind multipart form to struct
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		date, err := time.Parse(dateLayout, req.Date) // Validate the date format
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
			return
		}

		// Optional receipt upload, validated and stored before the row exists
		receiptPath := ""
		if fh, err := c.FormFile("receipt"); err == nil {
			receiptPath, err = utils.SaveReceipt(fh, uploadDir)
			if err != nil {
				if errors.Is(err, utils.ErrUnsupportedReceipt) {
					// Nothing was persisted; the row is never created
					c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Receipt must be a JPEG, PNG or PDF up to 5 MB"})
					return
				}
				logrus.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Error("Receipt store failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt"})
				return
			}
		}

		// Owner is forced from the session identity at the write boundary
		tx := domain.Transaction{
			Description: req.Description,
			Amount:      req.Amount,
			Type:        req.Type,
			Date:        date,
			CategoryID:  req.CategoryID,
			UserID:      userID,
			ReceiptPath: receiptPath,
		}
		if err := db.Create(&tx).Error; err != nil {
			// Constraint violations surface as a generic failure
			logrus.WithFields(logrus.Fields{
				"user_id":     userID,
				"category_id": req.CategoryID,
				"error":       err.Error(),
			}).Error("Transaction create failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
			return
		}
		// Reload with the category name for the response
		_ = db.Preload("Category").First(&tx, tx.ID).Error

		logrus.WithFields(logrus.Fields{
			"user_id":        userID,
			"transaction_id": tx.ID,
			"type":           tx.Type,
			"amount":         tx.Amount,
		}).Info("Transaction created")
		invalidateTxCache(rdb, userID) // Drop the stale list cache
		c.JSON(http.StatusCreated, gin.H{"transaction": tx})
	}
}

// ListTransactionsHandler returns the caller's transactions with category
// names, newest first. Only rows owned by the session identity are visible.
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c) // Verified identity from the chain
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := txCacheKey(userID)
		var transactions []domain.Transaction
		found, err := utils.GetCache(ctx, rdb, cacheKey, &transactions) // Try the cache first
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"transactions": transactions, "cached": true})
			return
		}
		// Ownership predicate applied at the query boundary
		if err := db.Preload("Category").
			Where("user_id = ?", userID).
			Order("date desc, id desc").
			Find(&transactions).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Transaction list failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, transactions, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"transactions": transactions, "cached": false})
	}
}

// UpdateTransactionHandler modifies one of the caller's transactions. The
// lookup predicates on id and owner in one query; a row owned by someone
// else answers not-found, never forbidden.
func UpdateTransactionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c) // Verified identity from the chain
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, err := strconv.Atoi(c.Param("id")) // Target primary key
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		var req UpdateTransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		date, err := time.Parse(dateLayout, req.Date) // Validate the date format
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
			return
		}

		// Compound predicate: id and owner checked in the same lookup
		var tx domain.Transaction
		if err := db.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			} else {
				logrus.WithFields(logrus.Fields{
					"user_id":        userID,
					"transaction_id": id,
					"error":          err.Error(),
				}).Error("Transaction lookup failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
			}
			return
		}

		tx.Description = req.Description
		tx.Amount = req.Amount
		tx.Type = req.Type
		tx.Date = date
		tx.CategoryID = req.CategoryID
		if err := db.Save(&tx).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":        userID,
				"transaction_id": id,
				"error":          err.Error(),
			}).Error("Transaction update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
			return
		}
		_ = db.Preload("Category").First(&tx, tx.ID).Error // Reload with category name
		invalidateTxCache(rdb, userID)                     // Drop the stale list cache
		c.JSON(http.StatusOK, gin.H{"transaction": tx})
	}
}

// DeleteTransactionHandler removes one of the caller's transactions. The
// delete carries the same compound predicate; non-existent and non-owned
// rows answer the identical not-found, so the call is idempotent in shape.
func DeleteTransactionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c) // Verified identity from the chain
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, err := strconv.Atoi(c.Param("id")) // Target primary key
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		// Compound predicate delete: only mutates if id and owner match
		res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Transaction{})
		if res.Error != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":        userID,
				"transaction_id": id,
				"error":          res.Error.Error(),
			}).Error("Transaction delete failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		invalidateTxCache(rdb, userID) // Drop the stale list cache
		c.Status(http.StatusNoContent)
	}
}
