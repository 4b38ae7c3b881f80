package domain

import "time"

// Transaction types
const (
	TypeIncome  = "income"  // Money coming in
	TypeExpense = "expense" // Money going out
)

// Transaction Model
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                  // Primary key
	Description string    `gorm:"size:255;not null" json:"description"`  // What the money was for
	Amount      float64   `gorm:"not null" json:"amount"`                // Transaction amount
	Type        string    `gorm:"size:10;not null" json:"type"`          // income or expense
	Date        time.Time `gorm:"not null" json:"date"`                  // When the transaction occurred
	CategoryID  uint      `gorm:"not null" json:"categoryId"`            // Foreign key to Category
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // Joined category for display
	UserID      uint      `gorm:"index;not null" json:"userId"`          // Foreign key to the owning User
	ReceiptPath string    `json:"receiptPath,omitempty"`                 // Stored receipt file, if uploaded
	CreatedAt   int64     `gorm:"autoCreateTime:milli" json:"createdAt"` // Timestamp of creation in milliseconds
}
