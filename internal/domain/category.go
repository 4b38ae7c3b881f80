package domain

// Category Model (shared lookup table, not owned by any user)
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`        // Primary key
	Name string `gorm:"unique;not null" json:"name"` // Category name
}
