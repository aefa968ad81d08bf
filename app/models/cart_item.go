package models

import "time"

// CartItem is one product position in a user's cart. The cart itself is just
// the set of rows for a user id, so clearing it is an idempotent delete.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_cart_items_user_product,unique,priority:1" json:"user_id"`
	ProductID uint      `gorm:"not null;index:ux_cart_items_user_product,unique,priority:2" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity" validate:"min=1,max=999"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
