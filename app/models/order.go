package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	PaymentMethodStripe = "stripe"
)

// Order represents one purchase attempt. PublicID is the opaque identifier
// handed to the payment provider as checkout metadata; the numeric primary
// key never leaves the database layer.
//
// Paid transitions false -> true at most once and never back. Orders are
// only deleted while unpaid (abandoned or failed payment cleanup); both
// rules are enforced by the payments reconciler, not here.
type Order struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	PublicID      string         `gorm:"type:char(36);uniqueIndex;not null" json:"public_id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	Address       string         `gorm:"type:text;not null" json:"address" validate:"required,max=2000"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents" validate:"min=0"`
	Currency      string         `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	PaymentMethod string         `gorm:"type:varchar(20);default:'stripe'" json:"payment_method" validate:"oneof=stripe"`
	Paid          bool           `gorm:"default:false;index" json:"paid"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItem freezes name and unit price at order time so later product edits
// do not change what the customer was charged.
type OrderItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	ProductID      uint      `gorm:"not null" json:"product_id"`
	ProductName    string    `gorm:"type:varchar(200);not null" json:"product_name"`
	UnitPriceCents int64     `gorm:"not null" json:"unit_price_cents"`
	Quantity       int       `gorm:"not null" json:"quantity" validate:"min=1"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (o *Order) Validate() error {
	v := validator.New()

	return v.Struct(o)
}
