package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Product prices are stored in cents. OfferPriceCents is the price actually
// charged at checkout; PriceCents is the crossed-out list price.
type Product struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Description     string         `gorm:"type:text" json:"description" validate:"max=5000"`
	PriceCents      int64          `gorm:"not null" json:"price_cents" validate:"min=0"`
	OfferPriceCents int64          `gorm:"not null" json:"offer_price_cents" validate:"min=0"`
	Currency        string         `gorm:"type:varchar(3);default:'usd'" json:"currency" validate:"len=3"`
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`
	ViewCount       int64          `gorm:"default:0" json:"view_count"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
