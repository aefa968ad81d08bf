package repository

import (
	"github.com/ManuelReschke/OrderFox/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)

	GetCartItems(userID uint) ([]models.CartItem, error)
	SetCartItem(userID, productID uint, quantity int) error
	RemoveCartItem(userID, productID uint) error
	ClearCart(userID uint) error
}

// ProductRepository defines the interface for product-related database operations
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetActiveByIDs(ids []uint) ([]models.Product, error)
	List(offset, limit int) ([]models.Product, error)
	Update(product *models.Product) error
	Delete(id uint) error
	Count() (int64, error)
}

// OrderRepository defines the interface for order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByPublicID(publicID string) (*models.Order, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Order, error)
	CountByUserID(userID uint) (int64, error)
	Count() (int64, error)
}
