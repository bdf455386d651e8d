package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Role         string    `gorm:"size:16;not null"            json:"role"`
	CreatedAt    time.Time `                                   json:"created_at"`
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"default:false"         json:"revoked"`
}

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"         json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `                                    json:"created_at"`
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"           json:"id"`
	Name        string          `gorm:"size:64;not null"               json:"name"`
	Description string          `gorm:"not null;default:''"            json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;check:price > 0" json:"price"`
	Stock       int             `gorm:"not null;check:stock >= 0"      json:"stock"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;index;not null"       json:"category_id"`
	CreatedAt   time.Time       `                                      json:"created_at"`
	UpdatedAt   time.Time       `                                      json:"updated_at"`
}

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"          json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time  `                                     json:"created_at"`
	Items     []CartItem `gorm:"foreignKey:CartID"             json:"items"`
}

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"       json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;index;not null"   json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null"   json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
}

type Order struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey"                      json:"id"`
	UserID         uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_order_user_idem,priority:1;index" json:"user_id"`
	IdempotencyKey *string            `gorm:"size:128;uniqueIndex:idx_order_user_idem,priority:2" json:"-"`
	Total          decimal.Decimal    `gorm:"type:numeric(12,2);not null"               json:"total"`
	Status         domain.OrderStatus `gorm:"size:16;not null;index"                    json:"status"`
	CreatedAt      time.Time          `                                                 json:"created_at"`
	UpdatedAt      time.Time          `                                                 json:"updated_at"`
	Items          []OrderItem        `gorm:"foreignKey:OrderID"                        json:"items"`
}

type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"          json:"product_id"`
	ProductName string          `gorm:"size:64;not null"            json:"product_name"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{}, &RefreshToken{},
		&Category{}, &Product{},
		&Cart{}, &CartItem{},
		&Order{}, &OrderItem{},
	}
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error         { newID(&u.ID); return nil }
func (t *RefreshToken) BeforeCreate(*gorm.DB) error { newID(&t.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error     { newID(&c.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error      { newID(&p.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error         { newID(&c.ID); return nil }
func (i *CartItem) BeforeCreate(*gorm.DB) error     { newID(&i.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error        { newID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error    { newID(&i.ID); return nil }

func (u User) IsAdmin() bool { return u.Role == tokens.RoleAdmin }

func (CartItem) TableName() string  { return "cart_items" }
func (OrderItem) TableName() string { return "order_items" }
