package domain

import (
	"time"
)

// CREATE TABLE public.products (
//     id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     name            TEXT NOT NULL,
//     description     TEXT,
//     price           NUMERIC(10,2) DEFAULT 0,
//     category        TEXT,
//     image_url       TEXT,
//     for_conditions  TEXT,
//     created_at      TIMESTAMPTZ DEFAULT NOW()
// );

// Product is owned by the catalog; the bandit only reads id and category.
type Product struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"column:name;type:text" json:"name"`
	Description   string    `gorm:"column:description;type:text" json:"description"`
	Price         float64   `gorm:"column:price;type:numeric" json:"price"`
	Category      string    `gorm:"column:category;type:text" json:"category"`
	ImageURL      string    `gorm:"column:image_url;type:text" json:"image_url"`
	ForConditions string    `gorm:"column:for_conditions;type:text" json:"for_conditions"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Product) TableName() string {
	return "products"
}
