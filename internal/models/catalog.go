package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RawVariantRecord is the staging mirror of one Shopify variant, stored
// exactly as received. Rows are fully replaced (upserted) on each sync cycle
// and are only removed by the explicit prune operation, never implicitly.
type RawVariantRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ExternalProductID string `gorm:"type:varchar(255);not null;index:idx_raw_variants_product" json:"externalProductId"`
	ExternalVariantID string `gorm:"type:varchar(255);not null;uniqueIndex:idx_raw_variants_variant" json:"externalVariantId"`
	SKU               string `gorm:"type:varchar(255);index:idx_raw_variants_sku" json:"sku"`

	Title        string  `gorm:"type:varchar(500)" json:"title"`
	ProductTitle string  `gorm:"type:varchar(500)" json:"productTitle"`
	Price        float64 `json:"price"`
	ImageURL     string  `gorm:"type:varchar(1000)" json:"imageUrl,omitempty"`

	// Authoritative size option as reported by Shopify. Preferred over the
	// SKU-derived size when present.
	SizeOption      string         `gorm:"type:varchar(255)" json:"sizeOption,omitempty"`
	SelectedOptions datatypes.JSON `json:"selectedOptions,omitempty"`

	// Raw categorical attributes, uncontrolled vendor strings
	Collection  string `gorm:"type:varchar(255);index:idx_raw_variants_collection" json:"collection"`
	ProductType string `gorm:"type:varchar(255)" json:"productType,omitempty"`
	Vendor      string `gorm:"type:varchar(255)" json:"vendor,omitempty"`

	QuantityOnHand    int `gorm:"default:0" json:"quantityOnHand"`
	QuantityIncoming  int `gorm:"default:0" json:"quantityIncoming"`
	QuantityCommitted int `gorm:"default:0" json:"quantityCommitted"`

	SyncedAt time.Time `gorm:"not null;index:idx_raw_variants_synced" json:"syncedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for RawVariantRecord
func (RawVariantRecord) TableName() string {
	return "raw_variant_records"
}

// ProductSku is the canonical serving-layer row read by all buyer, rep and
// admin queries. Written only by the transform stage; a SKU appears here only
// when its raw collection value has a MAPPED collection mapping.
type ProductSku struct {
	ID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SKU string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_product_skus_sku" json:"sku"`

	BaseSKU string `gorm:"type:varchar(255);not null;index:idx_product_skus_base" json:"baseSku"`
	Size    string `gorm:"type:varchar(255)" json:"size,omitempty"`

	// Set when the SKU-derived size disagrees with the authoritative size
	// option, so the records can be reviewed.
	SizeMismatch bool `gorm:"default:false" json:"sizeMismatch"`

	CategoryID uuid.UUID `gorm:"type:uuid;not null;index:idx_product_skus_category" json:"categoryId"`
	Collection string    `gorm:"type:varchar(255);index:idx_product_skus_collection" json:"collection"`

	Title        string  `gorm:"type:varchar(500)" json:"title"`
	ProductTitle string  `gorm:"type:varchar(500)" json:"productTitle"`
	Price        float64 `json:"price"`
	ImageURL     string  `gorm:"type:varchar(1000)" json:"imageUrl,omitempty"`

	QuantityOnHand   int `gorm:"default:0" json:"quantityOnHand"`
	QuantityIncoming int `gorm:"default:0" json:"quantityIncoming"`

	ExternalVariantID string `gorm:"type:varchar(255)" json:"externalVariantId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName specifies the table name for ProductSku
func (ProductSku) TableName() string {
	return "product_skus"
}
