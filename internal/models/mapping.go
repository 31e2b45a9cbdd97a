package models

import (
	"time"

	"github.com/google/uuid"
)

// MappingStatus represents the resolution state of a collection mapping
type MappingStatus string

const (
	MappingMapped   MappingStatus = "MAPPED"
	MappingUnmapped MappingStatus = "UNMAPPED"
	MappingDeferred MappingStatus = "DEFERRED"
)

// CollectionMapping maps a raw vendor collection string to an internal
// category. Rows are created automatically the first time a sync observes a
// new raw value and are never deleted, so past mapping decisions stay
// auditable. Invariant: status is MAPPED exactly when CategoryID is set.
type CollectionMapping struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RawValue string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_collection_mappings_raw" json:"rawValue"`

	CategoryID *uuid.UUID    `gorm:"type:uuid" json:"categoryId,omitempty"`
	Status     MappingStatus `gorm:"type:varchar(20);not null;default:'UNMAPPED';index:idx_collection_mappings_status" json:"status"`
	Note       string        `gorm:"type:text" json:"note,omitempty"`

	// Cached count of staged SKUs currently carrying this raw value,
	// refreshed by the transform stage. Used to triage by impact.
	SkuCount int `gorm:"default:0" json:"skuCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName specifies the table name for CollectionMapping
func (CollectionMapping) TableName() string {
	return "collection_mappings"
}

// Category is the internal category directory consulted when resolving
// collection mappings
type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_name" json:"name"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}
