package model

import "time"

// PropertyType classifies a residential property.
type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "single_family"
	PropertyTypeCondo        PropertyType = "condo"
	PropertyTypeTownhouse    PropertyType = "townhouse"
	PropertyTypeMultiFamily  PropertyType = "multi_family"
)

// SaleStatus represents the listing state of a recorded sale.
type SaleStatus string

const (
	SaleStatusSold    SaleStatus = "sold"
	SaleStatusActive  SaleStatus = "active"
	SaleStatusPending SaleStatus = "pending"
	SaleStatusExpired SaleStatus = "expired"
)

// Valid reports whether s is one of the known sale statuses.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusSold, SaleStatusActive, SaleStatusPending, SaleStatusExpired:
		return true
	}
	return false
}

// Coordinates is a latitude/longitude pair in decimal degrees.
// A property either carries the full pair or none of it.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Property describes a residential property used as a valuation subject or
// comparable. Optional characteristics are pointers; a nil field disables
// the similarity factors and adjustment categories that depend on it.
type Property struct {
	ID            string       `json:"id"`
	Address       string       `json:"address"`
	PropertyType  PropertyType `json:"property_type"`
	SquareFootage *int         `json:"square_footage,omitempty"`
	Bedrooms      *int         `json:"bedrooms,omitempty"`
	Bathrooms     *float64     `json:"bathrooms,omitempty"`
	YearBuilt     *int         `json:"year_built,omitempty"`
	LotSize       *int         `json:"lot_size,omitempty"` // square feet
	Coords        *Coordinates `json:"coords,omitempty"`
}

// SameProperty reports whether other refers to the same physical property.
// Stored properties match on ID; ad-hoc subjects without an ID fall back to
// the address.
func (p Property) SameProperty(other Property) bool {
	if p.ID != "" && other.ID != "" {
		return p.ID == other.ID
	}
	return p.Address != "" && p.Address == other.Address
}

// Sale is a recorded sale or listing event for a property.
type Sale struct {
	ID           string     `json:"id"`
	PropertyID   string     `json:"property_id"`
	SalePrice    float64    `json:"sale_price"`
	SaleDate     time.Time  `json:"sale_date"`
	ListPrice    *float64   `json:"list_price,omitempty"`
	DaysOnMarket *int       `json:"days_on_market,omitempty"`
	Status       SaleStatus `json:"status"`
}

// Candidate pairs a property with one of its sales, as materialized for the
// comparable pool.
type Candidate struct {
	Property Property `json:"property"`
	Sale     Sale     `json:"sale"`
}

// Int returns a pointer to v. Convenience for building optional fields.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
