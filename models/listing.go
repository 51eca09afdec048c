package models

import "time"

// RawItem is one listing exactly as it appears inside the page's embedded
// JSON state. Every field is optional — the payload is untrusted and the
// portal reshapes it without notice, so absence must never be an error here.
type RawItem struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	EstateType  string    `json:"estate"`
	Transaction string    `json:"transaction"`
	Price       *RawPrice `json:"totalPrice"`
	AreaM2      *float64  `json:"areaInSquareMeters"`
	Rooms       *int      `json:"roomsNumber"`
	Bathrooms   *int      `json:"bathroomsNumber"`
	FloorLabel  string    `json:"floorNumber"`
	Location    *RawPlace `json:"location"`
	Features    []string  `json:"features"`
	URL         string    `json:"url"`
}

// RawPrice is the price node of a raw item.
type RawPrice struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// RawPlace carries the address fragments and coordinates of a raw item.
type RawPlace struct {
	Street       string   `json:"street"`
	Neighborhood string   `json:"neighborhood"`
	District     string   `json:"district"`
	Municipality string   `json:"municipality"`
	City         string   `json:"city"`
	Region       string   `json:"province"`
	Country      string   `json:"country"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// PageSnapshot is the decoded embedded state of one search results page.
// It is built fresh per fetch and never mutated afterwards.
type PageSnapshot struct {
	Items      []RawItem
	Page       int
	TotalPages int
	TotalCount int
}

// HasNextPage reports whether the portal advertises further result pages.
func (s *PageSnapshot) HasNextPage() bool {
	return s.Page < s.TotalPages
}

// Amenities is the fixed set of boolean flags inferred from free-text
// feature labels. An item can satisfy several at once.
type Amenities struct {
	Pool            bool
	Garage          bool
	Elevator        bool
	Terrace         bool
	Garden          bool
	AirConditioning bool
	Furnished       bool
	SeaView         bool
}

// Listing is the canonical, portal-independent record produced by the
// normalizer and persisted to storage. The field set is the wire contract
// toward the sink: adding fields is fine, renaming or removing is not.
type Listing struct {
	Source          string
	SourceID        string
	Title           string
	Price           float64
	Currency        string
	PropertyKind    string
	TransactionKind string
	City            string
	Region          string
	Country         string
	Latitude        *float64
	Longitude       *float64
	Address         string
	Bedrooms        *int
	Bathrooms       *int
	AreaM2          *float64
	Floor           *int
	Amenities       Amenities
	Features        []string
	URL             string
	CapturedAt      time.Time
}

// InsightReport holds the computed summary over the persisted dataset.
type InsightReport struct {
	TotalListings  int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Listing
	ListingsByCity map[string]int
	ListingsByKind map[string]int
}
