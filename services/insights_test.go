package services

import (
	"testing"

	"imoscraper/models"
	"imoscraper/utils"
)

func TestGenerateInsights(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))

	listings := []*models.Listing{
		{SourceID: "1", Price: 200000, City: "Lisboa", PropertyKind: "apartment"},
		{SourceID: "2", Price: 450000, City: "Lisboa", PropertyKind: "house"},
		{SourceID: "3", Price: 100000, City: "Porto", PropertyKind: "apartment"},
		{SourceID: "4", Price: 0, City: "Porto", PropertyKind: "land"},
	}

	r := svc.Generate(listings)

	if r.TotalListings != 4 {
		t.Errorf("TotalListings = %d; want 4", r.TotalListings)
	}
	if r.MinPrice != 100000 || r.MaxPrice != 450000 {
		t.Errorf("min/max = %.0f/%.0f; want 100000/450000", r.MinPrice, r.MaxPrice)
	}
	if r.AveragePrice != 250000 {
		t.Errorf("AveragePrice = %.2f; want 250000 (zero prices excluded)", r.AveragePrice)
	}
	if r.MostExpensive == nil || r.MostExpensive.SourceID != "2" {
		t.Error("MostExpensive should be the 450000 record")
	}
	if r.ListingsByCity["Lisboa"] != 2 || r.ListingsByCity["Porto"] != 2 {
		t.Errorf("ListingsByCity = %v", r.ListingsByCity)
	}
	if r.ListingsByKind["apartment"] != 2 {
		t.Errorf("ListingsByKind = %v", r.ListingsByKind)
	}
}

func TestGenerateInsightsEmpty(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))

	r := svc.Generate(nil)
	if r.TotalListings != 0 || r.MostExpensive != nil {
		t.Errorf("empty dataset produced %+v", r)
	}
}
