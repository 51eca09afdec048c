package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"imoscraper/models"
	"imoscraper/utils"
)

// InsightService computes a summary over the persisted dataset at the end
// of a run.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByCity: make(map[string]int),
		ListingsByKind: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	for _, l := range listings {
		if l.Price > 0 {
			priced = append(priced, l)
		}
		if l.City != "" {
			report.ListingsByCity[l.City]++
		}
		report.ListingsByKind[l.PropertyKind]++
	}

	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, l := range priced {
			total += l.Price
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  CRAWL INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Listings stored : \033[1m%d\033[0m\n\n", r.TotalListings)

	fmt.Printf("\033[1;33m  Price Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Printf("  Average price : \033[1;32m%.2f €\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m%.2f €\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m%.2f €\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Printf("  City  : %s\n", r.MostExpensive.City)
		fmt.Printf("  Price : \033[1;31m%.2f €\033[0m\n\n", r.MostExpensive.Price)
	}

	fmt.Printf("\033[1;33m  Listings by City\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, city := range sortedKeys(r.ListingsByCity) {
		fmt.Printf("  %-28s %d\n", truncate(city, 28), r.ListingsByCity[city])
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Listings by Kind\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, kind := range sortedKeys(r.ListingsByKind) {
		fmt.Printf("  %-28s %d\n", kind, r.ListingsByKind[kind])
	}
	fmt.Println()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
