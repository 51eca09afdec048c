package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"imoscraper/models"
)

const (
	sourceName = "imovirtual"
	sourceSite = "https://www.imovirtual.com"

	// FloorTop is the sentinel stored for attic / top-floor descriptors.
	FloorTop = 99
	// FloorGround and FloorBasement are the sentinels for ground-level and
	// below-ground descriptors.
	FloorGround   = 0
	FloorBasement = -1
)

// floorRegexp captures the first embedded integer of a floor label ("3º andar" → 3).
var floorRegexp = regexp.MustCompile(`\d+`)

// kindRule maps a canonical property kind to its recognized synonyms.
// Matching is case-insensitive substring search in table order: the first
// rule that matches wins, so "apartamento duplex" classifies as apartment.
type kindRule struct {
	kind  string
	terms []string
}

var kindRules = []kindRule{
	{"apartment", []string{"apartamento", "apartment", "flat"}},
	{"villa", []string{"villa", "vivenda"}},
	{"house", []string{"moradia", "house", "casa", "chalet"}},
	{"penthouse", []string{"penthouse", "cobertura"}},
	{"duplex", []string{"duplex", "dúplex"}},
	{"studio", []string{"estúdio", "studio", "t0"}},
	{"loft", []string{"loft"}},
	{"office", []string{"escritório", "office"}},
	{"commercial", []string{"loja", "comercial", "commercial"}},
	{"garage", []string{"garagem", "garage"}},
	{"parking", []string{"estacionamento", "parking"}},
	{"building", []string{"prédio", "edifício", "building"}},
	{"land", []string{"terreno", "lote", "land"}},
}

var (
	// Stems so that e.g. "arrendamento" and "arrendar" both match.
	saleTerms = []string{"vend", "compra", "sale", "sell", "buy"}
	rentTerms = []string{"arrend", "alug", "rent", "lease"}
)

var (
	groundFloorTerms   = []string{"r/c", "rés do chão", "rés-do-chão", "res do chao", "térreo", "terreo", "ground"}
	basementFloorTerms = []string{"cave", "basement", "subsolo"}
	topFloorTerms      = []string{"sótão", "sotao", "attic", "último piso", "aguas furtadas", "águas furtadas"}
)

// amenityRule links a multilingual synonym list to the flag it sets. Each
// rule is evaluated independently — synonym lists may overlap and one item
// can satisfy several amenities at once.
type amenityRule struct {
	terms []string
	set   func(*models.Amenities)
}

var amenityRules = []amenityRule{
	{[]string{"piscina", "pool"}, func(a *models.Amenities) { a.Pool = true }},
	{[]string{"garagem", "garage", "box"}, func(a *models.Amenities) { a.Garage = true }},
	{[]string{"elevador", "elevator", "lift", "ascensor"}, func(a *models.Amenities) { a.Elevator = true }},
	{[]string{"terraço", "terraco", "terrace", "varanda"}, func(a *models.Amenities) { a.Terrace = true }},
	{[]string{"jardim", "garden", "quintal"}, func(a *models.Amenities) { a.Garden = true }},
	{[]string{"ar condicionado", "air conditioning", "climatização", "climatizacao"}, func(a *models.Amenities) { a.AirConditioning = true }},
	{[]string{"mobilado", "mobiliado", "furnished"}, func(a *models.Amenities) { a.Furnished = true }},
	{[]string{"vista mar", "vista para o mar", "sea view"}, func(a *models.Amenities) { a.SeaView = true }},
}

// Normalizer turns raw embedded-state items into canonical Listings. It is
// total: any RawItem, however incomplete, yields a valid record.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer using the wall clock for capture
// timestamps.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize maps one raw item plus the requested location into a canonical
// record. Every optional field resolves to an explicit default; the result
// always has a non-empty SourceID and a non-negative Price.
func (n *Normalizer) Normalize(item *models.RawItem, contextLocation string) *models.Listing {
	l := &models.Listing{
		Source:          sourceName,
		SourceID:        n.identify(item),
		Title:           normaliseText(item.Title),
		Currency:        "EUR",
		PropertyKind:    classifyKind(item.EstateType + " " + item.Title),
		TransactionKind: classifyTransaction(item.Transaction),
		Country:         "Portugal",
		City:            normaliseText(contextLocation),
		Bedrooms:        item.Rooms,
		Bathrooms:       item.Bathrooms,
		AreaM2:          item.AreaM2,
		Floor:           ParseFloor(item.FloorLabel),
		Features:        item.Features,
		URL:             item.URL,
		CapturedAt:      n.now(),
	}

	if item.Price != nil {
		if item.Price.Value > 0 {
			l.Price = item.Price.Value
		}
		if c := strings.ToUpper(strings.TrimSpace(item.Price.Currency)); c != "" {
			l.Currency = c
		}
	}

	if loc := item.Location; loc != nil {
		if city := normaliseText(loc.City); city != "" {
			l.City = city
		}
		l.Region = normaliseText(loc.Region)
		if country := normaliseText(loc.Country); country != "" {
			l.Country = country
		}
		l.Latitude = loc.Latitude
		l.Longitude = loc.Longitude
		l.Address = composeAddress(loc)
	}

	for _, rule := range amenityRules {
		if anyFeatureContains(item.Features, rule.terms) {
			rule.set(&l.Amenities)
		}
	}

	if l.URL == "" && item.Slug != "" {
		l.URL = sourceSite + "/anuncio/" + item.Slug
	}

	return l
}

// identify resolves the record identifier: the source id when present, then
// the slug, then a name-based UUID over the item's stable fields so the
// fallback is still deterministic for identical input.
func (n *Normalizer) identify(item *models.RawItem) string {
	if item.ID != 0 {
		return strconv.FormatInt(item.ID, 10)
	}
	if item.Slug != "" {
		return item.Slug
	}
	seed := item.URL + "|" + item.Title
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// classifyKind returns the first kind whose synonym list matches the text.
func classifyKind(text string) string {
	text = strings.ToLower(text)
	for _, rule := range kindRules {
		for _, term := range rule.terms {
			if strings.Contains(text, term) {
				return rule.kind
			}
		}
	}
	return "other"
}

// classifyTransaction defaults to sale when the text is absent or ambiguous.
// The default is deliberate: the portal's search mode is sale unless the
// item says otherwise, and dropping the record would be worse than the guess.
func classifyTransaction(text string) string {
	text = strings.ToLower(text)
	for _, term := range saleTerms {
		if strings.Contains(text, term) {
			return string(models.TransactionSale)
		}
	}
	for _, term := range rentTerms {
		if strings.Contains(text, term) {
			return string(models.TransactionRent)
		}
	}
	return string(models.TransactionSale)
}

// ParseFloor maps a textual floor descriptor to its numeric value.
// Ground-level terms map to 0, basements to -1 and attic/top-floor terms to
// the FloorTop sentinel; otherwise the first embedded integer is used.
// Nil means the floor is unknown.
func ParseFloor(label string) *int {
	text := strings.ToLower(strings.TrimSpace(label))
	if text == "" {
		return nil
	}

	for _, term := range groundFloorTerms {
		if strings.Contains(text, term) {
			return intPtr(FloorGround)
		}
	}
	for _, term := range basementFloorTerms {
		if strings.Contains(text, term) {
			return intPtr(FloorBasement)
		}
	}
	for _, term := range topFloorTerms {
		if strings.Contains(text, term) {
			return intPtr(FloorTop)
		}
	}

	if match := floorRegexp.FindString(text); match != "" {
		if val, err := strconv.Atoi(match); err == nil {
			return intPtr(val)
		}
	}
	return nil
}

// composeAddress joins the non-empty address fragments in priority order.
func composeAddress(loc *models.RawPlace) string {
	fragments := []string{loc.Street, loc.Neighborhood, loc.District, loc.Municipality}
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = normaliseText(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ", ")
}

func anyFeatureContains(features []string, terms []string) bool {
	for _, f := range features {
		f = strings.ToLower(f)
		for _, term := range terms {
			if strings.Contains(f, term) {
				return true
			}
		}
	}
	return false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func intPtr(v int) *int { return &v }
