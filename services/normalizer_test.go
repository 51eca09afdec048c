package services

import (
	"reflect"
	"testing"
	"time"

	"imoscraper/models"
)

func fixedNormalizer() *Normalizer {
	return &Normalizer{now: func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}}
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Apartamento T2 em Lisboa", "apartment"},
		{"FLAT no centro", "apartment"},
		{"Moradia V4 com jardim", "house"},
		{"Vivenda de luxo", "villa"},
		{"Penthouse com vista", "penthouse"},
		{"Estúdio mobilado", "studio"},
		{"Loja comercial", "commercial"},
		{"Terreno para construção", "land"},
		{"Lugar de garagem", "garage"},
		{"Prédio inteiro", "building"},
		{"", "other"},
		{"coisa indefinida", "other"},
		// First matching rule in table order wins.
		{"Apartamento duplex", "apartment"},
	}

	for _, tt := range tests {
		if got := classifyKind(tt.text); got != tt.want {
			t.Errorf("classifyKind(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestClassifyTransactionDefaultsToSale(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"venda", "sale"},
		{"para comprar", "sale"},
		{"arrendamento", "rent"},
		{"arrendar T1", "rent"},
		{"aluguel mensal", "rent"},
		{"FOR RENT", "rent"},
		{"", "sale"},
		{"sem indicação", "sale"},
	}

	for _, tt := range tests {
		if got := classifyTransaction(tt.text); got != tt.want {
			t.Errorf("classifyTransaction(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestParseFloor(t *testing.T) {
	want := func(v int) *int { return &v }

	tests := []struct {
		label string
		want  *int
	}{
		{"R/C", want(0)},
		{"rés-do-chão", want(0)},
		{"Cave", want(-1)},
		{"3º andar", want(3)},
		{"andar 12", want(12)},
		{"Sótão", want(FloorTop)},
		{"último piso", want(FloorTop)},
		{"", nil},
		{"andar desconhecido", nil},
	}

	for _, tt := range tests {
		got := ParseFloor(tt.label)
		switch {
		case got == nil && tt.want != nil:
			t.Errorf("ParseFloor(%q) = nil; want %d", tt.label, *tt.want)
		case got != nil && tt.want == nil:
			t.Errorf("ParseFloor(%q) = %d; want nil", tt.label, *got)
		case got != nil && tt.want != nil && *got != *tt.want:
			t.Errorf("ParseFloor(%q) = %d; want %d", tt.label, *got, *tt.want)
		}
	}
}

func TestNormalizeAmenities(t *testing.T) {
	n := fixedNormalizer()
	item := &models.RawItem{
		ID:       42,
		Features: []string{"Piscina privada", "Garagem"},
	}

	got := n.Normalize(item, "faro").Amenities
	want := models.Amenities{Pool: true, Garage: true}
	if got != want {
		t.Errorf("Amenities = %+v; want %+v", got, want)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	n := fixedNormalizer()

	// Fully empty input still yields a valid record.
	got := n.Normalize(&models.RawItem{}, "porto")

	if got.SourceID == "" {
		t.Error("empty item produced empty SourceID")
	}
	if got.Price != 0 {
		t.Errorf("Price = %v; want 0", got.Price)
	}
	if got.Currency != "EUR" {
		t.Errorf("Currency = %q; want EUR", got.Currency)
	}
	if got.City != "porto" {
		t.Errorf("City = %q; want context location fallback", got.City)
	}
	if got.PropertyKind != "other" {
		t.Errorf("PropertyKind = %q; want other", got.PropertyKind)
	}
	if got.TransactionKind != "sale" {
		t.Errorf("TransactionKind = %q; want sale", got.TransactionKind)
	}
	if got.Floor != nil {
		t.Errorf("Floor = %v; want nil", *got.Floor)
	}
}

func TestNormalizeNegativePriceClampedToZero(t *testing.T) {
	n := fixedNormalizer()
	item := &models.RawItem{ID: 7, Price: &models.RawPrice{Value: -500}}

	if got := n.Normalize(item, "lisboa").Price; got != 0 {
		t.Errorf("Price = %v; want 0 for negative input", got)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := fixedNormalizer()
	area := 85.5
	item := &models.RawItem{
		Slug:       "t2-alfama",
		Title:      "Apartamento T2 Alfama",
		EstateType: "FLAT",
		Price:      &models.RawPrice{Value: 320000, Currency: "eur"},
		AreaM2:     &area,
		FloorLabel: "2º andar",
		Features:   []string{"Elevador", "Varanda"},
		Location: &models.RawPlace{
			Street:       "Rua do Salvador",
			Neighborhood: "Alfama",
			Municipality: "Lisboa",
			City:         "Lisboa",
			Region:       "Lisboa",
		},
	}

	a := n.Normalize(item, "lisboa")
	b := n.Normalize(item, "lisboa")
	if !reflect.DeepEqual(a, b) {
		t.Error("Normalize is not deterministic for identical input")
	}

	if a.Address != "Rua do Salvador, Alfama, Lisboa" {
		t.Errorf("Address = %q", a.Address)
	}
	if a.Currency != "EUR" {
		t.Errorf("Currency = %q; want EUR", a.Currency)
	}
	if !a.Amenities.Elevator || !a.Amenities.Terrace {
		t.Errorf("Amenities = %+v; want elevator and terrace", a.Amenities)
	}
	if a.SourceID != "t2-alfama" {
		t.Errorf("SourceID = %q; want slug fallback", a.SourceID)
	}
}

func TestNormalizeSyntheticIDStable(t *testing.T) {
	n := fixedNormalizer()
	item := &models.RawItem{Title: "Sem identificador", URL: "https://example.test/x"}

	a := n.Normalize(item, "braga").SourceID
	b := n.Normalize(item, "braga").SourceID
	if a == "" || a != b {
		t.Errorf("synthetic SourceID not stable: %q vs %q", a, b)
	}
}
