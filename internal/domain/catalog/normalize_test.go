package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"largest token wins over prefix index", "<span>36</span> 67,000", 67000},
		{"empty string", "", 0},
		{"decimal with thousands separator", "1,234.50", 1234.5},
		{"plain number", 450.0, 450},
		{"integer", 1200, 1200},
		{"nil", nil, 0},
		{"no digits", "<b>Sold out</b>", 0},
		{"html wrapped price", `<span class="price">$1,050</span>`, 1050},
		{"adjacent tags", "<td>2</td><td>15,500.75</td>", 15500.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.input))
		})
	}
}

func TestParseStock(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{"first integer token", "1,234.50", 1234},
		{"html", "<span>3</span> available of 10", 3},
		{"empty", "", 0},
		{"number", 7.0, 7},
		{"nil", nil, 0},
		{"no digits", "out of stock", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStock(tt.input))
		})
	}
}

func TestNormalizeFeed(t *testing.T) {
	rows := []RawTradeline{
		{CardID: 101.0, BankName: " <b>Chase</b> ", CreditLimit: "<span>1</span> 15,000", Stock: "2", Price: "<span>36</span> 670.50"},
		{CardID: "102", BankName: "Amex", CreditLimit: 20000.0, Stock: 0.0, Price: ""},
		{CardID: "103", BankName: "Citi", CreditLimit: "9,000", Stock: "1", Price: 300.0},
	}

	out := NormalizeFeed(rows)

	assert.Len(t, out, 2)
	assert.Equal(t, "101", out[0].CardID)
	assert.Equal(t, "Chase", out[0].BankName)
	assert.Equal(t, int64(15000), out[0].CreditLimit)
	assert.Equal(t, 2, out[0].Stock)
	assert.Equal(t, int64(67050), out[0].Price.Int64())
	assert.True(t, out[0].InStock())

	assert.Equal(t, "103", out[1].CardID)
	assert.Equal(t, int64(30000), out[1].Price.Int64())
}

func TestExcludeBanks(t *testing.T) {
	list := []Tradeline{
		{CardID: "1", BankName: "Chase"},
		{CardID: "2", BankName: "AMEX"},
		{CardID: "3", BankName: "Citi"},
	}

	t.Run("case-insensitive match", func(t *testing.T) {
		out := ExcludeBanks(list, []string{"amex", " chase "})
		assert.Len(t, out, 1)
		assert.Equal(t, "3", out[0].CardID)
	})

	t.Run("no exclusions returns input", func(t *testing.T) {
		assert.Len(t, ExcludeBanks(list, nil), 3)
	})

	t.Run("blank entries ignored", func(t *testing.T) {
		assert.Len(t, ExcludeBanks(list, []string{"", "  "}), 3)
	})
}

func TestFindByCardID(t *testing.T) {
	list := []Tradeline{{CardID: "1"}, {CardID: "2"}}

	tl, ok := FindByCardID(list, "2")
	assert.True(t, ok)
	assert.Equal(t, "2", tl.CardID)

	_, ok = FindByCardID(list, "9")
	assert.False(t, ok)
}
