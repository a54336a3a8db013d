package transactions

import (
	"regexp"
	"testing"
	"time"

	"cinetix/internal/halls"
	"cinetix/internal/screenings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricingScreening() *screenings.Screening {
	return &screenings.Screening{
		BasePriceMinor: 1000,
		VIPPriceMinor:  1500,
		Rows:           3,
		SeatsPerRow:    4,
		VIPRows:        "A",
	}
}

func TestBankersDiv(t *testing.T) {
	cases := []struct {
		n, d, want int64
	}{
		{10, 2, 5},   // exact
		{41, 10, 4},  // below half rounds down
		{49, 10, 5},  // above half rounds up
		{45, 10, 4},  // half to even: 4.5 -> 4
		{55, 10, 6},  // half to even: 5.5 -> 6
		{25, 10, 2},  // half to even: 2.5 -> 2
		{35, 10, 4},  // half to even: 3.5 -> 4
		{0, 10, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, bankersDiv(c.n, c.d), "bankersDiv(%d, %d)", c.n, c.d)
	}
}

func TestPriceSeatsTierAndPromoStack(t *testing.T) {
	// Frequent tier (1000bp) plus CINE2024 (500bp) on a VIP and a standard
	// seat, 19% tax on the discounted amount.
	quote, err := PriceSeats(pricingScreening(), []string{"A1", "B1"}, 1000, 500, 1900)
	require.NoError(t, err)

	assert.Equal(t, int64(2500), quote.SubtotalMinor)
	assert.Equal(t, int64(375), quote.DiscountMinor)
	assert.Equal(t, int64(404), quote.TaxMinor) // 2125 * 19% = 403.75, rounds half-up to 404
	assert.Equal(t, int64(2529), quote.TotalMinor)

	require.Len(t, quote.Lines, 2)
	assert.Equal(t, "A1", quote.Lines[0].Code)
	assert.Equal(t, halls.SeatTypeVIP, quote.Lines[0].Tier)
	assert.Equal(t, int64(1500), quote.Lines[0].UnitPriceMinor)
	assert.Equal(t, int64(1275), quote.Lines[0].FinalPriceMinor)
	assert.Equal(t, int64(850), quote.Lines[1].FinalPriceMinor)
}

func TestPriceSeatsLinesSumToDiscountedSubtotal(t *testing.T) {
	screening := pricingScreening()
	screening.BasePriceMinor = 333
	screening.VIPPriceMinor = 333

	// 10% off 666 is 599.4: the residual lands on the last line so the
	// lines still sum exactly.
	quote, err := PriceSeats(screening, []string{"B1", "B2"}, 1000, 0, 0)
	require.NoError(t, err)

	discounted := quote.SubtotalMinor - quote.DiscountMinor
	var sum int64
	for _, line := range quote.Lines {
		sum += line.FinalPriceMinor
	}
	assert.Equal(t, discounted, sum)
	assert.Equal(t, int64(300), quote.Lines[0].FinalPriceMinor)
	assert.Equal(t, int64(299), quote.Lines[1].FinalPriceMinor)
}

func TestPriceSeatsNoDiscount(t *testing.T) {
	quote, err := PriceSeats(pricingScreening(), []string{"B1"}, 0, 0, 1900)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), quote.SubtotalMinor)
	assert.Zero(t, quote.DiscountMinor)
	assert.Equal(t, int64(190), quote.TaxMinor)
	assert.Equal(t, int64(1190), quote.TotalMinor)
}

func TestPriceSeatsDiscountCappedAtFullPrice(t *testing.T) {
	quote, err := PriceSeats(pricingScreening(), []string{"B1"}, 9000, 5000, 1900)
	require.NoError(t, err)

	assert.Equal(t, quote.SubtotalMinor, quote.DiscountMinor)
	assert.Zero(t, quote.TaxMinor)
	assert.Zero(t, quote.TotalMinor)
}

func TestPriceSeatsRejectsMalformedCode(t *testing.T) {
	_, err := PriceSeats(pricingScreening(), []string{"11A"}, 0, 0, 0)
	assert.Error(t, err)
}

func TestPromoDiscountBP(t *testing.T) {
	bp, ok := PromoDiscountBP("cine2024")
	assert.True(t, ok)
	assert.Equal(t, int64(500), bp)

	bp, ok = PromoDiscountBP("  CINE2024  ")
	assert.True(t, ok)
	assert.Equal(t, int64(500), bp)

	_, ok = PromoDiscountBP("EXPIRED2019")
	assert.False(t, ok)
}

func TestNewInvoiceNumber(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	invoice := NewInvoiceNumber(now)

	assert.Regexp(t, regexp.MustCompile(`^CIN-20260314150926-[0-9A-F]{8}$`), invoice)
	assert.NotEqual(t, invoice, NewInvoiceNumber(now), "concurrent invoices must differ")
}
