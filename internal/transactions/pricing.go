package transactions

import (
	"fmt"
	"strings"
	"time"

	"cinetix/internal/halls"
	"cinetix/internal/screenings"

	"github.com/google/uuid"
)

const basisPointScale = 10000

// Promotional codes and their discount in basis points. Stacking with the
// customer tier discount is additive.
var promoCodes = map[string]int64{
	"CINE2024": 500,
}

// PromoDiscountBP resolves a promo code case-insensitively.
func PromoDiscountBP(code string) (int64, bool) {
	bp, ok := promoCodes[strings.ToUpper(strings.TrimSpace(code))]
	return bp, ok
}

// PriceLine is one seat priced inside a quote.
type PriceLine struct {
	Code            string
	Row             string
	Number          int
	Tier            string
	UnitPriceMinor  int64
	DiscountMinor   int64
	FinalPriceMinor int64
}

// Quote is the full price breakdown for a seat batch. All amounts are
// integer minor units.
type Quote struct {
	Lines              []PriceLine
	SubtotalMinor      int64
	CustomerDiscountBP int64
	PromoCode          string
	PromoDiscountBP    int64
	DiscountMinor      int64
	TaxMinor           int64
	TotalMinor         int64
}

// PriceSeats prices a seat batch for a function. Unit prices come from the
// seat tier, the combined discount is applied to the subtotal, and tax is
// computed on the discounted amount with banker's rounding. Per-line final
// prices carry the rounding residual on the last line, so the lines always
// sum to the discounted subtotal exactly.
func PriceSeats(screening *screenings.Screening, codes []string, customerBP, promoBP, taxRateBP int64) (Quote, error) {
	quote := Quote{
		CustomerDiscountBP: customerBP,
		PromoDiscountBP:    promoBP,
		Lines:              make([]PriceLine, 0, len(codes)),
	}

	discountBP := customerBP + promoBP
	if discountBP > basisPointScale {
		discountBP = basisPointScale
	}
	keepBP := basisPointScale - discountBP

	for _, code := range codes {
		row, number, err := halls.ParseSeatCode(code)
		if err != nil {
			return Quote{}, fmt.Errorf("price seat %s: %w", code, err)
		}
		unit := screening.PriceForSeat(code)
		quote.SubtotalMinor += unit
		quote.Lines = append(quote.Lines, PriceLine{
			Code:           code,
			Row:            row,
			Number:         number,
			Tier:           screening.SeatType(code),
			UnitPriceMinor: unit,
		})
	}

	discounted := bankersDiv(quote.SubtotalMinor*keepBP, basisPointScale)
	if discounted < 0 {
		discounted = 0
	}
	quote.DiscountMinor = quote.SubtotalMinor - discounted
	quote.TaxMinor = bankersDiv(discounted*taxRateBP, basisPointScale)
	quote.TotalMinor = discounted + quote.TaxMinor

	// Per-line split, residual on the last line.
	var assigned int64
	for i := range quote.Lines {
		line := &quote.Lines[i]
		if i == len(quote.Lines)-1 {
			line.FinalPriceMinor = discounted - assigned
		} else {
			line.FinalPriceMinor = bankersDiv(line.UnitPriceMinor*keepBP, basisPointScale)
			assigned += line.FinalPriceMinor
		}
		line.DiscountMinor = line.UnitPriceMinor - line.FinalPriceMinor
	}

	return quote, nil
}

// bankersDiv divides n by d rounding half to even. Amounts in this package
// are never negative, so only the non-negative case is handled.
func bankersDiv(n, d int64) int64 {
	q := n / d
	r := n % d
	switch {
	case 2*r < d:
		return q
	case 2*r > d:
		return q + 1
	default:
		if q%2 == 0 {
			return q
		}
		return q + 1
	}
}

// NewInvoiceNumber builds CIN-{yyyymmddHHMMSS}-{8 hex}. The hex suffix is
// drawn from a fresh uuid so concurrent purchases within the same second
// still get distinct invoices.
func NewInvoiceNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("CIN-%s-%s", now.Format("20060102150405"), strings.ToUpper(suffix))
}
