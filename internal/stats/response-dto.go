package stats

import (
	"time"

	"github.com/google/uuid"
)

// OccupancyResponse is the live seat census for one function. Occupied
// counts every lit bit in the seat bitmap, sold and held split it into
// paid seats and in-flight holds.
type OccupancyResponse struct {
	FunctionID   uuid.UUID `json:"function"`
	Capacity     int       `json:"capacity"`
	Occupied     int       `json:"occupied"`
	Sold         int       `json:"sold"`
	Held         int       `json:"held"`
	Free         int       `json:"free"`
	OccupancyPct float64   `json:"occupancy_pct"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// FilmRankingEntry is one row of the tickets-sold leaderboard.
type FilmRankingEntry struct {
	Rank        int       `json:"rank"`
	FilmID      uuid.UUID `json:"film_id"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"poster_url,omitempty"`
	TicketsSold int64     `json:"tickets_sold"`
}

type RankingResponse struct {
	Films       []FilmRankingEntry `json:"films"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// OverviewResponse is the admin dashboard snapshot: confirmed sale
// totals plus the current top of the film ranking.
type OverviewResponse struct {
	ConfirmedSales int64              `json:"confirmed_sales"`
	TicketsSold    int64              `json:"tickets_sold"`
	RevenueMinor   int64              `json:"revenue_minor"`
	TopFilms       []FilmRankingEntry `json:"top_films"`
	GeneratedAt    time.Time          `json:"generated_at"`
}
