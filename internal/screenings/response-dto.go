package screenings

import "time"

type ScreeningResponse struct {
	ID             string    `json:"id"`
	FilmID         string    `json:"film_id"`
	FilmTitle      string    `json:"film_title,omitempty"`
	HallID         string    `json:"hall_id"`
	HallName       string    `json:"hall_name"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	BasePriceMinor int64     `json:"base_price_minor"`
	VIPPriceMinor  int64     `json:"vip_price_minor"`
	State          string    `json:"state"`
	Language       string    `json:"language"`
	Subtitled      bool      `json:"subtitled"`
	Rows           int       `json:"rows"`
	SeatsPerRow    int       `json:"seats_per_row"`
	Capacity       int       `json:"capacity"`
	VIPRows        string    `json:"vip_rows,omitempty"`
	TicketsSold    int       `json:"tickets_sold"`
	SalesOpen      bool      `json:"sales_open"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PaginatedScreenings struct {
	Screenings []ScreeningResponse `json:"functions"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}

func (s *Screening) ToResponse(salesOpen bool) ScreeningResponse {
	return ScreeningResponse{
		ID:             s.ID.String(),
		FilmID:         s.FilmID.String(),
		HallID:         s.HallID.String(),
		HallName:       s.HallName,
		StartsAt:       s.StartsAt,
		EndsAt:         s.EndsAt,
		BasePriceMinor: s.BasePriceMinor,
		VIPPriceMinor:  s.VIPPriceMinor,
		State:          string(s.State),
		Language:       s.Language,
		Subtitled:      s.Subtitled,
		Rows:           s.Rows,
		SeatsPerRow:    s.SeatsPerRow,
		Capacity:       s.Capacity(),
		VIPRows:        s.VIPRows,
		TicketsSold:    s.TicketsSold,
		SalesOpen:      salesOpen,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
