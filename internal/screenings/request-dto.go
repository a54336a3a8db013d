package screenings

import "time"

type CreateScreeningRequest struct {
	FilmID         string    `json:"film_id" binding:"required,uuid"`
	HallID         string    `json:"hall_id" binding:"required,uuid"`
	StartsAt       time.Time `json:"starts_at" binding:"required"`
	BasePriceMinor int64     `json:"base_price_minor" binding:"required,min=1"`
	VIPPriceMinor  int64     `json:"vip_price_minor" binding:"required,min=1"`
	Language       string    `json:"language" binding:"required,min=2,max=50"`
	Subtitled      bool      `json:"subtitled"`
}

type UpdateScreeningRequest struct {
	StartsAt       *time.Time `json:"starts_at"`
	BasePriceMinor *int64     `json:"base_price_minor" binding:"omitempty,min=1"`
	VIPPriceMinor  *int64     `json:"vip_price_minor" binding:"omitempty,min=1"`
	Language       *string    `json:"language" binding:"omitempty,min=2,max=50"`
	Subtitled      *bool      `json:"subtitled"`
}

type UpdateStateRequest struct {
	State string `json:"state" binding:"required,oneof=scheduled running finished cancelled"`
}

type ScreeningListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	FilmID   string `form:"film_id" binding:"omitempty,uuid"`
	HallID   string `form:"hall_id" binding:"omitempty,uuid"`
	State    string `form:"state" binding:"omitempty,oneof=scheduled running finished cancelled"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}
