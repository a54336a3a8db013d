package seats

import "time"

// SeatStatusResponse is one seat of the map with its live state.
type SeatStatusResponse struct {
	Code       string `json:"code"`
	Row        string `json:"row"`
	Number     int    `json:"number"`
	Type       string `json:"type"`
	State      string `json:"state"`
	Mine       bool   `json:"mine,omitempty"`
	PriceMinor int64  `json:"price_minor"`
}

// SeatMapResponse is the full grid snapshot with aggregate counts.
type SeatMapResponse struct {
	FunctionID  string               `json:"function_id"`
	Capacity    int                  `json:"capacity"`
	Free        int                  `json:"free"`
	Held        int                  `json:"held"`
	Sold        int                  `json:"sold"`
	Seats       []SeatStatusResponse `json:"seats"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// HoldResponse reports a successful hold batch. Seats lists every requested
// seat, including holds that were reused; ExpiresAt is the earliest expiry
// across the batch.
type HoldResponse struct {
	FunctionID string    `json:"function_id"`
	Seats      []string  `json:"seats"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// ReleaseResponse lists the seats actually released; seats the caller did
// not hold are skipped, not errors.
type ReleaseResponse struct {
	FunctionID string   `json:"function_id"`
	Released   []string `json:"released"`
}

// RebuildResponse summarizes a bitmap rebuild from durable state.
type RebuildResponse struct {
	FunctionID string `json:"function_id"`
	SoldSeats  int    `json:"sold_seats"`
	HeldSeats  int    `json:"held_seats"`
}
