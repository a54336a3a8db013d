package halls

type CreateHallRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100"`
	Type            string `json:"type" binding:"omitempty"`
	Rows            int    `json:"rows" binding:"required,min=1,max=26"`
	SeatsPerRow     int    `json:"seats_per_row" binding:"required,min=1,max=50"`
	VIPRows         string `json:"vip_rows" binding:"omitempty,max=100"`
	AccessibleSeats string `json:"accessible_seats" binding:"omitempty,max=500"`
	Equipment       string `json:"equipment" binding:"omitempty,max=300"`
}

// Geometry edits only affect future functions: every function keeps its
// own layout snapshot, so live seat maps never shift under a sale.
type UpdateHallRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=2,max=100"`
	Type            *string `json:"type"`
	Rows            *int    `json:"rows" binding:"omitempty,min=1,max=26"`
	SeatsPerRow     *int    `json:"seats_per_row" binding:"omitempty,min=1,max=50"`
	VIPRows         *string `json:"vip_rows" binding:"omitempty,max=100"`
	AccessibleSeats *string `json:"accessible_seats" binding:"omitempty,max=500"`
	Equipment       *string `json:"equipment" binding:"omitempty,max=300"`
	Active          *bool   `json:"active"`
}

type HallListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Type   string `form:"type"`
	Active *bool  `form:"active"`
}
