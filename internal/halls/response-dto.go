package halls

import "time"

type HallResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Rows            int       `json:"rows"`
	SeatsPerRow     int       `json:"seats_per_row"`
	Capacity        int       `json:"capacity"`
	VIPRows         string    `json:"vip_rows,omitempty"`
	AccessibleSeats string    `json:"accessible_seats,omitempty"`
	Equipment       string    `json:"equipment,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type HallLayoutResponse struct {
	Hall  HallResponse     `json:"hall"`
	Seats []SeatDescriptor `json:"seats"`
}

type PaginatedHalls struct {
	Halls      []HallResponse `json:"halls"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

func (h *Hall) ToResponse() HallResponse {
	return HallResponse{
		ID:              h.ID.String(),
		Name:            h.Name,
		Type:            string(h.Type),
		Rows:            h.Rows,
		SeatsPerRow:     h.SeatsPerRow,
		Capacity:        h.Capacity(),
		VIPRows:         h.VIPRows,
		AccessibleSeats: h.AccessibleSeats,
		Equipment:       h.Equipment,
		Active:          h.Active,
		CreatedAt:       h.CreatedAt,
		UpdatedAt:       h.UpdatedAt,
	}
}
