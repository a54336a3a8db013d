package seats

// HoldSeatsRequest reserves seats for the authenticated caller. The
// per-hold limit comes from configuration and is enforced by the service.
type HoldSeatsRequest struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,required"`
}

// ReleaseSeatsRequest frees the caller's holds on the listed seats.
type ReleaseSeatsRequest struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,required"`
}
