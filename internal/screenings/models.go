package screenings

import (
	"fmt"
	"time"

	"cinetix/internal/halls"

	"github.com/google/uuid"
)

// Screening is a scheduled projection of a film in a hall. The hall layout
// is snapshotted onto the row at creation time: seat bit offsets, VIP rows
// and accessible seats are resolved against this copy, never against the
// live hall, so later hall edits cannot shift a function's seat map.
type Screening struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	FilmID uuid.UUID `json:"film_id" gorm:"type:uuid;not null;index"`
	HallID uuid.UUID `json:"hall_id" gorm:"type:uuid;not null;index"`

	StartsAt time.Time `json:"starts_at" gorm:"not null"`
	EndsAt   time.Time `json:"ends_at" gorm:"not null"`

	BasePriceMinor int64 `json:"base_price_minor" gorm:"not null;check:base_price_minor > 0"`
	VIPPriceMinor  int64 `json:"vip_price_minor" gorm:"not null;check:vip_price_minor > 0"`

	State     State  `json:"state" gorm:"type:varchar(20);not null;default:'scheduled'"`
	Language  string `json:"language" gorm:"not null;size:50"`
	Subtitled bool   `json:"subtitled" gorm:"not null;default:false"`

	// Hall layout snapshot
	HallName        string `json:"hall_name" gorm:"not null;size:100"`
	Rows            int    `json:"rows" gorm:"not null"`
	SeatsPerRow     int    `json:"seats_per_row" gorm:"not null"`
	VIPRows         string `json:"vip_rows,omitempty" gorm:"size:100"`
	AccessibleSeats string `json:"accessible_seats,omitempty" gorm:"size:500"`

	// Sales rollups, updated on confirmation
	TicketsSold  int   `json:"tickets_sold" gorm:"not null;default:0"`
	RevenueMinor int64 `json:"revenue_minor" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Screening) TableName() string {
	return "functions"
}

// Capacity returns the total seat count of the snapshotted layout.
func (s *Screening) Capacity() int {
	return s.Rows * s.SeatsPerRow
}

// SeatBitOffset maps a seat code to its bit position in the function's
// availability bitmap: (row index * seats per row) + seat number. Seat
// numbers are 1-based, so bit 0 is never used.
func (s *Screening) SeatBitOffset(code string) (int64, error) {
	row, number, err := halls.ParseSeatCode(code)
	if err != nil {
		return 0, err
	}
	rowIdx, err := halls.RowIndex(row)
	if err != nil {
		return 0, err
	}
	if rowIdx >= s.Rows {
		return 0, fmt.Errorf("seat %s: row %s does not exist in this hall", code, row)
	}
	if number > s.SeatsPerRow {
		return 0, fmt.Errorf("seat %s: seat number exceeds row width %d", code, s.SeatsPerRow)
	}
	return int64(rowIdx*s.SeatsPerRow + number), nil
}

// ValidateSeatCode reports whether the code names a seat of this layout.
func (s *Screening) ValidateSeatCode(code string) error {
	_, err := s.SeatBitOffset(code)
	return err
}

// SeatType returns standard, vip or accessible for a seat of this layout.
func (s *Screening) SeatType(code string) string {
	hall := s.layoutHall()
	row, _, err := halls.ParseSeatCode(code)
	if err != nil {
		return halls.SeatTypeStandard
	}
	if hall.AccessibleSeatSet()[code] {
		return halls.SeatTypeAccessible
	}
	if hall.VIPRowSet()[row] {
		return halls.SeatTypeVIP
	}
	return halls.SeatTypeStandard
}

// PriceForSeat returns the minor-unit price of one seat. VIP rows use the
// VIP price; accessible and standard seats use the base price.
func (s *Screening) PriceForSeat(code string) int64 {
	if s.SeatType(code) == halls.SeatTypeVIP {
		return s.VIPPriceMinor
	}
	return s.BasePriceMinor
}

// SeatGrid expands the snapshotted layout into seat descriptors.
func (s *Screening) SeatGrid() []halls.SeatDescriptor {
	hall := s.layoutHall()
	return hall.SeatGrid()
}

// IsSalesOpen reports whether tickets can still be sold. Sales stay open
// through the start of the projection plus a grace window for latecomers,
// and close permanently once the function is cancelled or finished.
func (s *Screening) IsSalesOpen(now time.Time, grace time.Duration) bool {
	if s.State == StateCancelled || s.State == StateFinished {
		return false
	}
	return !now.After(s.StartsAt.Add(grace))
}

func (s *Screening) layoutHall() halls.Hall {
	return halls.Hall{
		Rows:            s.Rows,
		SeatsPerRow:     s.SeatsPerRow,
		VIPRows:         s.VIPRows,
		AccessibleSeats: s.AccessibleSeats,
	}
}
