package halls

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HallType mirrors the projection formats offered by the cinema.
type HallType string

const (
	HallTypeStandard   HallType = "standard"
	HallTypeVIP        HallType = "vip"
	HallTypeIMAX       HallType = "imax"
	HallType4DX        HallType = "4dx"
	HallTypeDolbyAtmos HallType = "dolby_atmos"
)

// MaxRows is bounded by single-letter row labels: the seat bitmap
// derives bit offsets from the row letter, so rows beyond Z would
// collide with the offset formula.
const MaxRows = 26

// MaxSeatsPerRow matches the widest hall layout the chain operates.
const MaxSeatsPerRow = 50

type Hall struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name            string    `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Type            HallType  `json:"type" gorm:"type:varchar(20);not null;default:'standard'"`
	Rows            int       `json:"rows" gorm:"not null;check:rows > 0"`
	SeatsPerRow     int       `json:"seats_per_row" gorm:"not null;check:seats_per_row > 0"`
	VIPRows         string    `json:"vip_rows,omitempty" gorm:"size:100"`         // comma-separated row letters, e.g. "A,B"
	AccessibleSeats string    `json:"accessible_seats,omitempty" gorm:"size:500"` // comma-separated seat codes
	Equipment       string    `json:"equipment,omitempty" gorm:"size:300"`
	Active          bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Hall) TableName() string {
	return "halls"
}

// Capacity returns the total number of seats in the hall.
func (h *Hall) Capacity() int {
	return h.Rows * h.SeatsPerRow
}

// SeatDescriptor describes one physical seat of a hall layout.
type SeatDescriptor struct {
	Code   string `json:"code"`
	Row    string `json:"row"`
	Number int    `json:"number"`
	Type   string `json:"type"` // standard, vip, accessible
}

const (
	SeatTypeStandard   = "standard"
	SeatTypeVIP        = "vip"
	SeatTypeAccessible = "accessible"
)

// RowLabel converts a zero-based row index to its letter ("A".."Z").
func RowLabel(index int) string {
	if index < 0 || index >= MaxRows {
		return ""
	}
	return string(rune('A' + index))
}

// RowIndex converts a row letter back to its zero-based index.
func RowIndex(label string) (int, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) != 1 || label[0] < 'A' || label[0] > 'Z' {
		return 0, fmt.Errorf("invalid row label %q", label)
	}
	return int(label[0] - 'A'), nil
}

// ParseSeatCode splits a seat code such as "A12" into row letter and number.
func ParseSeatCode(code string) (row string, number int, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return "", 0, fmt.Errorf("invalid seat code %q", code)
	}
	row = code[:1]
	if row[0] < 'A' || row[0] > 'Z' {
		return "", 0, fmt.Errorf("invalid seat code %q", code)
	}
	number, err = strconv.Atoi(code[1:])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("invalid seat code %q", code)
	}
	return row, number, nil
}

// VIPRowSet expands the comma-separated VIP row list.
func (h *Hall) VIPRowSet() map[string]bool {
	return splitSet(h.VIPRows)
}

// AccessibleSeatSet expands the comma-separated accessible seat list.
func (h *Hall) AccessibleSeatSet() map[string]bool {
	return splitSet(h.AccessibleSeats)
}

func splitSet(csv string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(csv, ",") {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item != "" {
			set[item] = true
		}
	}
	return set
}

// SeatGrid generates the full seat layout of the hall, row by row.
// Accessible designation wins over VIP when a code appears in both lists.
func (h *Hall) SeatGrid() []SeatDescriptor {
	vipRows := h.VIPRowSet()
	accessible := h.AccessibleSeatSet()

	grid := make([]SeatDescriptor, 0, h.Capacity())
	for r := 0; r < h.Rows; r++ {
		row := RowLabel(r)
		for n := 1; n <= h.SeatsPerRow; n++ {
			code := fmt.Sprintf("%s%d", row, n)
			seatType := SeatTypeStandard
			if vipRows[row] {
				seatType = SeatTypeVIP
			}
			if accessible[code] {
				seatType = SeatTypeAccessible
			}
			grid = append(grid, SeatDescriptor{
				Code:   code,
				Row:    row,
				Number: n,
				Type:   seatType,
			})
		}
	}
	return grid
}

func IsValidHallType(hallType string) bool {
	switch HallType(hallType) {
	case HallTypeStandard, HallTypeVIP, HallTypeIMAX, HallType4DX, HallTypeDolbyAtmos:
		return true
	default:
		return false
	}
}
