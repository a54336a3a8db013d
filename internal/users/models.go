package users

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Tier is the loyalty tier driving the customer discount.
type Tier string

const (
	TierRegular  Tier = "regular"
	TierFrequent Tier = "frequent"
	TierPremium  Tier = "premium"
)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	FirstName string    `json:"first_name" gorm:"not null"`
	LastName  string    `json:"last_name" gorm:"not null"`
	Password  string    `json:"-" gorm:"not null"` // hide in json
	Role      Role      `json:"role" gorm:"not null;default:'CUSTOMER'"`
	Tier      Tier      `json:"tier" gorm:"not null;default:'regular'"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Phone     string    `json:"phone,omitempty"`
	Points    int64     `json:"points" gorm:"not null;default:0"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func IsValidRole(role string) bool {
	switch role {
	case string(RoleCustomer), string(RoleAdmin):
		return true
	default:
		return false
	}
}

func IsValidTier(tier string) bool {
	switch tier {
	case string(TierRegular), string(TierFrequent), string(TierPremium):
		return true
	default:
		return false
	}
}

// DiscountBP returns the customer discount for a tier in basis points.
func (t Tier) DiscountBP() int64 {
	switch t {
	case TierFrequent:
		return 1000
	case TierPremium:
		return 2000
	default:
		return 0
	}
}

// AddPoints accrues loyalty points, one point per whole currency unit spent.
func (u *User) AddPoints(totalMinor int64, minorUnitScale int64) {
	if minorUnitScale <= 0 {
		minorUnitScale = 1
	}
	u.Points += totalMinor / minorUnitScale
}
