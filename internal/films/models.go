package films

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rating is the age classification printed on tickets and listings.
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG-13"
	RatingR    Rating = "R"
	RatingNC17 Rating = "NC-17"
)

var validGenres = map[string]bool{
	"action":          true,
	"adventure":       true,
	"comedy":          true,
	"drama":           true,
	"horror":          true,
	"science_fiction": true,
	"romance":         true,
	"thriller":        true,
	"animation":       true,
	"documentary":     true,
}

type Film struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title         string     `json:"title" gorm:"not null;size:200;index"`
	OriginalTitle string     `json:"original_title,omitempty" gorm:"size:200"`
	Synopsis      string     `json:"synopsis" gorm:"type:text;not null"`
	Director      string     `json:"director" gorm:"not null;size:100"`
	Cast          string     `json:"cast,omitempty" gorm:"size:500"` // comma-separated principal actors
	Genres        string     `json:"genres" gorm:"not null;size:200"`
	DurationMin   int        `json:"duration_min" gorm:"not null;check:duration_min > 0"`
	Rating        Rating     `json:"rating" gorm:"type:varchar(10);not null"`
	Language      string     `json:"language" gorm:"not null;size:50"`
	Subtitles     string     `json:"subtitles,omitempty" gorm:"size:200"`
	ReleaseDate   time.Time  `json:"release_date" gorm:"not null"`
	AvailableFrom time.Time  `json:"available_from" gorm:"not null"`
	AvailableTo   *time.Time `json:"available_to,omitempty"`
	PosterURL     string     `json:"poster_url,omitempty" gorm:"size:500"`
	TrailerURL    string     `json:"trailer_url,omitempty" gorm:"size:500"`
	Active        bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Film) TableName() string {
	return "films"
}

// IsAvailable reports whether the film can be scheduled at the given date.
func (f *Film) IsAvailable(at time.Time) bool {
	if !f.Active {
		return false
	}
	if at.Before(f.AvailableFrom) {
		return false
	}
	if f.AvailableTo != nil && at.After(*f.AvailableTo) {
		return false
	}
	return true
}

func IsValidRating(rating string) bool {
	switch Rating(rating) {
	case RatingG, RatingPG, RatingPG13, RatingR, RatingNC17:
		return true
	default:
		return false
	}
}

// ValidateGenres checks a comma-separated genre list against the catalog set.
// It returns the genres that are not recognized.
func ValidateGenres(genres string) []string {
	var invalid []string
	for _, g := range strings.Split(genres, ",") {
		g = strings.TrimSpace(strings.ToLower(g))
		if g == "" {
			continue
		}
		if !validGenres[g] {
			invalid = append(invalid, g)
		}
	}
	return invalid
}
