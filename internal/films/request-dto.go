package films

import "time"

type CreateFilmRequest struct {
	Title         string     `json:"title" binding:"required,min=1,max=200"`
	OriginalTitle string     `json:"original_title" binding:"omitempty,max=200"`
	Synopsis      string     `json:"synopsis" binding:"required,min=10,max=2000"`
	Director      string     `json:"director" binding:"required,min=2,max=100"`
	Cast          string     `json:"cast" binding:"omitempty,max=500"`
	Genres        string     `json:"genres" binding:"required,min=3,max=200"`
	DurationMin   int        `json:"duration_min" binding:"required,min=1,max=600"`
	Rating        string     `json:"rating" binding:"required"`
	Language      string     `json:"language" binding:"required,min=2,max=50"`
	Subtitles     string     `json:"subtitles" binding:"omitempty,max=200"`
	ReleaseDate   time.Time  `json:"release_date" binding:"required"`
	AvailableFrom time.Time  `json:"available_from" binding:"required"`
	AvailableTo   *time.Time `json:"available_to"`
	PosterURL     string     `json:"poster_url" binding:"omitempty,url"`
	TrailerURL    string     `json:"trailer_url" binding:"omitempty,url"`
}

type UpdateFilmRequest struct {
	Title         *string    `json:"title" binding:"omitempty,min=1,max=200"`
	OriginalTitle *string    `json:"original_title" binding:"omitempty,max=200"`
	Synopsis      *string    `json:"synopsis" binding:"omitempty,min=10,max=2000"`
	Director      *string    `json:"director" binding:"omitempty,min=2,max=100"`
	Cast          *string    `json:"cast" binding:"omitempty,max=500"`
	Genres        *string    `json:"genres" binding:"omitempty,min=3,max=200"`
	DurationMin   *int       `json:"duration_min" binding:"omitempty,min=1,max=600"`
	Rating        *string    `json:"rating"`
	Language      *string    `json:"language" binding:"omitempty,min=2,max=50"`
	Subtitles     *string    `json:"subtitles" binding:"omitempty,max=200"`
	ReleaseDate   *time.Time `json:"release_date"`
	AvailableFrom *time.Time `json:"available_from"`
	AvailableTo   *time.Time `json:"available_to"`
	PosterURL     *string    `json:"poster_url" binding:"omitempty,url"`
	TrailerURL    *string    `json:"trailer_url" binding:"omitempty,url"`
	Active        *bool      `json:"active"`
}

type FilmListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
	Genre  string `form:"genre"`
	Active *bool  `form:"active"`
}
