package films

import "time"

type FilmResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	OriginalTitle string     `json:"original_title,omitempty"`
	Synopsis      string     `json:"synopsis"`
	Director      string     `json:"director"`
	Cast          string     `json:"cast,omitempty"`
	Genres        string     `json:"genres"`
	DurationMin   int        `json:"duration_min"`
	Rating        string     `json:"rating"`
	Language      string     `json:"language"`
	Subtitles     string     `json:"subtitles,omitempty"`
	ReleaseDate   time.Time  `json:"release_date"`
	AvailableFrom time.Time  `json:"available_from"`
	AvailableTo   *time.Time `json:"available_to,omitempty"`
	PosterURL     string     `json:"poster_url,omitempty"`
	TrailerURL    string     `json:"trailer_url,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type PaginatedFilms struct {
	Films      []FilmResponse `json:"films"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

func (f *Film) ToResponse() FilmResponse {
	return FilmResponse{
		ID:            f.ID.String(),
		Title:         f.Title,
		OriginalTitle: f.OriginalTitle,
		Synopsis:      f.Synopsis,
		Director:      f.Director,
		Cast:          f.Cast,
		Genres:        f.Genres,
		DurationMin:   f.DurationMin,
		Rating:        string(f.Rating),
		Language:      f.Language,
		Subtitles:     f.Subtitles,
		ReleaseDate:   f.ReleaseDate,
		AvailableFrom: f.AvailableFrom,
		AvailableTo:   f.AvailableTo,
		PosterURL:     f.PosterURL,
		TrailerURL:    f.TrailerURL,
		Active:        f.Active,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}
