package main

import (
	"fmt"
	"log"
	"time"

	"cinetix/internal/films"
	"cinetix/internal/halls"
	"cinetix/internal/screenings"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/database"
	"cinetix/internal/users"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db *database.DB

	hallIDs map[string]uuid.UUID
	filmIDs map[string]uuid.UUID
}

func main() {
	fmt.Println("🌱 Starting Cinetix Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:      db,
		hallIDs: make(map[string]uuid.UUID),
		filmIDs: make(map[string]uuid.UUID),
	}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"cancellations",
		"payments",
		"transaction_seats",
		"transactions",
		"selections",
		"functions",
		"films",
		"halls",
		"users",
	}

	pg := s.db.GetPostgreSQL()
	for _, table := range tables {
		if err := pg.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) SeedAll() error {
	if err := s.SeedUsers(); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := s.SeedHalls(); err != nil {
		return fmt.Errorf("seed halls: %w", err)
	}
	if err := s.SeedFilms(); err != nil {
		return fmt.Errorf("seed films: %w", err)
	}
	if err := s.SeedScreenings(); err != nil {
		return fmt.Errorf("seed screenings: %w", err)
	}
	return nil
}

func (s *Seeder) SeedUsers() error {
	type seedUser struct {
		firstName string
		lastName  string
		email     string
		password  string
		role      users.Role
		tier      users.Tier
		points    int64
	}

	accounts := []seedUser{
		{"Admin", "User", "admin@cinetix.local", "admin123", users.RoleAdmin, users.TierRegular, 0},
		{"Lucia", "Vega", "lucia@example.com", "password123", users.RoleCustomer, users.TierPremium, 4200},
		{"Marco", "Ruiz", "marco@example.com", "password123", users.RoleCustomer, users.TierFrequent, 1450},
		{"Nina", "Kowalski", "nina@example.com", "password123", users.RoleCustomer, users.TierRegular, 120},
		{"Tomas", "Herrera", "tomas@example.com", "password123", users.RoleCustomer, users.TierRegular, 0},
	}

	pg := s.db.GetPostgreSQL()
	for _, a := range accounts {
		hashed, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := users.User{
			ID:        uuid.New(),
			FirstName: a.firstName,
			LastName:  a.lastName,
			Email:     a.email,
			Password:  string(hashed),
			Role:      a.role,
			Tier:      a.tier,
			Points:    a.points,
			Active:    true,
		}
		if err := pg.Create(&user).Error; err != nil {
			return err
		}
		fmt.Printf("   👤 %s (%s / %s)\n", a.email, a.role, a.tier)
	}
	return nil
}

func (s *Seeder) SeedHalls() error {
	seedHalls := []halls.Hall{
		{
			ID:          uuid.New(),
			Name:        "Sala 1",
			Type:        halls.HallTypeStandard,
			Rows:        10,
			SeatsPerRow: 12,
			VIPRows:     "A,B",
			Equipment:   "digital,dolby-7.1",
			Active:      true,
		},
		{
			ID:              uuid.New(),
			Name:            "Sala 2 IMAX",
			Type:            halls.HallTypeIMAX,
			Rows:            14,
			SeatsPerRow:     18,
			VIPRows:         "A,B,C",
			AccessibleSeats: "N1,N2",
			Equipment:       "imax-laser,dolby-atmos",
			Active:          true,
		},
		{
			ID:          uuid.New(),
			Name:        "Sala 3 VIP",
			Type:        halls.HallTypeVIP,
			Rows:        6,
			SeatsPerRow: 8,
			VIPRows:     "A,B,C,D,E,F",
			Equipment:   "recliner,digital",
			Active:      true,
		},
	}

	pg := s.db.GetPostgreSQL()
	for i := range seedHalls {
		if err := pg.Create(&seedHalls[i]).Error; err != nil {
			return err
		}
		s.hallIDs[seedHalls[i].Name] = seedHalls[i].ID
		fmt.Printf("   🏟️  %s (%d seats)\n", seedHalls[i].Name, seedHalls[i].Rows*seedHalls[i].SeatsPerRow)
	}
	return nil
}

func (s *Seeder) SeedFilms() error {
	now := time.Now()
	seedFilms := []films.Film{
		{
			ID:            uuid.New(),
			Title:         "The Last Projection",
			Synopsis:      "A retiring projectionist discovers the final reel of a film that was never released, and the studio that buried it wants it back.",
			Director:      "Elena Duarte",
			Cast:          "Javier Soto, Amara Lindgren",
			Genres:        "drama,thriller",
			DurationMin:   128,
			Rating:        films.RatingPG13,
			Language:      "English",
			Subtitles:     "Spanish",
			ReleaseDate:   now.AddDate(0, -1, 0),
			AvailableFrom: now.AddDate(0, 0, -14),
			Active:        true,
		},
		{
			ID:            uuid.New(),
			Title:         "Orbit Decay",
			Synopsis:      "Two salvage pilots race a collapsing station's orbit to recover the only copy of a vaccine formula.",
			Director:      "Kenji Moreau",
			Cast:          "Priya Anand, Oscar Whitfield",
			Genres:        "sci-fi,action",
			DurationMin:   142,
			Rating:        films.RatingPG13,
			Language:      "English",
			ReleaseDate:   now.AddDate(0, 0, -7),
			AvailableFrom: now.AddDate(0, 0, -7),
			Active:        true,
		},
		{
			ID:            uuid.New(),
			Title:         "Medianoche en el Puerto",
			Synopsis:      "A dockworker's quiet life unravels when a shipping container arrives addressed to a man who died twenty years ago.",
			Director:      "Sofía Carranza",
			Genres:        "mystery,drama",
			DurationMin:   111,
			Rating:        films.RatingR,
			Language:      "Spanish",
			Subtitles:     "English",
			ReleaseDate:   now.AddDate(0, -2, 0),
			AvailableFrom: now.AddDate(0, 0, -30),
			Active:        true,
		},
	}

	pg := s.db.GetPostgreSQL()
	for i := range seedFilms {
		if err := pg.Create(&seedFilms[i]).Error; err != nil {
			return err
		}
		s.filmIDs[seedFilms[i].Title] = seedFilms[i].ID
		fmt.Printf("   🎬 %s (%d min, %s)\n", seedFilms[i].Title, seedFilms[i].DurationMin, seedFilms[i].Rating)
	}
	return nil
}

func (s *Seeder) SeedScreenings() error {
	pg := s.db.GetPostgreSQL()

	var seedHalls []halls.Hall
	if err := pg.Find(&seedHalls).Error; err != nil {
		return err
	}
	hallByName := make(map[string]halls.Hall, len(seedHalls))
	for _, h := range seedHalls {
		hallByName[h.Name] = h
	}

	type slot struct {
		film     string
		hall     string
		startsIn time.Duration
		duration time.Duration
		baseCent int64
		vipCent  int64
	}

	// Two days of showtimes across all halls; all start inside the sales
	// window so the seat map is live immediately after seeding.
	slots := []slot{
		{"The Last Projection", "Sala 1", 3 * time.Hour, 128 * time.Minute, 1200, 1800},
		{"The Last Projection", "Sala 2 IMAX", 6 * time.Hour, 128 * time.Minute, 1600, 2400},
		{"Orbit Decay", "Sala 2 IMAX", 26 * time.Hour, 142 * time.Minute, 1600, 2400},
		{"Orbit Decay", "Sala 1", 28 * time.Hour, 142 * time.Minute, 1200, 1800},
		{"Medianoche en el Puerto", "Sala 3 VIP", 9 * time.Hour, 111 * time.Minute, 2000, 2600},
		{"Medianoche en el Puerto", "Sala 3 VIP", 33 * time.Hour, 111 * time.Minute, 2000, 2600},
	}

	now := time.Now()
	for _, sl := range slots {
		hall, ok := hallByName[sl.hall]
		if !ok {
			return fmt.Errorf("unknown hall %q", sl.hall)
		}
		filmID, ok := s.filmIDs[sl.film]
		if !ok {
			return fmt.Errorf("unknown film %q", sl.film)
		}

		starts := now.Add(sl.startsIn).Truncate(time.Minute)
		screening := screenings.Screening{
			ID:             uuid.New(),
			FilmID:         filmID,
			HallID:         hall.ID,
			StartsAt:       starts,
			EndsAt:         starts.Add(sl.duration),
			BasePriceMinor: sl.baseCent,
			VIPPriceMinor:  sl.vipCent,
			State:          screenings.StateScheduled,
			Language:       "English",

			HallName:        hall.Name,
			Rows:            hall.Rows,
			SeatsPerRow:     hall.SeatsPerRow,
			VIPRows:         hall.VIPRows,
			AccessibleSeats: hall.AccessibleSeats,
		}
		if err := pg.Create(&screening).Error; err != nil {
			return err
		}
		fmt.Printf("   🎟️  %s @ %s, %s\n", sl.film, sl.hall, starts.Format("Mon 15:04"))
	}
	return nil
}
