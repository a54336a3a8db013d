package database

import (
	"cinetix/internal/cancellation"
	"cinetix/internal/films"
	"cinetix/internal/halls"
	"cinetix/internal/screenings"
	"cinetix/internal/seats"
	"cinetix/internal/transactions"
	"cinetix/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&films.Film{},
		&halls.Hall{},
		&screenings.Screening{},
		&seats.SeatSelection{},
		&transactions.Transaction{},
		&transactions.TransactionSeat{},
		&transactions.Payment{},
		&cancellation.Cancellation{},
	)
}
