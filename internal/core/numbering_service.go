package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Document series used for gapless numbering.
const (
	SeriesJournal = "JE"
	SeriesInvoice = "INV"
)

// NumberingService hands out gapless, per-year document numbers.
type NumberingService interface {
	// NextNumberTx allocates the next number for (series, year) inside the
	// caller's transaction, so a rolled-back caller leaves no gap.
	NextNumberTx(ctx context.Context, tx pgx.Tx, series string, year int) (string, error)
}

type numberingService struct{}

func NewNumberingService() NumberingService {
	return &numberingService{}
}

func (s *numberingService) NextNumberTx(ctx context.Context, tx pgx.Tx, series string, year int) (string, error) {
	// The upsert takes a row lock on the sequence, serialising concurrent allocators.
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (series, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (series, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, series, year).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return FormatDocumentNumber(series, year, lastNumber), nil
}

// FormatDocumentNumber renders e.g. INV-2025-00042.
func FormatDocumentNumber(series string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", series, year, n)
}
