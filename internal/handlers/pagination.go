package handlers

import (
	"strconv"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

func parseNonNegativeInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func buildPaginationMeta(skip, take, total int) models.PaginationMeta {
	return models.PaginationMeta{
		Skip:  skip,
		Take:  take,
		Total: total,
	}
}
