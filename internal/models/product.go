package models

import (
	"strconv"
	"time"
)

// Product statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Product is a marketplace listing.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Product) RecordID() string { return p.ID }

func (p Product) Row() map[string]string {
	return map[string]string{
		"id":         p.ID,
		"name":       p.Name,
		"category":   p.Category,
		"price":      strconv.FormatFloat(p.Price, 'f', 2, 64),
		"stock":      strconv.Itoa(p.Stock),
		"status":     p.Status,
		"created_at": formatTime(p.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
