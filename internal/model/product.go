package model

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Product mirrors the columns of the inventory products table that feed ingestion.
type Product struct {
	ProductID      int64
	OwnerID        string
	Name           string
	Type           string
	Price          float64
	Quantity       int64
	ExpiryDate     sql.NullString
	WarrantyPeriod sql.NullString
	Author         sql.NullString
	Pages          sql.NullInt64
}

// Describe renders the product attributes as a sentence list for embedding.
func (p *Product) Describe() string {
	parts := []string{
		fmt.Sprintf("A %s product priced at %s with quantity %d.", p.Type, strconv.FormatFloat(p.Price, 'f', -1, 64), p.Quantity),
	}
	if v := strings.TrimSpace(p.ExpiryDate.String); p.ExpiryDate.Valid && v != "" {
		parts = append(parts, fmt.Sprintf("It expires on %s.", v))
	}
	if v := strings.TrimSpace(p.WarrantyPeriod.String); p.WarrantyPeriod.Valid && v != "" && v != "0" {
		parts = append(parts, fmt.Sprintf("It has a warranty of %s.", v))
	}
	if v := strings.TrimSpace(p.Author.String); p.Author.Valid && v != "" {
		parts = append(parts, fmt.Sprintf("Written by %s.", v))
	}
	if p.Pages.Valid && p.Pages.Int64 > 0 {
		parts = append(parts, fmt.Sprintf("Contains %d pages.", p.Pages.Int64))
	}
	return strings.Join(parts, " ")
}

func (p *Product) SourceRecord() *SourceRecord {
	return &SourceRecord{
		SourceID:    strconv.FormatInt(p.ProductID, 10),
		Name:        p.Name,
		Description: p.Describe(),
		TenantID:    p.OwnerID,
	}
}
