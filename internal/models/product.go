// Package models defines core data structures for products, recommendation
// requests, and recommendation results.
package models

import "strings"

// Product is a single catalog entry. Products are immutable after catalog load.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// Document returns the text used for vectorization: name, category, and
// description joined by spaces. Empty fields are skipped.
func (p *Product) Document() string {
	parts := make([]string, 0, 3)
	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	return strings.Join(parts, " ")
}
