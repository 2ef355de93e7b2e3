package model

import "time"

const DefaultDescription = "No description"

type GroceryItem struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"image_url"`
	Details        string    `json:"details"`
	Quantity       int       `json:"quantity"`
	Barcode        string    `json:"barcode"`
	Brand          string    `json:"brand"`
	Category       string    `json:"category"`
	ExpirationDate string    `json:"expiration_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApplyDefaults fills the fields a new item gets when left empty.
func (i *GroceryItem) ApplyDefaults() {
	if i.Description == "" {
		i.Description = DefaultDescription
	}
	if i.Quantity < 1 {
		i.Quantity = 1
	}
}
