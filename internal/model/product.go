package model

// ProductResponse is the body of a product-by-barcode lookup.
// Status is 1 when the product exists and 0 otherwise.
type ProductResponse struct {
	Code          string   `json:"code"`
	Product       *Product `json:"product"`
	Status        int      `json:"status"`
	StatusVerbose string   `json:"status_verbose"`
}

// Found reports whether the response carries a product.
func (r *ProductResponse) Found() bool {
	return r != nil && r.Status != 0 && r.Product != nil
}

type Product struct {
	ProductName     *string     `json:"product_name"`
	NutritionGrades *string     `json:"nutrition_grades"`
	Nutriments      *Nutriments `json:"nutriments"`
}

// Name returns the product name or "Unknown".
func (p Product) Name() string {
	if p.ProductName == nil || *p.ProductName == "" {
		return "Unknown"
	}
	return *p.ProductName
}

// Grade returns the nutrition grade or "N/A".
func (p Product) Grade() string {
	if p.NutritionGrades == nil || *p.NutritionGrades == "" {
		return "N/A"
	}
	return *p.NutritionGrades
}

// Nutriments holds the nutrient values requested from the product database.
// Missing values are nil.
type Nutriments struct {
	Carbohydrates *float64 `json:"carbohydrates"`
	Sugars        *float64 `json:"sugars"`
	Energy        *float64 `json:"energy"`
}

type SearchResponse struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
	Page     int       `json:"page"`
}
