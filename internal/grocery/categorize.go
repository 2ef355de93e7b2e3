package grocery

import "strings"

const (
	CategoryAll        = "All"
	CategoryFruits     = "Fruits"
	CategoryVegetables = "Vegetables"
	CategoryDairy      = "Dairy"
	CategorySnacks     = "Snacks"
	CategoryBeverages  = "Beverages"
	CategoryOther      = "Other"
)

// Categories lists the filter choices in display order. CategoryAll disables
// filtering.
var Categories = []string{
	CategoryAll,
	CategoryFruits,
	CategoryVegetables,
	CategoryDairy,
	CategorySnacks,
	CategoryBeverages,
	CategoryOther,
}

// Categorize returns the grocery category for the given item name.
// It performs case-insensitive matching: exact match first, then substring match.
// Falls back to "Other" if no match is found.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return CategoryOther
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return CategoryOther
}

var exactMatch = map[string]string{
	// Fruits
	"apple":        CategoryFruits,
	"apples":       CategoryFruits,
	"banana":       CategoryFruits,
	"bananas":      CategoryFruits,
	"orange":       CategoryFruits,
	"oranges":      CategoryFruits,
	"lemon":        CategoryFruits,
	"lemons":       CategoryFruits,
	"lime":         CategoryFruits,
	"limes":        CategoryFruits,
	"grapes":       CategoryFruits,
	"pear":         CategoryFruits,
	"pears":        CategoryFruits,
	"peach":        CategoryFruits,
	"peaches":      CategoryFruits,
	"mango":        CategoryFruits,
	"mangoes":      CategoryFruits,
	"pineapple":    CategoryFruits,
	"watermelon":   CategoryFruits,
	"strawberries": CategoryFruits,
	"blueberries":  CategoryFruits,
	"raspberries":  CategoryFruits,
	"kiwi":         CategoryFruits,
	"avocado":      CategoryFruits,
	"avocados":     CategoryFruits,

	// Vegetables
	"tomato":    CategoryVegetables,
	"tomatoes":  CategoryVegetables,
	"potato":    CategoryVegetables,
	"potatoes":  CategoryVegetables,
	"onion":     CategoryVegetables,
	"onions":    CategoryVegetables,
	"garlic":    CategoryVegetables,
	"lettuce":   CategoryVegetables,
	"spinach":   CategoryVegetables,
	"kale":      CategoryVegetables,
	"broccoli":  CategoryVegetables,
	"carrot":    CategoryVegetables,
	"carrots":   CategoryVegetables,
	"celery":    CategoryVegetables,
	"cucumber":  CategoryVegetables,
	"cucumbers": CategoryVegetables,
	"peppers":   CategoryVegetables,
	"mushrooms": CategoryVegetables,
	"corn":      CategoryVegetables,
	"zucchini":  CategoryVegetables,
	"cabbage":   CategoryVegetables,
	"peas":      CategoryVegetables,

	// Dairy
	"milk":       CategoryDairy,
	"butter":     CategoryDairy,
	"cheese":     CategoryDairy,
	"yogurt":     CategoryDairy,
	"yoghurt":    CategoryDairy,
	"cream":      CategoryDairy,
	"eggs":       CategoryDairy,
	"kefir":      CategoryDairy,
	"mozzarella": CategoryDairy,
	"cheddar":    CategoryDairy,

	// Snacks
	"chips":     CategorySnacks,
	"crackers":  CategorySnacks,
	"cookies":   CategorySnacks,
	"popcorn":   CategorySnacks,
	"pretzels":  CategorySnacks,
	"nuts":      CategorySnacks,
	"chocolate": CategorySnacks,
	"candy":     CategorySnacks,
	"granola":   CategorySnacks,

	// Beverages
	"water":    CategoryBeverages,
	"juice":    CategoryBeverages,
	"soda":     CategoryBeverages,
	"coffee":   CategoryBeverages,
	"tea":      CategoryBeverages,
	"beer":     CategoryBeverages,
	"wine":     CategoryBeverages,
	"lemonade": CategoryBeverages,
	"kombucha": CategoryBeverages,
}

type substringEntry struct {
	keyword  string
	category string
}

// Ordered with longer/more-specific keywords first for deterministic priority.
var substringMatches = []substringEntry{
	{"chocolate milk", CategoryBeverages},
	{"almond milk", CategoryBeverages},
	{"oat milk", CategoryBeverages},
	{"soy milk", CategoryBeverages},
	{"sparkling water", CategoryBeverages},
	{"orange juice", CategoryBeverages},
	{"apple juice", CategoryBeverages},
	{"iced tea", CategoryBeverages},
	{"energy drink", CategoryBeverages},

	{"cream cheese", CategoryDairy},
	{"sour cream", CategoryDairy},
	{"cottage cheese", CategoryDairy},
	{"greek yogurt", CategoryDairy},

	{"sweet potato", CategoryVegetables},
	{"bell pepper", CategoryVegetables},
	{"green beans", CategoryVegetables},

	{"trail mix", CategorySnacks},
	{"granola bar", CategorySnacks},
	{"protein bar", CategorySnacks},
	{"rice cakes", CategorySnacks},

	{"berries", CategoryFruits},
	{"berry", CategoryFruits},
	{"apple", CategoryFruits},
	{"banana", CategoryFruits},
	{"grape", CategoryFruits},
	{"melon", CategoryFruits},
	{"citrus", CategoryFruits},

	{"lettuce", CategoryVegetables},
	{"spinach", CategoryVegetables},
	{"tomato", CategoryVegetables},
	{"potato", CategoryVegetables},
	{"onion", CategoryVegetables},
	{"carrot", CategoryVegetables},
	{"broccoli", CategoryVegetables},
	{"salad", CategoryVegetables},

	{"yogurt", CategoryDairy},
	{"cheese", CategoryDairy},
	{"milk", CategoryDairy},
	{"butter", CategoryDairy},

	{"chips", CategorySnacks},
	{"cookie", CategorySnacks},
	{"cracker", CategorySnacks},
	{"chocolate", CategorySnacks},
	{"candy", CategorySnacks},

	{"juice", CategoryBeverages},
	{"soda", CategoryBeverages},
	{"coffee", CategoryBeverages},
	{"water", CategoryBeverages},
	{"tea", CategoryBeverages},
}
