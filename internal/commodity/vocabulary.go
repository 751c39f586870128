package commodity

import "agrirank/internal/config"

// defaultVegetables maps Marathi market names to English canonical names.
// Fruits, flowers, grains and spices are deliberately absent.
var defaultVegetables = map[string]string{
	"कांदा":        "Onion",
	"बटाटा":        "Potato",
	"लसूण":         "Garlic",
	"आले":          "Ginger",
	"भेंडी":        "Okra",
	"गवार":         "Cluster Beans",
	"टोमॅटो":       "Tomato",
	"मटार":         "Green Peas",
	"घेवडा":        "French Beans",
	"दोडका":        "Ridge Gourd",
	"हि.मिरची":     "Green Chili",
	"दुधीभोपळा":    "Bottle Gourd",
	"काकडी":        "Cucumber",
	"कारली":        "Bitter Gourd",
	"गाजर":         "Carrot",
	"पापडी":        "Flat Beans",
	"पडवळ":         "Snake Gourd",
	"फ्लॉवर":       "Cauliflower",
	"कोबी":         "Cabbage",
	"वांगी":        "Brinjal",
	"ढोबळी":        "Capsicum",
	"सुरण":         "Yam",
	"तोंडली":       "Ivy Gourd",
	"बीट":          "Beetroot",
	"कोहळा":        "Ash Gourd",
	"पावटा":        "Broad Beans",
	"वाल":          "Field Beans",
	"वालवर":        "Lima Beans",
	"शेवगा":        "Drumstick",
	"ढेमसा":        "Spine Gourd",
	"नवलकोल":       "Kohlrabi",
	"चवळी":         "Cowpea",
	"रताळी":        "Sweet Potato",
	"परवल":         "Pointed Gourd",
	"घोसाळी":       "Sponge Gourd",
	"कडीपत्ता":     "Curry Leaves",
	"आरवी":         "Colocasia",
	"मुळा":         "Radish",
	"पालक":         "Spinach",
	"मेथी":         "Fenugreek",
	"कोथिंबीर":     "Coriander",
	"शेपू":         "Dill",
	"माठ":          "Amaranth",
	"पुदीना":       "Mint",
	"कांदापात":     "Spring Onion",
	"डांगर":        "Tendli",
	"चवळी पाला":    "Cowpea Leaves",
	"लाल मुळा":     "Red Radish",
	"चायना काकडी":  "Chinese Cucumber",
	"चायना काेबी":  "Chinese Cabbage",
	"लाल काेबी":    "Red Cabbage",
	"बेबी काॅर्न":  "Baby Corn",
	"ब्रोकाेली":    "Broccoli",
	"शतावरी":       "Asparagus",
	"मशरुम":        "Mushroom",
	"डिंग्री":      "Oyster Mushroom",
}

// DefaultVocabulary returns the built-in vegetable vocabulary.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(defaultVegetables)
}

// VocabularyFromConfig returns the configured vocabulary, falling back to
// the built-in one when the config carries no entries.
func VocabularyFromConfig(cfg config.AnalysisConfig) *Vocabulary {
	if len(cfg.Vocabulary) > 0 {
		return NewVocabulary(cfg.Vocabulary)
	}
	return DefaultVocabulary()
}
