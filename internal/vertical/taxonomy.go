// Package vertical classifies hostnames into topical verticals and derives
// a tenant's initial configuration from the hostname alone.
package vertical

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/V4T54L/surveystack/internal/domain"
)

// FallbackKey is the key of the catch-all vertical in the default taxonomy.
const FallbackKey = "general"

// Taxonomy is an ordered, immutable set of vertical definitions.
// Declaration order is the classification tie-break order.
type Taxonomy struct {
	defs     []domain.VerticalDefinition
	byKey    map[string]int
	fallback int
}

// NewTaxonomy validates defs and returns a Taxonomy that owns a private copy of them.
// Exactly one definition must have an empty keyword set.
func NewTaxonomy(defs []domain.VerticalDefinition) (*Taxonomy, error) {
	t := &Taxonomy{
		defs:     make([]domain.VerticalDefinition, len(defs)),
		byKey:    make(map[string]int, len(defs)),
		fallback: -1,
	}
	for i, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("vertical at position %d has no key", i)
		}
		if _, dup := t.byKey[d.Key]; dup {
			return nil, fmt.Errorf("duplicate vertical key %q", d.Key)
		}
		for _, kw := range d.Keywords {
			if kw == "" || kw != strings.ToLower(kw) {
				return nil, fmt.Errorf("vertical %q: keyword %q must be non-empty lowercase", d.Key, kw)
			}
		}
		if d.IsFallback() {
			if t.fallback >= 0 {
				return nil, fmt.Errorf("vertical %q: more than one fallback vertical", d.Key)
			}
			t.fallback = i
		}
		d.Keywords = slices.Clone(d.Keywords)
		d.ImpactPrograms = slices.Clone(d.ImpactPrograms)
		d.SuggestedProducts = slices.Clone(d.SuggestedProducts)
		t.defs[i] = d
		t.byKey[d.Key] = i
	}
	if t.fallback < 0 {
		return nil, errors.New("taxonomy has no fallback vertical")
	}
	return t, nil
}

// Lookup returns the definition for key.
func (t *Taxonomy) Lookup(key string) (domain.VerticalDefinition, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return domain.VerticalDefinition{}, false
	}
	return t.defs[i], true
}

// Fallback returns the catch-all definition.
func (t *Taxonomy) Fallback() domain.VerticalDefinition {
	return t.defs[t.fallback]
}

// Keys returns vertical keys in declaration order.
func (t *Taxonomy) Keys() []string {
	keys := make([]string, len(t.defs))
	for i, d := range t.defs {
		keys[i] = d.Key
	}
	return keys
}

// DefaultTaxonomy returns the built-in taxonomy. It panics only if the
// built-in table itself is malformed.
func DefaultTaxonomy() *Taxonomy {
	t, err := NewTaxonomy(defaultVerticals)
	if err != nil {
		panic("vertical: invalid default taxonomy: " + err.Error())
	}
	return t
}

func allFeatures(store, impact bool) domain.FeatureFlags {
	return domain.FeatureFlags{
		Survey:     true,
		Blog:       true,
		Newsletter: true,
		Store:      store,
		Referrals:  true,
		Social:     true,
		Impact:     impact,
	}
}

// Order matters: the first vertical with a matching keyword wins.
var defaultVerticals = []domain.VerticalDefinition{
	{
		Key:               "travel",
		Keywords:          []string{"travel", "vacation", "trip", "tourism", "flight", "hotel", "cruise", "bali", "aspen", "hawaii", "europe", "baja", "austria", "brazil", "britain", "calgary", "boston", "atlanta", "berlin", "alaska", "alabama", "nyc", "la", "indy"},
		Theming:           domain.Theming{PrimaryColor: "#0ea5e9", AccentColor: "#f97316", Icon: "✈️"},
		TitleSuffix:       "Travel Survey",
		Description:       "Share your travel experiences and shape the future of exploration.",
		AIContext:         "travel, tourism, hospitality, destinations, adventure, booking",
		ImpactPrograms:    []string{"savingtheworld", "reefchallenge"},
		Features:          allFeatures(true, true),
		SuggestedProducts: []string{"Travel Guide eBook", "Insider Tips Newsletter", "Travel Planning Session"},
	},
	{
		Key:               "home",
		Keywords:          []string{"home", "house", "property", "real estate", "realty", "mortgage", "apartment", "rent", "lease", "condo", "land", "builder", "construction", "booth", "bed"},
		Theming:           domain.Theming{PrimaryColor: "#22c55e", AccentColor: "#a855f7", Icon: "🏠"},
		TitleSuffix:       "Home Survey",
		Description:       "Help us understand what matters most in your living space.",
		AIContext:         "home improvement, real estate, interior design, housing market, property",
		ImpactPrograms:    []string{"savingtheworld"},
		Features:          allFeatures(true, false),
		SuggestedProducts: []string{"Home Buying Guide", "Market Report", "Design Consultation"},
	},
	{
		Key:               "health",
		Keywords:          []string{"health", "medical", "wellness", "fitness", "nutrition", "diet", "anxiety", "addiction", "asthma", "body", "brain", "allergy", "dental", "doctor", "drug", "mental"},
		Theming:           domain.Theming{PrimaryColor: "#ef4444", AccentColor: "#10b981", Icon: "💚"},
		TitleSuffix:       "Health Survey",
		Description:       "Your health insights drive better wellness outcomes for everyone.",
		AIContext:         "health, wellness, medical, fitness, nutrition, mental health, preventive care",
		ImpactPrograms:    []string{"savingtheworld"},
		Features:          allFeatures(false, true),
		SuggestedProducts: []string{"Wellness Guide", "Nutrition Plan"},
	},
	{
		Key:               "food",
		Keywords:          []string{"food", "restaurant", "dining", "cafe", "bakery", "bagel", "breakfast", "beverage", "beer", "coffee", "cooking", "chef", "cuisine", "organic", "vegan", "veg", "pizza", "sushi"},
		Theming:           domain.Theming{PrimaryColor: "#f59e0b", AccentColor: "#ef4444", Icon: "🍽️"},
		TitleSuffix:       "Food Survey",
		Description:       "Share your culinary experiences and discover what others love.",
		AIContext:         "food, dining, restaurants, cooking, cuisine, culinary trends, food delivery",
		Features:          allFeatures(true, false),
		SuggestedProducts: []string{"Recipe Book", "Restaurant Guide", "Cooking Class Access"},
	},
	{
		Key:               "tech",
		Keywords:          []string{"tech", "code", "software", "app", "android", "bot", "byte", "binary", "cloud", "cyber", "data", "digital", "dev", "geek", "java", "crypto", "eth", "blockchain", "ai", "saas"},
		Theming:           domain.Theming{PrimaryColor: "#6366f1", AccentColor: "#ec4899", Icon: "💻"},
		TitleSuffix:       "Tech Survey",
		Description:       "Shape the future of technology with your insights.",
		AIContext:         "technology, software, programming, AI, cloud computing, innovation, startups",
		Features:          allFeatures(true, false),
		SuggestedProducts: []string{"Tech Report", "Developer Tools", "API Access"},
	},
	{
		Key:         "sports",
		Keywords:    []string{"sport", "baseball", "football", "basketball", "soccer", "golf", "tennis", "fitness", "gym", "race", "running", "swim", "surf", "ski"},
		Theming:     domain.Theming{PrimaryColor: "#22c55e", AccentColor: "#eab308", Icon: "⚽"},
		TitleSuffix: "Sports Poll",
		Description: "Your sports opinions matter — weigh in on what matters most.",
		AIContext:   "sports, athletics, teams, competitions, fitness, training, fan experience",
		Features:    allFeatures(true, false),
	},
	{
		Key:         "finance",
		Keywords:    []string{"finance", "money", "bank", "invest", "stock", "bond", "fund", "capital", "loan", "credit", "debt", "bankruptcy", "budget", "cash", "profit", "401k", "asset", "audit", "barter", "bid", "bill", "buy"},
		Theming:     domain.Theming{PrimaryColor: "#059669", AccentColor: "#14b8a6", Icon: "💰"},
		TitleSuffix: "Finance Survey",
		Description: "Share your financial perspectives and help build better tools.",
		AIContext:   "finance, investing, banking, personal finance, wealth management, fintech",
		Features:    allFeatures(true, false),
	},
	{
		Key:            "education",
		Keywords:       []string{"edu", "school", "college", "university", "campus", "academic", "academy", "learning", "student", "teacher", "course", "class", "study", "biology", "science", "sat"},
		Theming:        domain.Theming{PrimaryColor: "#8b5cf6", AccentColor: "#06b6d4", Icon: "📚"},
		TitleSuffix:    "Education Survey",
		Description:    "Help shape the future of learning and education.",
		AIContext:      "education, learning, schools, universities, online courses, student experience",
		ImpactPrograms: []string{"savingtheworld"},
		Features:       allFeatures(true, true),
	},
	{
		Key:            "environment",
		Keywords:       []string{"green", "climate", "eco", "environment", "solar", "energy", "ocean", "reef", "nature", "organic", "sustain", "earth", "agriculture", "agri", "garden", "farm"},
		Theming:        domain.Theming{PrimaryColor: "#16a34a", AccentColor: "#0ea5e9", Icon: "🌍"},
		TitleSuffix:    "Environment Survey",
		Description:    "Your voice matters in building a sustainable future.",
		AIContext:      "environment, sustainability, climate change, renewable energy, conservation, eco-friendly",
		ImpactPrograms: []string{"reefchallenge", "savingtheworld"},
		Features:       allFeatures(false, true),
	},
	{
		Key:         "business",
		Keywords:    []string{"business", "startup", "entrepreneur", "agency", "brand", "marketing", "affiliate", "consulting", "exec", "ceo", "manager", "office", "board", "partner", "deal"},
		Theming:     domain.Theming{PrimaryColor: "#1e40af", AccentColor: "#f59e0b", Icon: "📊"},
		TitleSuffix: "Business Survey",
		Description: "Business leaders share insights that drive industry forward.",
		AIContext:   "business strategy, entrepreneurship, management, marketing, B2B, operations",
		Features:    allFeatures(true, false),
	},
	{
		Key:         "entertainment",
		Keywords:    []string{"movie", "music", "film", "art", "band", "game", "gaming", "book", "podcast", "media", "celebrity", "fashion", "beauty", "bikini", "style", "culture", "fun"},
		Theming:     domain.Theming{PrimaryColor: "#ec4899", AccentColor: "#a855f7", Icon: "🎬"},
		TitleSuffix: "Entertainment Poll",
		Description: "Share your entertainment preferences and discover trending opinions.",
		AIContext:   "entertainment, movies, music, gaming, pop culture, streaming, content",
		Features:    allFeatures(true, false),
	},
	{
		Key:         "politics",
		Keywords:    []string{"politic", "vote", "election", "democrat", "republican", "congress", "senate", "governor", "national", "state", "policy", "law", "civic", "government"},
		Theming:     domain.Theming{PrimaryColor: "#1e3a5f", AccentColor: "#dc2626", Icon: "🗳️"},
		TitleSuffix: "Political Poll",
		Description: "Make your voice heard on the issues that matter.",
		AIContext:   "politics, public policy, elections, civic engagement, government, legislation",
		Features:    allFeatures(false, false),
	},
	{
		Key:         FallbackKey,
		Theming:     domain.Theming{PrimaryColor: "#e8603a", AccentColor: "#3a7ee8", Icon: "📋"},
		TitleSuffix: "Survey",
		Description: "Share your thoughts — it only takes 2 minutes.",
		AIContext:   "general knowledge, opinions, preferences, experiences",
		Features:    allFeatures(false, false),
	},
}
