package chat

// Keyword tables for classification and routing. Kept as data so they can
// be tuned and tested without touching the decision logic. Callers may
// override any table through the corresponding constructor option.

// Domain names used across classification, retrieval, and routing
const (
	DomainGeneralWellness = "general_wellness"
	DomainNutrition       = "nutrition"
	DomainMealPlanning    = "meal_planning"
	DomainHealthReports   = "health_reports"
	DomainFitness         = "fitness"
	DomainSupplements     = "supplements"
)

// outOfScopeKeywords short-circuit classification: any match means the
// query is outside the health/nutrition/fitness domain.
var outOfScopeKeywords = []string{
	"weather", "forecast", "temperature outside",
	"politics", "election", "president", "government",
	"movie", "film", "netflix", "music", "concert", "celebrity",
	"stock", "crypto", "bitcoin", "invest", "mortgage", "loan",
	"football", "basketball", "soccer match",
	"homework", "essay", "translate",
	"car", "flight", "hotel booking",
}

// domainKeywords scores a query against each known domain as
// matchedKeywords / totalKeywordsForDomain.
var domainKeywords = map[string][]string{
	DomainNutrition: {
		"calorie", "protein", "carb", "fat", "fiber", "sugar",
		"nutrition", "nutrient", "diet", "food", "eat", "macro",
	},
	DomainMealPlanning: {
		"meal plan", "meal prep", "recipe", "breakfast", "lunch",
		"dinner", "snack", "grocery", "portion", "weekly menu",
	},
	DomainHealthReports: {
		"blood test", "blood work", "lab result", "lab report",
		"biomarker", "cholesterol", "glucose", "hemoglobin",
		"vitamin d", "vitamin b12", "iron", "ferritin", "thyroid",
		"deficiency", "deficient",
	},
	DomainFitness: {
		"workout", "exercise", "gym", "cardio", "strength",
		"running", "yoga", "muscle", "training", "steps",
	},
	DomainSupplements: {
		"supplement", "multivitamin", "omega", "probiotic",
		"magnesium", "zinc", "creatine", "dosage",
	},
	DomainGeneralWellness: {
		"sleep", "stress", "energy", "fatigue", "hydration",
		"wellness", "healthy", "habit", "immune", "weight",
	},
}

// inScopeDomains is the allow-list of domains the pipeline answers
var inScopeDomains = map[string]bool{
	DomainGeneralWellness: true,
	DomainNutrition:       true,
	DomainMealPlanning:    true,
	DomainHealthReports:   true,
	DomainFitness:         true,
	DomainSupplements:     true,
}

// tierL1Keywords force the high-accuracy tier: health-critical
// interpretation must not go to the cost-optimized model.
var tierL1Keywords = []string{
	"blood test", "blood work", "lab result", "lab report",
	"biomarker", "deficiency", "deficient", "diagnosis",
	"condition", "symptom", "anemia", "diabetes", "thyroid",
	"cholesterol", "blood pressure", "medication",
}

// tierL2Keywords mark general-advice queries safe for the cheap tier
var tierL2Keywords = []string{
	"diet", "meal", "recipe", "snack", "breakfast", "lunch",
	"dinner", "tips", "suggest", "idea", "advice", "recommend",
}

// healthAdjacentDomains default to L1 when keywords leave the tier
// unresolved; safety beats cost for anything touching interpretation.
var healthAdjacentDomains = map[string]bool{
	DomainHealthReports: true,
	DomainSupplements:   true,
}

// domainGuidance feeds the system prompt per domain
var domainGuidance = map[string]string{
	DomainGeneralWellness: "Give practical, evidence-aligned wellness guidance.",
	DomainNutrition:       "Give specific nutritional guidance grounded in the user's profile.",
	DomainMealPlanning:    "Propose concrete meals honoring the user's restrictions and goals.",
	DomainHealthReports:   "Interpret health data conservatively; recommend professional follow-up for abnormal values.",
	DomainFitness:         "Give actionable fitness guidance matched to the user's level.",
	DomainSupplements:     "Discuss supplements conservatively; flag interactions and upper limits.",
}
