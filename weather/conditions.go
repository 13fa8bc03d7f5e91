package weather

// Condition is a display category for a WMO weather interpretation code.
type Condition string

const (
	ConditionClearNight     Condition = "clear-night"
	ConditionSunny          Condition = "sunny"
	ConditionPartlyCloudy   Condition = "partlycloudy"
	ConditionCloudy         Condition = "cloudy"
	ConditionFog            Condition = "fog"
	ConditionRainy          Condition = "rainy"
	ConditionPouring        Condition = "pouring"
	ConditionLightningRainy Condition = "lightning-rainy"
	ConditionSnowy          Condition = "snowy"
	ConditionSnowyRainy     Condition = "snowy-rainy"
)

// wmoConditions maps WMO codes to display categories.
// Codes absent from the table have no category.
var wmoConditions = map[int]Condition{
	0:  ConditionClearNight,
	1:  ConditionSunny,
	2:  ConditionPartlyCloudy,
	3:  ConditionCloudy,
	45: ConditionFog,
	48: ConditionFog,
	51: ConditionRainy,
	53: ConditionRainy,
	55: ConditionRainy,
	61: ConditionRainy,
	63: ConditionRainy,
	65: ConditionRainy,
	71: ConditionSnowy,
	73: ConditionSnowy,
	75: ConditionSnowy,
	77: ConditionSnowy,
	80: ConditionRainy,
	81: ConditionPouring,
	82: ConditionPouring,
	85: ConditionSnowyRainy,
	86: ConditionSnowyRainy,
	95: ConditionLightningRainy,
	96: ConditionLightningRainy,
	99: ConditionLightningRainy,
}

// ConditionFor returns the display category for a WMO code.
func ConditionFor(code int) (Condition, bool) {
	c, ok := wmoConditions[code]
	return c, ok
}

// ConditionOf is ConditionFor for an optional code; it returns "" for nil or unmapped codes.
func ConditionOf(code *int) Condition {
	if code == nil {
		return ""
	}
	return wmoConditions[*code]
}

// ConditionTable returns a copy of the full code-to-category table.
func ConditionTable() map[int]Condition {
	cp := make(map[int]Condition, len(wmoConditions))
	for k, v := range wmoConditions {
		cp[k] = v
	}
	return cp
}
