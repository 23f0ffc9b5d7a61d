package flags

// RiskLevel is declared, informational risk for a migratable UI region.
type RiskLevel string

// Risk levels.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ComponentConfig describes one migratable UI region: the flag that gates
// it, its declared risk, the flags that must already be enabled before it
// is cut over, and the expected time to roll it back. Risk and rollback
// time are documentation only; nothing enforces them.
type ComponentConfig struct {
	Name          string    `json:"name"`
	Flag          Key       `json:"flag"`
	Risk          RiskLevel `json:"risk"`
	Prerequisites []Key     `json:"prerequisites,omitempty"`
	RollbackTime  string    `json:"rollbackTime"`
}

var components = []ComponentConfig{
	{
		Name:         "theme",
		Flag:         KeyUseSharedTheme,
		Risk:         RiskLow,
		RollbackTime: "immediate",
	},
	{
		Name:          "auth",
		Flag:          KeyUseSharedAuth,
		Risk:          RiskMedium,
		Prerequisites: []Key{KeyUseSharedTheme},
		RollbackTime:  "under 5 minutes",
	},
	{
		Name:          "layout",
		Flag:          KeyUseSharedLayout,
		Risk:          RiskLow,
		Prerequisites: []Key{KeyUseSharedTheme},
		RollbackTime:  "immediate",
	},
	{
		Name:          "dashboard",
		Flag:          KeyUseSharedDashboard,
		Risk:          RiskHigh,
		Prerequisites: []Key{KeyUseSharedAuth, KeyUseSharedLayout},
		RollbackTime:  "under 15 minutes",
	},
	{
		Name:          "monitoring",
		Flag:          KeyUseSharedMonitoring,
		Risk:          RiskMedium,
		Prerequisites: []Key{KeyUseSharedLayout},
		RollbackTime:  "under 15 minutes",
	},
	{
		Name:          "quantumagi",
		Flag:          KeyUseSharedQuantumagi,
		Risk:          RiskCritical,
		Prerequisites: []Key{KeyUseSharedAuth, KeyUseSharedDashboard},
		RollbackTime:  "under 30 minutes",
	},
}

// Components returns the migration metadata for every migratable region.
func Components() []ComponentConfig {
	out := make([]ComponentConfig, len(components))
	copy(out, components)
	return out
}
