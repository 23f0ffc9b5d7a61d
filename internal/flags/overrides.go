package flags

// ApplyOverrides applies the global safety overrides as the final pass of
// the resolution pipeline. It is a pure transform of the merged flag set
// and cannot be overridden by any earlier tier.
//
// Emergency rollback is checked first and short-circuits: every flag is
// forced off except emergencyRollback itself and maintenanceMode, which
// keep whatever values they already had. Maintenance mode is only
// evaluated when emergency rollback is off, and additionally leaves
// useSharedAuth untouched so operators can still sign in during planned
// downtime.
//
// The transform is idempotent.
func ApplyOverrides(fs FlagSet) FlagSet {
	out := fs.Clone()
	switch {
	case fs[KeyEmergencyRollback]:
		for k := range out {
			if k == KeyEmergencyRollback || k == KeyMaintenanceMode {
				continue
			}
			out[k] = false
		}
	case fs[KeyMaintenanceMode]:
		for k := range out {
			if k == KeyUseSharedAuth || k == KeyEmergencyRollback || k == KeyMaintenanceMode {
				continue
			}
			out[k] = false
		}
	}
	return out
}
