package erp

import "github.com/erp/acctsync/internal/domain/accounting"

// resolveByStrategy turns a configured strategy into a Resolution
func resolveByStrategy(strategy accounting.ConflictStrategy, conflict *accounting.DataConflict, manualNote string) *accounting.Resolution {
	switch strategy {
	case accounting.ConflictStrategyLocalWins:
		return &accounting.Resolution{
			Action:       accounting.ResolutionUseLocal,
			ResolvedData: conflict.LocalData,
			Notes:        "using local data (configured strategy local_wins)",
		}
	case accounting.ConflictStrategyExternalWins:
		return &accounting.Resolution{
			Action:       accounting.ResolutionUseExternal,
			ResolvedData: conflict.ExternalData,
			Notes:        "using external data (configured strategy external_wins)",
		}
	default:
		return &accounting.Resolution{
			Action: accounting.ResolutionManual,
			Notes:  manualNote,
		}
	}
}
