package env

import "github.com/thatsimonsguy/heatpump-ir/internal/config"

// Cfg is the process-wide configuration. The pump state is deliberately not
// here: it is owned by a state.Manager and passed explicitly.
var Cfg *config.Config
