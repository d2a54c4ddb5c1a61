package config

import "go.uber.org/fx"

// Module provides the configuration parsed from the environment and flags.
var Module = fx.Provide(Load)
