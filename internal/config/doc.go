// Package config loads the settings of the license tools.
//
// Values come from three sources, highest precedence first:
//
//	1. Environment variables prefixed with LICGEN_ (LICGEN_SERVER_PORT=8080)
//	2. A YAML file (config.yaml, configs/config.yaml or an explicit path)
//	3. Defaults
//
// The embedded keys of the license format are not configuration: they are
// constants of the format and live in the security package.
package config
