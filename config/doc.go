// Package config defines the pipeline configuration: defaults, optional
// JSON file overrides, environment overrides, and validation.
//
// Precedence, lowest to highest: built-in defaults, the JSON config file,
// then the MLLP_ADDRESS and PAGER_ADDRESS environment variables the
// hospital deployment tooling sets. Command-line flags applied in cmd
// override everything.
package config
