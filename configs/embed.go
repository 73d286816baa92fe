// Package configs embeds the default catalog and configuration templates.
//
// The templates are written by:
//   - `perfshop config init` to $XDG_CONFIG_HOME/perfshop/config.yaml
//   - `perfshop config init --project` to .perfshop.yaml
//
// Precedence is documented on config.Load.
package configs

import _ "embed"

// CatalogYAML is the storefront catalog used when no catalog.path is set.
//
//go:embed catalog.yaml
var CatalogYAML []byte

// UserConfigTemplate is the template for user-level configuration.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for per-directory configuration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
