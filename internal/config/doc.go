// Package config loads the homepage CLI configuration from YAML.
//
// ${VAR} references are expanded from the environment before parsing, so
// credentials can live in .env. A missing file yields defaults with the
// memory backend. See configs/homepage.example.yaml.
package config
