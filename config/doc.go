// Package config builds the client configuration from layered sources.
//
// A Builder merges defaults, an optional YAML file, an optional .env
// file plus EUREKA_* environment variables, and explicit overrides, in
// that order. Validation runs exactly once, after every layer has
// merged, and Build fails synchronously on missing required fields.
//
//	cfg, err := config.NewBuilder().
//	    WithConfigFile("eureka.yml").
//	    WithOverride(func(c *config.Config) { c.Instance.Port = 8080 }).
//	    Build()
package config
