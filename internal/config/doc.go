// Package config loads the clustering and over-cleaning filter parameter
// sets from JSON, YAML or TOML files. Fields are pointers so that a file
// only needs to name the keys it changes; the Get* methods supply the
// defaults for the rest.
package config
