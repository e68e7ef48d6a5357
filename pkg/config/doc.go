// Package config loads typed configuration structs from environment
// variables using `caarlos0/env` struct tags, with optional .env file
// support via godotenv.
//
// Parsed configurations are cached per type so that independent components
// can load the same config without re-reading the environment.
package config
