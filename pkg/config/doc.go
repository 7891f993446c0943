// Package config loads typed configuration structs from environment
// variables, with optional .env bootstrap for local development.
//
// Each config type is parsed once per process and cached, so components can
// call Load independently without duplicating environment parsing:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
package config
