package main

// General API documentation for swaggo. Regenerate docs/ with:
//
//	swag init -g cmd/ollamachat/docs.go -o docs
//
// @title           ollamachat API
// @version         1.0
// @description     Relays chat prompts to a local Ollama backend and streams the answer as NDJSON.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @host      localhost:8000
// @BasePath  /
//
// @schemes http
