package main

import (
	"github.com/icnasac/icna-events/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	cli.Execute()
}
