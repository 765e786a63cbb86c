package main

import (
	"go-sales-dashboard/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
