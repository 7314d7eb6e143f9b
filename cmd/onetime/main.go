package main

import (
	"log"

	"github.com/tech-arch1tect/onetime"
)

func main() {
	app, err := onetime.New(
		onetime.WithTokens(),
		onetime.WithMetrics(),
	)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	app.Run()
}
