package main

import (
	"log"

	"github.com/flawiddsouza/GameLiftLocal/internal/platform"
)

func main() {
	if err := platform.RunCoordinator(); err != nil {
		log.Fatalf("coordinator failed: %v", err)
	}
}
