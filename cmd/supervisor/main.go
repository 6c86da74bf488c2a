package main

import (
	"flag"
	"log"

	"github.com/flawiddsouza/GameLiftLocal/internal/platform"
)

func main() {
	configPath := flag.String("config", "process-manager.json", "path to the process manager config")
	flag.Parse()

	if err := platform.RunSupervisor(*configPath); err != nil {
		log.Fatalf("supervisor failed: %v", err)
	}
}
