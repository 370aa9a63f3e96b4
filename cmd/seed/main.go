// Command main runs the database seeder for DocFlow.
package main

import (
	"flag"
	"log"

	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/seed"
)

func main() {
	rosterPath := flag.String("roster", "", "YAML roster file replacing the default accounts")
	extraUsers := flag.Int("users", 20, "Number of random requester accounts to create")
	numRequests := flag.Int("requests", 80, "Number of workflow requests to create")
	deterministic := flag.Bool("deterministic", false, "Use a fixed random seed")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: %d extra users, %d requests\n", *extraUsers, *numRequests)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, seed.Options{
		RosterPath:    *rosterPath,
		ExtraUsers:    *extraUsers,
		Requests:      *numRequests,
		Deterministic: *deterministic,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
