// Command main inspects the live database schema: constraints, indexes and
// row counts for every application table. Useful when a migration misbehaves.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"docflow/internal/config"

	"github.com/jackc/pgx/v5"
)

var tables = []string{
	"users", "requests", "activities", "knowledge_base_items",
	"documents", "document_versions", "document_comments",
	"chat_messages", "integration_logs",
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	fmt.Println("Constraints (public schema):")
	rows, err := conn.Query(ctx, `
		SELECT r.relname, c.conname, pg_get_constraintdef(c.oid)
		FROM pg_constraint c
		JOIN pg_class r ON c.conrelid = r.oid
		JOIN pg_namespace n ON n.oid = r.relnamespace
		WHERE n.nspname = 'public'
		ORDER BY r.relname, c.conname`)
	if err != nil {
		log.Fatalf("Constraint query failed: %v", err)
	}
	for rows.Next() {
		var table, name, def string
		if err := rows.Scan(&table, &name, &def); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf(" - %s on %s: %s\n", name, table, def)
	}
	rows.Close()
	if rows.Err() != nil {
		log.Fatalf("Constraint query failed: %v", rows.Err())
	}

	fmt.Println("\nIndexes (public schema):")
	rows, err = conn.Query(ctx, `
		SELECT tablename, indexname, indexdef
		FROM pg_indexes
		WHERE schemaname = 'public'
		ORDER BY tablename, indexname`)
	if err != nil {
		log.Fatalf("Index query failed: %v", err)
	}
	for rows.Next() {
		var table, name, def string
		if err := rows.Scan(&table, &name, &def); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf(" - %s on %s: %s\n", name, table, def)
	}
	rows.Close()
	if rows.Err() != nil {
		log.Fatalf("Index query failed: %v", rows.Err())
	}

	fmt.Println("\nRow counts:")
	for _, table := range tables {
		var count int64
		err := conn.QueryRow(ctx,
			fmt.Sprintf("SELECT count(*) FROM %q", table)).Scan(&count)
		if err != nil {
			fmt.Printf(" - %s: missing (%v)\n", table, err)
			continue
		}
		fmt.Printf(" - %s: %d\n", table, count)
	}
}
