package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"livepoll/pkg/database"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|reset|status]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "up":
		if _, err := conn.Exec(ctx, database.PostgresSchema); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ kv_store table created")

	case "drop":
		if _, err := conn.Exec(ctx, `DROP TABLE IF EXISTS kv_store`); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ kv_store table dropped")

	case "reset":
		if _, err := conn.Exec(ctx, `DELETE FROM kv_store`); err != nil {
			log.Fatalf("Failed to reset state: %v", err)
		}
		fmt.Println("✅ Stored polls, sessions and admin data removed")

	case "status":
		if err := printStatus(ctx, conn); err != nil {
			log.Fatalf("Failed to read status: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context, conn *pgx.Conn) error {
	rows, err := conn.Query(ctx, `SELECT key, length(value), updated_at FROM kv_store ORDER BY key`)
	if err != nil {
		return fmt.Errorf("failed to query kv_store: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			key       string
			size      int
			updatedAt time.Time
		)
		if err := rows.Scan(&key, &size, &updatedAt); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		fmt.Printf("  %-24s %8d bytes  updated %s\n", key, size, updatedAt.Format(time.RFC3339))
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Printf("%d records\n", count)
	return nil
}
