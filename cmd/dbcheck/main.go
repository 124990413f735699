// Command dbcheck probes PostgreSQL connectivity for the auth database,
// step by step, so a misconfigured environment can be narrowed down
// without reading driver stack traces. Every check reports and moves on;
// the command never aborts on a failed check.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/time/rate"

	"github.com/vehiclemonitoring/authstore/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		return
	}
	db := cfg.Database

	fmt.Println("=== auth database connection diagnostic ===")
	fmt.Printf("target: host=%s port=%s dbname=%s user=%s sslmode=%s\n\n",
		db.Host, db.Port, db.Name, db.User, db.SSLMode)

	checkDriver()
	checkBasicConnect(db)
	checkConnectWithOptions(db)
	checkDatabaseExists(db)
	checkSchemaExists(db)
	checkPool(db)

	fmt.Println("\n=== diagnostic complete ===")
}

func fail(step int, name string, err error) {
	fmt.Printf("[%d] %s: FAILED: %v\n", step, name, err)
}

func ok(step int, name, detail string) {
	if detail != "" {
		fmt.Printf("[%d] %s: ok (%s)\n", step, name, detail)
		return
	}
	fmt.Printf("[%d] %s: ok\n", step, name)
}

// Check 1: the pgx stdlib driver must be registered.
func checkDriver() {
	if !slices.Contains(sql.Drivers(), "pgx") {
		fail(1, "driver registration", fmt.Errorf("pgx not among registered drivers %v", sql.Drivers()))
		return
	}
	ok(1, "driver registration", "pgx")
}

// Check 2: plain connect plus a round trip reporting server identity.
func checkBasicConnect(db config.DatabaseConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", db.DSN())
	if err != nil {
		fail(2, "basic connection", err)
		return
	}
	defer conn.Close()

	var version, database, user string
	err = conn.QueryRowContext(ctx,
		`select version(), current_database(), current_user`).Scan(&version, &database, &user)
	if err != nil {
		fail(2, "basic connection", err)
		return
	}
	ok(2, "basic connection", fmt.Sprintf("database=%s user=%s", database, user))
	fmt.Printf("    server: %s\n", version)
}

// Check 3: connect with an application name and explicit connect timeout,
// the way the service binaries do.
func checkConnectWithOptions(db config.DatabaseConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dsn := db.DSN() + " application_name=authstore-dbcheck connect_timeout=5"
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		fail(3, "connection with options", err)
		return
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		fail(3, "connection with options", err)
		return
	}
	ok(3, "connection with options", "application_name and connect_timeout accepted")
}

// Check 4: the application database must exist. The maintenance database
// answers even when it does not, and lists what is there instead.
func checkDatabaseExists(db config.DatabaseConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", db.MaintenanceDSN())
	if err != nil {
		fail(4, "database existence", err)
		return
	}
	defer conn.Close()

	var exists bool
	err = conn.QueryRowContext(ctx,
		`select exists (select 1 from pg_database where datname = $1)`, db.Name).Scan(&exists)
	if err != nil {
		fail(4, "database existence", err)
		return
	}
	if !exists {
		fail(4, "database existence", fmt.Errorf("database %q not found", db.Name))
		rows, err := conn.QueryContext(ctx,
			`select datname from pg_database where not datistemplate order by datname`)
		if err != nil {
			return
		}
		defer rows.Close()
		fmt.Println("    available databases:")
		for rows.Next() {
			var name string
			if rows.Scan(&name) == nil {
				fmt.Printf("      - %s\n", name)
			}
		}
		return
	}
	ok(4, "database existence", db.Name)
}

// Check 5: the auth schema must exist inside the application database.
func checkSchemaExists(db config.DatabaseConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", db.DSN())
	if err != nil {
		fail(5, "schema existence", err)
		return
	}
	defer conn.Close()

	var exists bool
	err = conn.QueryRowContext(ctx,
		`select exists (select 1 from information_schema.schemata where schema_name = $1)`,
		db.Schema).Scan(&exists)
	if err != nil {
		fail(5, "schema existence", err)
		return
	}
	if !exists {
		fail(5, "schema existence", fmt.Errorf("schema %q not found, run migrate up", db.Schema))
		return
	}
	ok(5, "schema existence", db.Schema)
}

// Check 6: a small pool under concurrent load. Queries are paced so the
// burst exercises connection reuse rather than hammering the server.
func checkPool(db config.DatabaseConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", db.DSN())
	if err != nil {
		fail(6, "pool simulation", err)
		return
	}
	defer conn.Close()
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)

	const workers = 10
	limiter := rate.NewLimiter(rate.Limit(20), 5)
	began := time.Now()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			var one int
			if err := conn.QueryRowContext(ctx, `select 1`).Scan(&one); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("worker %d: %w", n, err))
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(failures) > 0 {
		fail(6, "pool simulation", failures[0])
		for _, err := range failures[1:] {
			fmt.Printf("    also: %v\n", err)
		}
		return
	}
	stats := conn.Stats()
	ok(6, "pool simulation", fmt.Sprintf("%d workers over %d max conns in %s, open=%d",
		workers, 5, time.Since(began).Round(time.Millisecond), stats.OpenConnections))
}
