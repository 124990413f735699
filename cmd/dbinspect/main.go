// Command dbinspect prints the live shape of the auth schema: tables,
// columns, primary keys and foreign keys, straight from
// information_schema. Useful when the database has drifted from the
// migrations in the tree.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vehiclemonitoring/authstore/internal/config"
)

func main() {
	log.SetFlags(0)
	table := flag.String("table", "", "Inspect a single table instead of the whole schema")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	schema := cfg.Database.Schema
	tables, err := listTables(ctx, db, schema)
	if err != nil {
		log.Fatalf("list tables: %v", err)
	}
	if len(tables) == 0 {
		log.Fatalf("schema %q has no tables, run migrate up", schema)
	}

	fmt.Printf("schema %s: %d tables\n", schema, len(tables))
	for _, name := range tables {
		if *table != "" && name != *table {
			continue
		}
		if err := describeTable(ctx, db, schema, name); err != nil {
			log.Fatalf("describe %s: %v", name, err)
		}
	}
}

func listTables(ctx context.Context, db *sql.DB, schema string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		select table_name
		from information_schema.tables
		where table_schema = $1 and table_type = 'BASE TABLE'
		order by table_name
	`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func describeTable(ctx context.Context, db *sql.DB, schema, table string) error {
	fmt.Printf("\n%s.%s\n", schema, table)

	rows, err := db.QueryContext(ctx, `
		select column_name, data_type, is_nullable, coalesce(column_default, '')
		from information_schema.columns
		where table_schema = $1 and table_name = $2
		order by ordinal_position
	`, schema, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name, dataType, nullable, def string
		if err := rows.Scan(&name, &dataType, &nullable, &def); err != nil {
			return err
		}
		line := fmt.Sprintf("  %-20s %-15s", name, dataType)
		if nullable == "NO" {
			line += " not null"
		}
		if def != "" {
			line += " default " + def
		}
		fmt.Println(line)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	pks, err := primaryKeys(ctx, db, schema, table)
	if err != nil {
		return err
	}
	if len(pks) > 0 {
		fmt.Printf("  primary key: %v\n", pks)
	}

	return foreignKeys(ctx, db, schema, table)
}

func primaryKeys(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		select kcu.column_name
		from information_schema.table_constraints tc
		join information_schema.key_column_usage kcu
		  on kcu.constraint_name = tc.constraint_name
		 and kcu.table_schema = tc.table_schema
		where tc.table_schema = $1 and tc.table_name = $2
		  and tc.constraint_type = 'PRIMARY KEY'
		order by kcu.ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func foreignKeys(ctx context.Context, db *sql.DB, schema, table string) error {
	rows, err := db.QueryContext(ctx, `
		select kcu.column_name, ccu.table_name, ccu.column_name
		from information_schema.table_constraints tc
		join information_schema.key_column_usage kcu
		  on kcu.constraint_name = tc.constraint_name
		 and kcu.table_schema = tc.table_schema
		join information_schema.constraint_column_usage ccu
		  on ccu.constraint_name = tc.constraint_name
		 and ccu.table_schema = tc.table_schema
		where tc.table_schema = $1 and tc.table_name = $2
		  and tc.constraint_type = 'FOREIGN KEY'
	`, schema, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var column, refTable, refColumn string
		if err := rows.Scan(&column, &refTable, &refColumn); err != nil {
			return err
		}
		fmt.Printf("  foreign key: %s -> %s(%s)\n", column, refTable, refColumn)
	}
	return rows.Err()
}
