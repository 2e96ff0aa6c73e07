package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tecnipro/cobranzas/internal/infrastructure/config"
	"github.com/tecnipro/cobranzas/internal/infrastructure/logger"
	"github.com/tecnipro/cobranzas/internal/infrastructure/migration"
)

func main() {
	var (
		path     = flag.String("path", "migrations", "migrations directory")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	command := args[0]

	// create and list work on the filesystem alone
	switch command {
	case "create":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: migrate create <name>")
			os.Exit(1)
		}
		p, err := migration.Create(*path, args[1])
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		fmt.Printf("Created %s\n", p.UpPath)
		fmt.Printf("Created %s\n", p.DownPath)
		return
	case "list":
		names, err := migration.List(*path)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(names) == 0 {
			fmt.Println("No migrations found")
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("SQL migrations require the postgres driver",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := migration.New(db, *path, log)
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	defer migrator.Close()

	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "step":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: migrate step <n>")
			os.Exit(1)
		}
		var n int
		n, err = strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Step count must be an integer", zap.String("arg", args[1]))
		}
		err = migrator.Steps(n)
	case "goto":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: migrate goto <version>")
			os.Exit(1)
		}
		var v uint64
		v, err = strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatal("Version must be a non-negative integer", zap.String("arg", args[1]))
		}
		err = migrator.GoTo(uint(v))
	case "version":
		version, dirty, verr := migrator.Version()
		if verr != nil {
			log.Fatal("Failed to read version", zap.Error(verr))
		}
		fmt.Printf("version: %d dirty: %v\n", version, dirty)
	case "force":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: migrate force <version>")
			os.Exit(1)
		}
		var v int
		v, err = strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Version must be an integer", zap.String("arg", args[1]))
		}
		err = migrator.Force(v)
	case "drop":
		if len(args) < 2 || args[1] != "-confirm" {
			fmt.Fprintln(os.Stderr, "drop destroys all data; run: migrate drop -confirm")
			os.Exit(1)
		}
		err = migrator.Drop()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: migrate [flags] <command> [args]

Commands:
  create <name>    create an empty up/down migration pair
  list             list migrations in the migrations directory
  up               apply all pending migrations
  down             roll back all migrations
  step <n>         apply n migrations (negative rolls back)
  goto <version>   migrate to a specific version
  version          print the current schema version
  force <version>  overwrite the recorded version (dirty recovery)
  drop -confirm    drop every object in the database

Flags:
`)
	flag.PrintDefaults()
}
