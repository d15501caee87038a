package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"portal/internal/adapters/activities"
	"portal/internal/adapters/cli"
	"portal/internal/adapters/storage"
	"portal/internal/adapters/storage/localstore"
	"portal/internal/config"
)

func main() {
	cmd := flag.String("cmd", "activities", "Command: "+strings.Join(cli.Commands, "|"))
	email := flag.String("email", "", "Teacher email (login) or student email (signup/unregister)")
	password := flag.String("password", "", "Teacher password (login); read from stdin when empty")
	activityName := flag.String("activity", "", "Activity name (signup/unregister)")
	apiFlag := flag.String("api", "", "Override activities API base URL")
	dbFlag := flag.String("db", "", "Override local token store path")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	if *apiFlag != "" {
		cfg.APIURL = strings.TrimRight(*apiFlag, "/")
	}
	if *dbFlag != "" {
		cfg.LocalDBPath = *dbFlag
	}

	db, err := storage.Open(cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("failed to open local store: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		db.Close()
		log.Fatalf("failed to initialise local store: %v", err)
	}
	timedDB := storage.NewTimedDB(db, nil, "localstore")

	if *cmd == "login" && *password == "" {
		*password = readPassword()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	app := &cli.App{
		API:   activities.New(cfg.APIURL, cfg.APITimeout),
		Store: localstore.NewSQLiteStore(timedDB),
		Out:   os.Stdout,
		Err:   os.Stderr,
	}
	app.Restore(ctx)
	code := app.Run(ctx, *cmd, cli.Args{Email: *email, Password: *password, Activity: *activityName})

	stop()
	timedDB.Close()
	os.Exit(code)
}

// readPassword reads one line from stdin. Input is echoed.
func readPassword() string {
	fmt.Fprint(os.Stderr, "Password: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
