package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/scanflow/internal/kv"
	"github.com/go-redis/redis/v8"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const usage = `Usage: scanflow-track [flags] <command> [command flags]

Commands:
  template                       print the weekly workout template
  status   -day <day>            show which exercises of a workout are done
  log      -exercise <id> -sets <w>x<r>,...
                                 record the sets of an exercise
  toggle   -exercise <id>        flip an exercise's completion flag
  complete -day <day>            save the workout to history and reset it
  history                        list completed workouts, newest first
  chat     <message>             ask the coach (needs -server and -token)
  mcp                            serve the coaching MCP tools over stdio (needs -server and -token)

Flags:
`

func main() {
	storeKind := flag.String("store", "sqlite", "device store: sqlite or redis")
	dir := flag.String("dir", "", "state directory for the sqlite store (default ~/.scanflow)")
	redisAddr := flag.String("redis", "localhost:6379", "redis address for the redis store")
	redisPrefix := flag.String("redis-prefix", "scanflow:", "key prefix for the redis store")
	serverURL := flag.String("server", "", "scanflow server URL")
	token := flag.String("token", os.Getenv("SCANFLOW_TOKEN"), "bearer token (default $SCANFLOW_TOKEN)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println("scanflow-track", Version)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := context.Background()
	cmd, args := flag.Arg(0), flag.Args()[1:]

	// Remote commands do not touch the device store.
	switch cmd {
	case "chat", "mcp":
		if *serverURL == "" {
			log.Error("-server is required", "command", cmd)
			os.Exit(2)
		}
		if err := runRemote(ctx, cmd, args, *serverURL, *token, log); err != nil {
			log.Error(cmd+" failed", "error", err)
			os.Exit(1)
		}
		return
	}

	store, closeStore, err := openStore(*storeKind, *dir, *redisAddr, *redisPrefix)
	if err != nil {
		log.Error("failed to open device store", "store", *storeKind, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := runLocal(ctx, cmd, args, store, log); err != nil {
		log.Error(cmd+" failed", "error", err)
		closeStore()
		os.Exit(1)
	}
}

func openStore(kind, dir, redisAddr, redisPrefix string) (kv.Store, func(), error) {
	switch kind {
	case "sqlite":
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolving home directory: %w", err)
			}
			dir = filepath.Join(home, ".scanflow")
		}
		s, err := kv.OpenSQLite(dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		return kv.NewRedis(client, redisPrefix), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want sqlite or redis)", kind)
	}
}
