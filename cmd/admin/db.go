package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"blackflag.space/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	base := fs.String("base", "", "pirate base filter (raids)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	if err := runQuery(context.Background(), idx, q, *base, *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-base NAME] snapshots|raids|counts|last")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, idx *indexdb.Index, q, base string, limit int) error {
	switch q {
	case "snapshots":
		rows, err := idx.Snapshots(ctx, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "raids":
		rows, err := idx.RecentRaids(ctx, base, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "counts":
		counts, err := idx.EventCounts(ctx)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		printJSON(counts)
	case "last":
		tick, digest, ok, err := idx.LastTick(ctx)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		printJSON(map[string]any{"tick": tick, "digest": digest, "indexed": ok})
	default:
		return fmt.Errorf("unknown query: %s", q)
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
