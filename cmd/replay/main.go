package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/replay"
)

// #region main
func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: replay <fixture.json>")
	}
	fixturePath := flag.Arg(0)

	cfg, err := config.Load(envOr("ENGINE_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	fixture, err := replay.LoadFixture(fixturePath)
	if err != nil {
		log.Fatalf("load fixture: %v", err)
	}
	if fixture.Description != "" {
		log.Printf("fixture: %s", fixture.Description)
	}

	result, err := replay.Replay(context.Background(), cfg, fixture)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}

	for _, c := range result.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("%s  %-16s %s\n", status, c.Name, c.Detail)
	}
	fmt.Printf("\n%d solutions, backend=%s\n", len(result.Response.Solutions), result.Response.Backend)

	if !result.Passed() {
		os.Exit(1)
	}
}

// #endregion main

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
