package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/maowise/go-engine/internal/config"
	"github.com/maowise/go-engine/internal/engine"
	"github.com/maowise/go-engine/internal/evidence"
	"github.com/maowise/go-engine/internal/oracle"
	"github.com/maowise/go-engine/internal/runlog"
)

// #region main
func main() {
	var (
		reqPath = flag.String("f", "-", "request JSON file, '-' for stdin")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall request timeout")
	)
	flag.Parse()

	cfgPath := envOr("ENGINE_CONFIG", "config.yaml")
	oracleAddr := envOr("ORACLE_ADDR", "http://localhost:8000")
	kbAddr := envOr("KB_ADDR", "http://localhost:8000")
	dbPath := envOr("ENGINE_DB", "maowise_runs.db")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	req, err := readRequest(*reqPath)
	if err != nil {
		log.Fatalf("read request: %v", err)
	}

	eng, err := engine.New(cfg, oracle.NewClient(oracleAddr), evidence.NewClient(kbAddr))
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	log.Printf("engine ready (backend=%s, oracle=%s)", eng.Backend(), oracleAddr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := eng.Recommend(ctx, req)
	if err != nil {
		log.Fatalf("recommend: %v", err)
	}

	if dbPath != "" {
		store, err := runlog.NewStore(dbPath)
		if err != nil {
			log.Printf("runlog unavailable: %v", err)
		} else {
			defer store.Close()
			runID, err := store.LogRun(req, resp)
			if err != nil {
				log.Printf("log run: %v", err)
			} else {
				log.Printf("run logged: %s", runID)
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("encode response: %v", err)
	}
}

// #endregion main

// #region helpers

func readRequest(path string) (engine.Request, error) {
	var req engine.Request
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return engine.Request{}, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return engine.Request{}, err
	}
	return req, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
