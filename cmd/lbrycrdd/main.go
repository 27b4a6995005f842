package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nondejus/lbrycrd/config"
	"github.com/nondejus/lbrycrd/core/chain"
	"github.com/nondejus/lbrycrd/core/claimtrie"
	"github.com/nondejus/lbrycrd/core/query"
	"github.com/nondejus/lbrycrd/observability/logging"
	"github.com/nondejus/lbrycrd/rpc"
	"github.com/nondejus/lbrycrd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LBRYCRD_ENV"))
	logger := logging.Setup("lbrycrd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if cfg.Env != "" && env == "" {
		logger = logging.Setup("lbrycrd", cfg.Env)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open registry database: %v", err))
	}
	defer db.Close()

	blocks, err := chain.OpenStore(cfg.BlockStorePath)
	if err != nil {
		logger.Error("Failed to open block store", slog.Any("error", err))
		os.Exit(1)
	}
	defer blocks.Close()

	index, err := blocks.LoadIndex()
	if err != nil {
		logger.Error("Failed to load chain index", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("chain index loaded", slog.Int64("tip_height", index.Height()))

	registry, err := claimtrie.New(db)
	if err != nil {
		logger.Error("Failed to open claim registry", slog.Any("error", err))
		os.Exit(1)
	}

	engine := query.NewEngine(new(chain.StateMu), index, blocks, registry, cfg.CoinCacheBudget, logger)
	server := rpc.NewServer(engine, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
