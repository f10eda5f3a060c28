package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/usageledger/ledgerd/internal/api"
	"github.com/usageledger/ledgerd/internal/di"
	"github.com/usageledger/ledgerd/internal/genesis"
	"github.com/usageledger/ledgerd/internal/replay"
	"github.com/usageledger/ledgerd/internal/rpcapi"
	"github.com/usageledger/ledgerd/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ledgerd server",
	Long: `Start ledgerd's server: replay the log to tip (or bootstrap from
genesis if no log exists yet), then accept new transactions over HTTP and
gRPC and publish settlement lifecycle events over a websocket feed.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadedConfig

	store, err := storage.Open(context.Background(), cfg.Storage.Backend, cfg.Storage.Addr, cfg.Storage.SnapshotPath)
	if err != nil {
		log.Fatalf("ledgerd: open storage: %v", err)
	}
	if cfg.Storage.CompressionThresholdBytes > 0 {
		store.Log.EnableCompression(cfg.Storage.CompressionThresholdBytes)
	}

	minters := cfg.Minters
	if cfg.GenesisFile != "" {
		gcfg, err := genesis.LoadFile(cfg.GenesisFile)
		if err != nil {
			log.Fatalf("ledgerd: load genesis: %v", err)
		}
		minters = gcfg.Minters
		if !quiet {
			fmt.Printf("genesis: loaded from %s (%d minters)\n", cfg.GenesisFile, len(minters))
		}
	}

	replaySvc := replay.NewService(store)
	st, err := replaySvc.ToTip(context.Background(), minters)
	if err != nil {
		log.Fatalf("ledgerd: replay to tip: %v", err)
	}
	if !quiet {
		fmt.Printf("replay: tip at tx %d\n", st.NextTxID)
	}

	if cfg.ReplayOnly {
		if !quiet {
			fmt.Println("ledgerd: replay_only is set, node will not accept new transactions")
		}
		select {}
	}

	container := di.New()
	provider := di.NewProvider(container, cfg)
	provider.RegisterBuilt(store, replaySvc, st)

	node, err := provider.GetNode()
	if err != nil {
		log.Fatalf("ledgerd: wire node: %v", err)
	}
	hookPublisher, err := provider.GetPublisher()
	if err != nil {
		log.Fatalf("ledgerd: wire publisher: %v", err)
	}
	if !quiet {
		fmt.Printf("signing: registered %d operator key(s)\n", len(cfg.OperatorKeys))
	}

	now := func() int64 { return time.Now().Unix() }

	httpServer := api.NewServer(node, now)
	mux := http.NewServeMux()
	mux.Handle("/", httpServer)
	mux.Handle("/ws", hookPublisher)

	go func() {
		if !quiet {
			fmt.Printf("ledgerd: http listening on %s\n", cfg.Server.HTTPAddr)
		}
		if err := http.ListenAndServe(cfg.Server.HTTPAddr, mux); err != nil {
			log.Fatalf("ledgerd: http server failed: %v", err)
		}
	}()

	if cfg.Server.GRPCAddr != "" {
		adapter := rpcapi.NewNodeAdapter(node, now)
		grpcCfg := rpcapi.DefaultServerConfig()
		grpcCfg.Address = cfg.Server.GRPCAddr
		grpcServer := rpcapi.NewServer(grpcCfg, adapter)
		go func() {
			if !quiet {
				fmt.Printf("ledgerd: grpc listening on %s\n", cfg.Server.GRPCAddr)
			}
			if err := grpcServer.Start(); err != nil {
				log.Fatalf("ledgerd: grpc server failed: %v", err)
			}
		}()
	}

	snapshotTicker := time.NewTicker(1 * time.Minute)
	defer snapshotTicker.Stop()
	for range snapshotTicker.C {
		if err := node.Snapshot(); err != nil {
			log.Printf("ledgerd: periodic snapshot failed: %v", err)
		}
	}
}

