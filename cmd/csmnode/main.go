package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/btcrollup/csmnode/config"
	"github.com/btcrollup/csmnode/csm"
	"github.com/btcrollup/csmnode/engine"
	"github.com/btcrollup/csmnode/node"
	"github.com/btcrollup/csmnode/storage"
	"github.com/btcrollup/csmnode/xlog"
)

var nodeLogger = xlog.NewModuleLogger(xlog.Node)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the embedded database",
	}
	dbTypeFlag = cli.StringFlag{
		Name:  "dbtype",
		Usage: "Database type to use: leveldb, badger, memory",
		Value: "leveldb",
	}
	rpcAddrFlag = cli.StringFlag{
		Name:  "rpcaddr",
		Usage: "Listen address for the JSON-RPC server",
		Value: "127.0.0.1:9650",
	}
	allowAdminFlag = cli.BoolFlag{
		Name:  "rpc.admin",
		Usage: "Enable the privileged admin_stop RPC method",
	}
	horizonFlag = cli.Uint64Flag{
		Name:  "horizon",
		Usage: "Pre-genesis L1 horizon height",
	}
	genesisFlag = cli.Uint64Flag{
		Name:  "genesis",
		Usage: "Genesis L1 height",
	}
	kafkaBrokersFlag = cli.StringFlag{
		Name:  "kafka.brokers",
		Usage: "Comma-separated Kafka broker addresses for the action bus (disabled if empty)",
	}
	kafkaTopicFlag = cli.StringFlag{
		Name:  "kafka.topic",
		Usage: "Kafka topic for the action bus",
		Value: "csmnode.actions",
	}
	mysqlDSNFlag = cli.StringFlag{
		Name:  "mysql.dsn",
		Usage: "MySQL DSN for the finalized-block read model (disabled if empty)",
	}
	redisAddrFlag = cli.StringFlag{
		Name:  "redis.addr",
		Usage: "Redis address for the L1Status cache (disabled if empty)",
	}

	app = cli.NewApp()
)

func init() {
	app.Name = "csmnode"
	app.Usage = "Bitcoin-anchored rollup consensus node"
	app.Flags = []cli.Flag{
		dataDirFlag, dbTypeFlag, rpcAddrFlag, allowAdminFlag, horizonFlag, genesisFlag,
		kafkaBrokersFlag, kafkaTopicFlag, mysqlDSNFlag, redisAddrFlag,
	}
	app.Action = run
}

func run(ctx *cli.Context) error {
	cfg := config.Default()
	if v := ctx.String(dataDirFlag.Name); v != "" {
		cfg.DataDir = v
	}
	cfg.RPCAddr = ctx.String(rpcAddrFlag.Name)
	cfg.AllowAdmin = ctx.Bool(allowAdminFlag.Name)
	if v := ctx.Uint64(horizonFlag.Name); v != 0 {
		cfg.HorizonL1Height = v
	}
	if v := ctx.Uint64(genesisFlag.Name); v != 0 {
		cfg.GenesisL1Height = v
	}
	if v := ctx.String(kafkaBrokersFlag.Name); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	cfg.KafkaTopic = ctx.String(kafkaTopicFlag.Name)
	cfg.MySQLDSN = ctx.String(mysqlDSNFlag.Name)
	cfg.RedisAddr = ctx.String(redisAddrFlag.Name)

	dbType := storage.LevelDB
	switch ctx.String(dbTypeFlag.Name) {
	case "badger":
		dbType = storage.BadgerDB
	case "memory":
		dbType = storage.MemoryDB
	}

	db, err := node.OpenDatabase(cfg, dbType)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	n, err := node.New(cfg, db, csm.ZeroBlockID, engine.NopEngine{}, nil, nil)
	if err != nil {
		return fmt.Errorf("constructing node: %w", err)
	}
	if err := n.Start(); err != nil {
		return fmt.Errorf("starting node: %w", err)
	}

	nodeLogger.Info("csmnode started", "rpc_addr", cfg.RPCAddr, "data_dir", cfg.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		nodeLogger.Crit("csmnode exited with error", "err", err)
		os.Exit(1)
	}
}
