// Package node wires the CSM, writer pipeline, and their ambient surfaces
// (RPC, storage, logging) into one running process, adapted from the
// teacher's node/service.go ServiceContext.OpenDatabase switch-on-DBType
// pattern.
package node

import (
	"github.com/pkg/errors"

	"github.com/btcrollup/csmnode/config"
	"github.com/btcrollup/csmnode/csm"
	"github.com/btcrollup/csmnode/engine"
	"github.com/btcrollup/csmnode/eventbus"
	"github.com/btcrollup/csmnode/l1"
	"github.com/btcrollup/csmnode/networks/rpc"
	"github.com/btcrollup/csmnode/readmodel"
	"github.com/btcrollup/csmnode/statuscache"
	"github.com/btcrollup/csmnode/storage"
	"github.com/btcrollup/csmnode/writer"
	"github.com/btcrollup/csmnode/xlog"
)

var nodeLogger = xlog.NewModuleLogger(xlog.Node)

// OpenDatabase opens (or creates) the node's embedded key-value store
// according to cfg, the direct analogue of the teacher's
// ServiceContext.OpenDatabase switch on DBType — extended here with the
// memory backend for ephemeral/test nodes where the teacher used a
// separate empty-DataDir branch.
func OpenDatabase(cfg config.Config, dbType storage.DBType) (storage.Database, error) {
	if cfg.DataDir == "" {
		return storage.NewMemoryDatabase(), nil
	}

	switch dbType {
	case storage.LevelDB:
		return storage.NewLevelDBDatabase(cfg.DataDir, 256, 256)
	case storage.BadgerDB:
		return storage.NewBadgerDB(cfg.DataDir)
	case storage.MemoryDB:
		return storage.NewMemoryDatabase(), nil
	default:
		return nil, errors.New("node: unrecognized database type")
	}
}

// Node owns every long-lived component: the database, the CSM (journal,
// state store, fork tree, worker, submission shim), the writer pipeline,
// and the RPC server.
type Node struct {
	cfg config.Config
	db  storage.Database

	Journal    *csm.Journal
	StateStore *csm.StateStore
	Tree       *csm.Tree
	View       *csm.StoreView
	Worker     *csm.Worker
	Shim       *csm.SubmitShim

	Pipeline *writer.Pipeline

	rpcServer *rpc.Server

	publisher   *eventbus.Publisher
	readModel   *readmodel.Mirror
	statusCache *statuscache.Cache
}

// New constructs every component against db but starts nothing; callers
// call Start once all external collaborators (engine, L1 reader,
// broadcaster) are wired in. The Kafka action bus, MySQL read model, and
// Redis status cache are each constructed only when their corresponding
// cfg field is set, and wired into the worker/pipeline when present.
func New(cfg config.Config, db storage.Database, genesisRoot csm.BlockID, eng engine.Engine,
	broadcaster l1.Broadcaster, signer l1.Signer) (*Node, error) {

	journal := csm.NewJournal(db)
	store := csm.NewStateStore(db)
	tree := csm.NewTree(genesisRoot)
	view := csm.NewStoreView(db)

	params := csm.Params{
		FinalityDepth:    cfg.FinalityDepth,
		L1FollowDistance: cfg.L1FollowDistance,
		HorizonL1Height:  cfg.HorizonL1Height,
		GenesisL1Height:  cfg.GenesisL1Height,
	}
	worker := csm.NewWorker(journal, store, tree, view, eng, params)

	pool := storage.NewPool(4)
	shim := csm.NewSubmitShim(journal, worker, pool)

	pipeline := writer.NewPipeline(db, broadcaster, signer, cfg.PollInterval())

	n := &Node{
		cfg:        cfg,
		db:         db,
		Journal:    journal,
		StateStore: store,
		Tree:       tree,
		View:       view,
		Worker:     worker,
		Shim:       shim,
		Pipeline:   pipeline,
	}
	n.rpcServer = rpc.NewServer(pipeline, n, cfg.AllowAdmin)

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := eventbus.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, errors.Wrap(err, "node: opening kafka action publisher")
		}
		n.publisher = publisher
		worker.SetPublisher(publisher)
	}

	if cfg.MySQLDSN != "" {
		mirror, err := readmodel.Open(cfg.MySQLDSN)
		if err != nil {
			return nil, errors.Wrap(err, "node: opening read model mirror")
		}
		n.readModel = mirror
		worker.SetReadModel(mirror)
	}

	if cfg.RedisAddr != "" {
		cache := statuscache.NewCache(cfg.RedisAddr, cfg.RedisTTL)
		n.statusCache = cache
		pipeline.SetStatusCache(cache)
	}

	return n, nil
}

// Start brings up the worker loop, the writer pipeline, and (if an RPC
// address is configured) the RPC server. Performs genesis initialization
// first when needed, the S1 bootstrap path.
func (n *Node) Start() error {
	needsInit, err := n.Worker.CheckNeedsClientInit()
	if err != nil {
		return err
	}
	if needsInit {
		nodeLogger.Info("initializing client state", "horizon", n.cfg.HorizonL1Height, "genesis", n.cfg.GenesisL1Height)
		if err := n.Worker.InitClientState(n.cfg.HorizonL1Height, n.cfg.GenesisL1Height); err != nil {
			return err
		}
	}

	if err := n.Worker.Start(); err != nil {
		return err
	}
	if err := n.Pipeline.Start(); err != nil {
		return err
	}

	if n.cfg.RPCAddr != "" {
		go func() {
			if err := n.rpcServer.ListenAndServe(n.cfg.RPCAddr); err != nil {
				nodeLogger.Error("rpc server stopped", "err", err)
			}
		}()
	}
	return nil
}

// Shutdown implements rpc.Shutdowner for the privileged admin_stop method.
func (n *Node) Shutdown() {
	nodeLogger.Info("shutdown requested via rpc")
	go n.Stop()
}

func (n *Node) Stop() {
	n.Pipeline.Stop()
	n.Worker.Stop()

	if n.publisher != nil {
		if err := n.publisher.Close(); err != nil {
			nodeLogger.Error("failed to close action publisher", "err", err)
		}
	}
	if n.readModel != nil {
		if err := n.readModel.Close(); err != nil {
			nodeLogger.Error("failed to close read model mirror", "err", err)
		}
	}
	if n.statusCache != nil {
		if err := n.statusCache.Close(); err != nil {
			nodeLogger.Error("failed to close status cache", "err", err)
		}
	}

	if err := n.db.Close(); err != nil {
		nodeLogger.Error("failed to close database", "err", err)
	}
}
