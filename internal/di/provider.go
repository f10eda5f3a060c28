package di

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/usageledger/ledgerd/internal/api"
	"github.com/usageledger/ledgerd/internal/config"
	"github.com/usageledger/ledgerd/internal/engine"
	"github.com/usageledger/ledgerd/internal/genesis"
	"github.com/usageledger/ledgerd/internal/replay"
	"github.com/usageledger/ledgerd/internal/rpcapi"
	"github.com/usageledger/ledgerd/internal/signing"
	"github.com/usageledger/ledgerd/internal/state"
	"github.com/usageledger/ledgerd/internal/storage"
)

func defaultNow() int64 { return time.Now().Unix() }

// Provider configures and registers ledgerd's services in the container.
type Provider struct {
	container *Container
	config    *config.Config
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
	}
}

// RegisterAll registers all service builders. Nothing is actually built
// until something calls Get/MustGet, so opening storage or starting a
// listener never happens as a side effect of RegisterAll itself.
func (p *Provider) RegisterAll() error {
	p.container.Register(ServiceConfig, p.config)

	p.registerStorageBuilders()
	p.registerEngineBuilders()
	p.registerAPIBuilders()

	return nil
}

// RegisterBuilt wires the container around a store, replay service, and
// tip state the caller already constructed (and already logged progress
// for, e.g. genesis load / replay tip): it registers them as instances
// and registers builders only for the layers above them (verifier,
// publisher, engine, node). Use this instead of RegisterAll when the
// caller needs to observe storage-open/replay-to-tip itself rather than
// have the container perform them lazily.
func (p *Provider) RegisterBuilt(store *storage.Store, replaySvc *replay.Service, tip *state.State) {
	p.container.Register(ServiceConfig, p.config)
	p.container.Register(ServiceStore, store)
	p.container.Register(ServiceReplay, replaySvc)
	p.container.Register(ServiceState, tip)

	p.registerEngineBuilders()
	p.registerAPIBuilders()
}

func (p *Provider) registerStorageBuilders() {
	p.container.RegisterBuilder(ServiceStore, func(c *Container) (interface{}, error) {
		return storage.Open(context.Background(), p.config.Storage.Backend, p.config.Storage.Addr, p.config.Storage.SnapshotPath)
	})

	p.container.RegisterBuilder(ServiceReplay, func(c *Container) (interface{}, error) {
		store, err := p.getStore(c)
		if err != nil {
			return nil, err
		}
		return replay.NewService(store), nil
	})

	p.container.RegisterBuilder(ServiceState, func(c *Container) (interface{}, error) {
		minters := p.config.Minters
		if p.config.GenesisFile != "" {
			gcfg, err := genesis.LoadFile(p.config.GenesisFile)
			if err != nil {
				return nil, err
			}
			minters = gcfg.Minters
		}

		svc, err := c.Get(ServiceReplay)
		if err != nil {
			return nil, err
		}
		return svc.(*replay.Service).ToTip(context.Background(), minters)
	})
}

func (p *Provider) registerEngineBuilders() {
	p.container.RegisterBuilder(ServiceVerifier, func(c *Container) (interface{}, error) {
		verifier := signing.NewSecp256k1Verifier()
		for _, ok := range p.config.OperatorKeys {
			pub, err := hex.DecodeString(ok.PublicKeyHex)
			if err != nil {
				return nil, fmt.Errorf("di: decode operator key for %s: %w", ok.Address, err)
			}
			if err := verifier.RegisterKey(ok.Address, pub); err != nil {
				return nil, fmt.Errorf("di: register operator key for %s: %w", ok.Address, err)
			}
		}
		return verifier, nil
	})

	p.container.RegisterBuilder(ServicePublisher, func(c *Container) (interface{}, error) {
		return api.NewPublisher(), nil
	})

	p.container.RegisterBuilder(ServiceEngine, func(c *Container) (interface{}, error) {
		verifier, err := c.Get(ServiceVerifier)
		if err != nil {
			return nil, err
		}
		replaySvc, err := c.Get(ServiceReplay)
		if err != nil {
			return nil, err
		}
		publisher, err := c.Get(ServicePublisher)
		if err != nil {
			return nil, err
		}
		return engine.NewStateMachine(
			verifier.(signing.Verifier),
			replaySvc.(*replay.Service),
			publisher.(*api.Publisher),
		), nil
	})
}

func (p *Provider) registerAPIBuilders() {
	p.container.RegisterBuilder(ServiceNode, func(c *Container) (interface{}, error) {
		st, err := c.Get(ServiceState)
		if err != nil {
			return nil, err
		}
		machine, err := c.Get(ServiceEngine)
		if err != nil {
			return nil, err
		}
		store, err := p.getStore(c)
		if err != nil {
			return nil, err
		}
		publisher, err := c.Get(ServicePublisher)
		if err != nil {
			return nil, err
		}
		return api.NewNode(
			st.(*state.State),
			machine.(*engine.StateMachine),
			store,
			publisher.(*api.Publisher),
		), nil
	})

	p.container.RegisterBuilder(ServiceHTTPServer, func(c *Container) (interface{}, error) {
		node, err := c.Get(ServiceNode)
		if err != nil {
			return nil, err
		}
		return api.NewServer(node.(*api.Node), defaultNow), nil
	})

	p.container.RegisterBuilder(ServiceGRPCServer, func(c *Container) (interface{}, error) {
		node, err := c.Get(ServiceNode)
		if err != nil {
			return nil, err
		}
		cfg := rpcapi.DefaultServerConfig()
		cfg.Address = p.config.Server.GRPCAddr
		adapter := rpcapi.NewNodeAdapter(node.(*api.Node), defaultNow)
		return rpcapi.NewServer(cfg, adapter), nil
	})
}

func (p *Provider) getStore(c *Container) (*storage.Store, error) {
	store, err := c.Get(ServiceStore)
	if err != nil {
		return nil, err
	}
	return store.(*storage.Store), nil
}

// GetNode returns the fully-wired node from the container.
func (p *Provider) GetNode() (*api.Node, error) {
	node, err := p.container.Get(ServiceNode)
	if err != nil {
		return nil, err
	}
	return node.(*api.Node), nil
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}

// GetPublisher returns the websocket event publisher from the container,
// for mounting it alongside the HTTP/gRPC servers built from the same
// engine instance.
func (p *Provider) GetPublisher() (*api.Publisher, error) {
	publisher, err := p.container.Get(ServicePublisher)
	if err != nil {
		return nil, err
	}
	return publisher.(*api.Publisher), nil
}
