// Session wiring for CLI commands.
//
// Information Hiding:
// - Entry resolution (YAML file or environment) hidden
// - Logger, tracer, tool APIs and storage construction hidden
// - Resource cleanup collected behind Close

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/entity"
	"github.com/richinex/xaiconv/internal/logging"
	"github.com/richinex/xaiconv/internal/telemetry"
	"github.com/richinex/xaiconv/mcp"
	"github.com/richinex/xaiconv/storage"
	"github.com/richinex/xaiconv/tools"
)

// defaultDBPath is where conversations are kept when --db is not given.
const defaultDBPath = ".xaiconv/conversations.db"

// Options holds the flags shared by every command.
type Options struct {
	ConfigPath    string
	DBPath        string
	DevicesPath   string
	MCPConfigPath string
	Verbose       bool
}

// Session is a set-up entry with everything its commands need.
type Session struct {
	Entry   config.Entry
	Runtime *entity.Runtime
	Store   *storage.SqliteStorage
	Devices *tools.DeviceStore
	APIs    []*tools.API
	Logger  *slog.Logger

	closers []func()
}

// LoadEntry reads the entry file, or builds an entry from the environment
// when no file is given.
func LoadEntry(opts Options) (config.Entry, error) {
	if opts.ConfigPath != "" {
		entry, err := config.LoadEntry(opts.ConfigPath)
		if err != nil {
			return config.Entry{}, err
		}
		return *entry, nil
	}

	settings, err := config.New()
	if err != nil {
		return config.Entry{}, err
	}
	if _, err := config.APIKey(); err != nil {
		return config.Entry{}, err
	}
	return settings.Entry(), nil
}

// Open sets up the entry described by opts. extra is passed to entity.Setup
// after the options Open derives itself.
func Open(ctx context.Context, opts Options, extra ...entity.SetupOption) (*Session, error) {
	entry, err := LoadEntry(opts)
	if err != nil {
		return nil, err
	}
	if opts.Verbose && entry.Logger.Level == "" {
		entry.Logger.Level = "debug"
	}

	sess := &Session{Entry: entry}
	ready := false
	defer func() {
		if !ready {
			sess.Close()
		}
	}()

	logger, closeLog, err := logging.New(entry.Logger)
	if err != nil {
		return nil, err
	}
	sess.Logger = logger
	sess.closers = append(sess.closers, func() { _ = closeLog() })

	shutdown, err := telemetry.Setup(ctx, entry.Tracer)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	sess.closers = append(sess.closers, func() { _ = shutdown(context.Background()) })

	apis, err := sess.toolAPIs(ctx, opts)
	if err != nil {
		return nil, err
	}
	sess.APIs = apis

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sess.Store = store
	sess.closers = append(sess.closers, func() { _ = store.Close() })

	setup := []entity.SetupOption{
		entity.WithToolAPIs(apis...),
		entity.WithStorage(store),
		entity.WithLogger(logger),
	}
	rt, err := entity.Setup(ctx, sess.Entry, append(setup, extra...)...)
	if err != nil {
		return nil, err
	}
	sess.Runtime = rt
	ready = true
	return sess, nil
}

// toolAPIs builds the assist API and, when MCP servers are configured, the
// MCP API. Conversation subentries that already enable a tool API get the
// MCP API as well.
func (s *Session) toolAPIs(ctx context.Context, opts Options) ([]*tools.API, error) {
	devicesPath := opts.DevicesPath
	if devicesPath == "" {
		devicesPath = s.Entry.DevicesFile
	}
	var err error
	if devicesPath != "" {
		s.Devices, err = tools.LoadDevices(devicesPath)
	} else {
		s.Devices, err = tools.NewDeviceStore(demoDevices())
	}
	if err != nil {
		return nil, err
	}

	assist, err := tools.NewAssistAPI(config.AssistAPI, s.Devices)
	if err != nil {
		return nil, fmt.Errorf("failed to create assist API: %w", err)
	}
	apis := []*tools.API{assist}

	servers := slices.Clone(s.Entry.MCPServers)
	if opts.MCPConfigPath != "" {
		fromFile, err := mcp.LoadConfig(opts.MCPConfigPath)
		if err != nil {
			return nil, err
		}
		servers = append(servers, fromFile...)
	}
	if len(servers) == 0 {
		return apis, nil
	}

	bridge, err := mcp.Connect(ctx, servers, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MCP servers: %w", err)
	}
	s.closers = append(s.closers, bridge.Close)

	mcpAPI, err := bridge.API()
	if err != nil {
		return nil, err
	}
	if mcpAPI == nil {
		return apis, nil
	}

	for i := range s.Entry.Subentries {
		sub := &s.Entry.Subentries[i]
		if sub.Type == config.SubentryConversation && sub.Options.HasLLMAPI() && !slices.Contains(sub.Options.LLMAPIs, mcp.APIID) {
			sub.Options.LLMAPIs = append(slices.Clone(sub.Options.LLMAPIs), mcp.APIID)
		}
	}
	return append(apis, mcpAPI), nil
}

// Close releases everything Open acquired, in reverse order.
func (s *Session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func demoDevices() []tools.Device {
	return []tools.Device{
		{EntityID: "light.kitchen", Name: "Kitchen Light", State: "off", Area: "Kitchen"},
		{EntityID: "light.living_room", Name: "Living Room Light", State: "on", Area: "Living Room"},
		{EntityID: "switch.coffee_maker", Name: "Coffee Maker", State: "off", Area: "Kitchen"},
		{EntityID: "lock.front_door", Name: "Front Door", State: "locked", Area: "Hallway"},
		{EntityID: "climate.thermostat", Name: "Thermostat", State: "heat", Area: "Living Room",
			Attributes: map[string]any{"temperature": 21}},
	}
}
