// Smart-home device tools.
//
// Information Hiding:
// - Device state lives in an in-memory store seeded from YAML
// - Allowed states per domain are checked inside the store
// - Tools only translate arguments and results

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AssistPrompt explains the device tools to the model.
const AssistPrompt = `When controlling devices, call list_devices to find entity ids, get_state to read a device and set_state to change it.
Only use entity ids returned by list_devices.`

// Device is one controllable entity.
type Device struct {
	EntityID   string         `yaml:"entity_id" json:"entity_id"`
	Name       string         `yaml:"name" json:"name"`
	State      string         `yaml:"state" json:"state"`
	Area       string         `yaml:"area,omitempty" json:"area,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Domain returns the entity id prefix, e.g. "light" for "light.kitchen".
func (d Device) Domain() string {
	domain, _, _ := strings.Cut(d.EntityID, ".")
	return domain
}

// EntityNotFoundError is reported for an entity id the store does not know.
type EntityNotFoundError struct {
	EntityID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity '%s' not found", e.EntityID)
}

// Kind names the error in tool result payloads.
func (e *EntityNotFoundError) Kind() string { return "EntityNotFound" }

var domainStates = map[string][]string{
	"light":   {"on", "off"},
	"switch":  {"on", "off"},
	"fan":     {"on", "off"},
	"cover":   {"open", "closed"},
	"lock":    {"locked", "unlocked"},
	"climate": {"off", "heat", "cool", "auto"},
}

// DeviceStore holds the simulated device states.
type DeviceStore struct {
	mu      sync.RWMutex
	devices map[string]*Device
	order   []string
}

// NewDeviceStore creates a store seeded with devices.
func NewDeviceStore(devices []Device) (*DeviceStore, error) {
	s := &DeviceStore{devices: make(map[string]*Device, len(devices))}
	for _, d := range devices {
		if d.EntityID == "" || !strings.Contains(d.EntityID, ".") {
			return nil, fmt.Errorf("invalid entity id %q", d.EntityID)
		}
		if _, exists := s.devices[d.EntityID]; exists {
			return nil, fmt.Errorf("entity '%s' defined twice", d.EntityID)
		}
		d := d
		s.devices[d.EntityID] = &d
		s.order = append(s.order, d.EntityID)
	}
	return s, nil
}

// LoadDevices reads a YAML list of devices.
func LoadDevices(path string) (*DeviceStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read devices file: %w", err)
	}

	var file struct {
		Devices []Device `yaml:"devices"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse devices file: %w", err)
	}
	return NewDeviceStore(file.Devices)
}

// List returns the devices of a domain, or all devices when domain is empty.
func (s *DeviceStore) List(domain string) []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Device, 0, len(s.order))
	for _, id := range s.order {
		d := *s.devices[id]
		if domain != "" && d.Domain() != domain {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Get returns one device.
func (s *DeviceStore) Get(entityID string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[entityID]
	if !ok {
		return Device{}, &EntityNotFoundError{EntityID: entityID}
	}
	return *d, nil
}

// Set changes the state of one device.
func (s *DeviceStore) Set(entityID, state string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[entityID]
	if !ok {
		return Device{}, &EntityNotFoundError{EntityID: entityID}
	}

	state = strings.ToLower(strings.TrimSpace(state))
	if allowed, known := domainStates[d.Domain()]; known && !contains(allowed, state) {
		return Device{}, fmt.Errorf("state %q not allowed for %s, expected one of %s",
			state, d.Domain(), strings.Join(allowed, ", "))
	}
	d.State = state
	return *d, nil
}

// Domains returns the sorted set of domains present in the store.
func (s *DeviceStore) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, d := range s.devices {
		seen[d.Domain()] = true
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ListDevicesTool lists devices, optionally filtered by domain.
type ListDevicesTool struct {
	BaseTool
	store *DeviceStore
}

// NewListDevicesTool creates the list_devices tool.
func NewListDevicesTool(store *DeviceStore) *ListDevicesTool {
	return &ListDevicesTool{store: store}
}

// Metadata returns the tool metadata.
func (t *ListDevicesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "list_devices",
		Description: "List the smart home devices with their current state",
		Parameters: []ToolParameter{
			{Name: "domain", ParamType: "string", Description: "Only list devices of this domain, e.g. light", Required: false, Enum: t.store.Domains()},
		},
	}
}

// Execute lists the devices.
func (t *ListDevicesTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Domain string `json:"domain"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
	}

	devices := t.store.List(a.Domain)
	list := make([]any, 0, len(devices))
	for _, d := range devices {
		list = append(list, map[string]any{
			"entity_id": d.EntityID,
			"name":      d.Name,
			"state":     d.State,
			"area":      d.Area,
		})
	}
	return SuccessResult(map[string]any{"devices": list}), nil
}

type entityArgs struct {
	EntityID string `json:"entity_id"`
	State    string `json:"state"`
}

func parseEntityArgs(args json.RawMessage, needState bool) (entityArgs, error) {
	var a entityArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return a, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.EntityID == "" {
		return a, fmt.Errorf("entity_id cannot be empty")
	}
	if needState && a.State == "" {
		return a, fmt.Errorf("state cannot be empty")
	}
	return a, nil
}

// GetStateTool reads one device.
type GetStateTool struct {
	store *DeviceStore
}

// NewGetStateTool creates the get_state tool.
func NewGetStateTool(store *DeviceStore) *GetStateTool {
	return &GetStateTool{store: store}
}

// Metadata returns the tool metadata.
func (t *GetStateTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "get_state",
		Description: "Get the current state and attributes of a device",
		Parameters: []ToolParameter{
			{Name: "entity_id", ParamType: "string", Description: "Entity id such as light.kitchen", Required: true},
		},
	}
}

// Validate validates the arguments.
func (t *GetStateTool) Validate(args json.RawMessage) error {
	_, err := parseEntityArgs(args, false)
	return err
}

// Execute reads the device.
func (t *GetStateTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := parseEntityArgs(args, false)
	if err != nil {
		return FailureResult(err), nil
	}
	d, err := t.store.Get(a.EntityID)
	if err != nil {
		return FailureResult(err), nil
	}
	return SuccessResult(deviceData(d)), nil
}

// SetStateTool changes one device.
type SetStateTool struct {
	store *DeviceStore
}

// NewSetStateTool creates the set_state tool.
func NewSetStateTool(store *DeviceStore) *SetStateTool {
	return &SetStateTool{store: store}
}

// Metadata returns the tool metadata.
func (t *SetStateTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "set_state",
		Description: "Change the state of a device, e.g. turn a light on or lock a door",
		Parameters: []ToolParameter{
			{Name: "entity_id", ParamType: "string", Description: "Entity id such as light.kitchen", Required: true},
			{Name: "state", ParamType: "string", Description: "Target state such as on, off, open, closed, locked", Required: true},
		},
	}
}

// Validate validates the arguments.
func (t *SetStateTool) Validate(args json.RawMessage) error {
	_, err := parseEntityArgs(args, true)
	return err
}

// Execute changes the device state.
func (t *SetStateTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := parseEntityArgs(args, true)
	if err != nil {
		return FailureResult(err), nil
	}
	d, err := t.store.Set(a.EntityID, a.State)
	if err != nil {
		return FailureResult(err), nil
	}
	data := deviceData(d)
	data["success"] = true
	return SuccessResult(data), nil
}

func deviceData(d Device) map[string]any {
	data := map[string]any{
		"entity_id": d.EntityID,
		"name":      d.Name,
		"state":     d.State,
	}
	if len(d.Attributes) > 0 {
		data["attributes"] = d.Attributes
	}
	return data
}

// NewAssistAPI creates the device control API over store.
func NewAssistAPI(id string, store *DeviceStore, opts ...APIOption) (*API, error) {
	registry := NewRegistry()
	if err := registry.RegisterAll(
		NewListDevicesTool(store),
		NewGetStateTool(store),
		NewSetStateTool(store),
	); err != nil {
		return nil, err
	}
	return NewAPI(id, registry, append([]APIOption{WithPrompt(AssistPrompt)}, opts...)...), nil
}

var (
	_ Tool = (*ListDevicesTool)(nil)
	_ Tool = (*GetStateTool)(nil)
	_ Tool = (*SetStateTool)(nil)
)
