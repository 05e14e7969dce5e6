package schemas

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed *.schema.json
var files embed.FS

const (
	Creature    = "creature.schema.json"
	Inventory   = "inventory.schema.json"
	PriceEntry  = "price_entry.schema.json"
	Prices      = "prices.schema.json"
	PlanRequest = "plan_request.schema.json"
	PlanResult  = "plan_result.schema.json"
	Error       = "error.schema.json"
)

const baseURL = "mem://schemas/"

var (
	once     sync.Once
	compiled map[string]*jsonschema.Schema
	loadErr  error
)

func load() {
	c := jsonschema.NewCompiler()
	entries, err := files.ReadDir(".")
	if err != nil {
		loadErr = err
		return
	}
	for _, e := range entries {
		raw, err := files.ReadFile(e.Name())
		if err != nil {
			loadErr = err
			return
		}
		if err := c.AddResource(baseURL+e.Name(), bytes.NewReader(raw)); err != nil {
			loadErr = fmt.Errorf("%s: %w", e.Name(), err)
			return
		}
	}
	compiled = make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		s, err := c.Compile(baseURL + e.Name())
		if err != nil {
			loadErr = fmt.Errorf("compile %s: %w", e.Name(), err)
			return
		}
		compiled[e.Name()] = s
	}
}

func Get(name string) (*jsonschema.Schema, error) {
	once.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	s, ok := compiled[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Validate checks raw JSON against the named schema.
func Validate(name string, raw []byte) error {
	s, err := Get(name)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
