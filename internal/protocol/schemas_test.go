package protocol_test

import (
	"encoding/json"
	"testing"

	"breedplan.ai/internal/breeding/report"
	"breedplan.ai/internal/protocol"
	"breedplan.ai/schemas"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(name string, v any) {
		t.Helper()
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := schemas.Validate(name, raw); err != nil {
			t.Fatalf("validate %s: %v", name, err)
		}
	}

	var plan any
	_ = json.Unmarshal([]byte(`{
	  "type":"PLAN",
	  "protocol_version":"1.0",
	  "request_id":"q1",
	  "species":"Eevee",
	  "ivs":["HP","Atk","Spe"],
	  "nature":"Jolly",
	  "inventory":[{"id":"c1","species":"Eevee","gender":"F","ivs":["HP"]}],
	  "prices":[{"key":"HP","source":"species","gender":"F","price":12000}],
	  "top":10
	}`), &plan)
	validate(schemas.PlanRequest, plan)

	validate(schemas.PlanResult, protocol.PlanResultMsg{
		Type:            protocol.TypePlanResult,
		ProtocolVersion: protocol.Version,
		RunID:           "run-1",
		Plans:           []report.PlanView{},
	})
	validate(schemas.Error, protocol.NewError("q1", protocol.ErrUnknownSpecies, "unknown species", "Eevee"))
}

func TestDecodePlan(t *testing.T) {
	m, err := protocol.DecodePlan([]byte(`{
	  "type":"PLAN","protocol_version":"1.0","species":"Eevee","ivs":["HP","Atk"],
	  "inventory":[{"species":" Eevee ","gender":"female","ivs":["HP"," "]}]
	}`))
	if err != nil {
		t.Fatalf("DecodePlan: %v", err)
	}
	if len(m.Inventory) != 1 || m.Inventory[0].ID == "" || m.Inventory[0].Species != "Eevee" {
		t.Fatalf("inventory not normalized: %+v", m.Inventory)
	}

	bad := []string{
		`{"type":"PLAN","protocol_version":"1.0","species":"Eevee","ivs":["HP"]}`,
		`{"type":"PLAN","protocol_version":"1.0","species":"","ivs":["HP","Atk"]}`,
		`{"type":"PLAN","protocol_version":"1.0","species":"Eevee","ivs":["HP","HP"]}`,
		`{"type":"PLAN","protocol_version":"1.0","species":"Eevee","ivs":["HP","Atk"],"prices":[{"key":"HP","source":"species","gender":"Q","price":1}]}`,
		`not json`,
	}
	for _, raw := range bad {
		if _, err := protocol.DecodePlan([]byte(raw)); err == nil {
			t.Fatalf("expected rejection: %s", raw)
		}
	}
}

func TestDecodeBase(t *testing.T) {
	b, err := protocol.DecodeBase([]byte(`{"type":"PLAN","protocol_version":"1.0","request_id":"x"}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if b.Type != protocol.TypePlan || b.RequestID != "x" {
		t.Fatalf("unexpected base: %+v", b)
	}
}
