package protocol

import (
	"encoding/json"

	"breedplan.ai/internal/breeding/inventory"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/report"
	"breedplan.ai/schemas"
)

// PLAN (client -> server)
type PlanMsg struct {
	Type            string               `json:"type"`
	ProtocolVersion string               `json:"protocol_version"`
	RequestID       string               `json:"request_id,omitempty"`
	Species         string               `json:"species"`
	IVs             []string             `json:"ivs"`
	Nature          string               `json:"nature,omitempty"`
	Inventory       []inventory.Creature `json:"inventory,omitempty"`
	Prices          []market.Entry       `json:"prices,omitempty"`
	Top             int                  `json:"top,omitempty"`
}

// DecodePlan validates raw against the PLAN schema and normalizes the
// inventory it carries.
func DecodePlan(raw []byte) (PlanMsg, error) {
	var m PlanMsg
	if err := schemas.Validate(schemas.PlanRequest, raw); err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, err
	}
	inv, err := inventory.Normalize(m.Inventory)
	if err != nil {
		return m, err
	}
	m.Inventory = inv
	return m, nil
}

// PLAN_RESULT (server -> client)
type PlanResultMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	RequestID       string            `json:"request_id,omitempty"`
	RunID           string            `json:"run_id"`
	Evaluated       int               `json:"evaluated"`
	MissingPrices   []string          `json:"missing_prices,omitempty"`
	Plans           []report.PlanView `json:"plans"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	RequestID       string   `json:"request_id,omitempty"`
	Code            string   `json:"code"`
	Message         string   `json:"message"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

func NewError(requestID, code, message string, suggestions ...string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
		Suggestions:     suggestions,
	}
}
