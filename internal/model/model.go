// Package model holds the data types shared across memoryvault: the
// persisted Memory record, its metadata, and the consolidation plan shape
// the LLM-driven Consolidator produces.
package model

import "time"

// MemoryMetadata carries the four filterable fields every Memory is tagged
// with, plus an optional client-supplied event timestamp. Immutable after
// creation, nothing in memoryvault ever rewrites metadata on an existing
// Memory.
type MemoryMetadata struct {
	UserID         string     `json:"user_id" binding:"required"`
	AppID          string     `json:"app_id" binding:"required"`
	SessionID      string     `json:"session_id" binding:"required"`
	AgentName      string     `json:"agent_name" binding:"required"`
	EventTimestamp *time.Time `json:"event_timestamp,omitempty"`
}

// Filter reduces a MemoryMetadata to the subset used for equality-match
// search_by_metadata queries. Empty fields are omitted.
func (m MemoryMetadata) Filter() map[string]string {
	f := make(map[string]string, 4)
	if m.UserID != "" {
		f["user_id"] = m.UserID
	}
	if m.AppID != "" {
		f["app_id"] = m.AppID
	}
	if m.SessionID != "" {
		f["session_id"] = m.SessionID
	}
	if m.AgentName != "" {
		f["agent_name"] = m.AgentName
	}
	return f
}

// Memory is the persisted record: a Fact with identity, an embedding, the
// metadata it was created under, and lifecycle timestamps.
type Memory struct {
	ID        string         `json:"id"`
	Document  string         `json:"document"`
	Embedding []float32      `json:"embedding,omitempty"`
	Metadata  MemoryMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Action is one of the four outcomes a ConsolidationPlanItem may carry.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionNoop   Action = "NOOP"
)

// ConsolidationPlanItem is one entry of the plan the Consolidator's LLM
// call produces: either a brand new fact (Action=CREATE, ID is a fresh
// value not present in the temp->real map) or an operation against an
// existing neighbor (ID is the neighbor's temporary index).
type ConsolidationPlanItem struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Action  Action `json:"action"`
	OldText string `json:"old_text,omitempty"`
}

// ConsolidationPlan is the parsed, not-yet-validated shape the LLM returns.
type ConsolidationPlan struct {
	Plan []ConsolidationPlanItem `json:"plan"`
}

// ConfirmationStatus is the outcome recorded for one applied plan item or
// explicit API mutation.
type ConfirmationStatus string

const (
	StatusCreated  ConfirmationStatus = "CREATED"
	StatusUpdated  ConfirmationStatus = "UPDATED"
	StatusDeleted  ConfirmationStatus = "DELETED"
	StatusNotFound ConfirmationStatus = "NOT_FOUND"
)

// ActionConfirmation reports what actually happened to one memory id as a
// plan or request was applied.
type ActionConfirmation struct {
	ID       string             `json:"id"`
	Document string             `json:"document,omitempty"`
	Status   ConfirmationStatus `json:"status"`
}

// MemoryResponse is the read-path projection of a Memory returned by the
// HTTP API: never carries the raw embedding, optionally carries a
// similarity score when returned from a similarity query.
type MemoryResponse struct {
	ID         string         `json:"id"`
	Document   string         `json:"document"`
	Metadata   MemoryMetadata `json:"metadata"`
	CreatedAt  *time.Time     `json:"created_at,omitempty"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
	Similarity *float32       `json:"similarity,omitempty"`
}

// ToResponse projects a stored Memory, optionally attaching a similarity
// score computed by a similarity query.
func (m Memory) ToResponse(similarity *float32) MemoryResponse {
	created, updated := m.CreatedAt, m.UpdatedAt
	return MemoryResponse{
		ID:         m.ID,
		Document:   m.Document,
		Metadata:   m.Metadata,
		CreatedAt:  &created,
		UpdatedAt:  &updated,
		Similarity: similarity,
	}
}

// MessagePart is one segment of a chat Message. Exactly one of Text,
// FunctionCall, or FunctionResponse is populated; the extractor only reads
// Text, per the flattening algorithm.
type MessagePart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *FunctionCall   `json:"function_call,omitempty"`
	FunctionResponse *FunctionResult `json:"function_response,omitempty"`
}

type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// Role is the speaker of a Message in a generate request.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of the conversation passed to /memories/generate.
type Message struct {
	Role  Role          `json:"role" binding:"required,oneof=user model"`
	Parts []MessagePart `json:"parts" binding:"required,min=1"`
}
