package planner

import "encoding/json"

// Payload field values fixed by the plan.v1 contract.
const (
	// SchemaVersion identifies this payload generation.
	SchemaVersion = "plan.v1"

	// PlanWindowToday is the only window this engine produces.
	PlanWindowToday = "today"

	// generatedAtLayout renders timestamps as UTC seconds with a Z suffix.
	generatedAtLayout = "2006-01-02T15:04:05Z"
)

// Payload is the versioned plan structure handed to the cache and, from
// there, to external consumers. Field order matches the wire contract.
type Payload struct {
	SchemaVersion string        `json:"schema_version"`
	PlanWindow    string        `json:"plan_window"`
	GeneratedAt   string        `json:"generated_at"`
	TodayPlan     []Item        `json:"today_plan"`
	NextActions   []Item        `json:"next_actions"`
	BlockedItems  []BlockedItem `json:"blocked_items"`
	WhyThisOrder  []Rationale   `json:"why_this_order"`
	Assumptions   []string      `json:"assumptions"`
}

// Item is one ranked task in today_plan or next_actions. Rank counts the
// absolute sorted position starting at 1 and keeps counting across the
// today/next boundary.
type Item struct {
	TaskID string  `json:"task_id"`
	Rank   int     `json:"rank"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// BlockedItem reports a task withheld from ranking and every rule that
// blocked it.
type BlockedItem struct {
	TaskID    string   `json:"task_id"`
	Title     string   `json:"title"`
	BlockedBy []string `json:"blocked_by"`
}

// Rationale explains one today_plan entry by its scoring factors.
type Rationale struct {
	TaskID  string   `json:"task_id"`
	Factors []string `json:"factors"`
}

// Marshal serializes the payload. Struct field order fixes the key order,
// so identical payloads serialize to identical bytes.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
