// Package core provides the agent behavior simulation and floor task delegation engine.
package core

import (
	"fmt"
	"strings"
	"time"
)

// Division is a functional category used to tag agents and classify tasks.
type Division string

const (
	DivisionMarketing  Division = "marketing"
	DivisionResearch   Division = "research"
	DivisionTesting    Division = "testing"
	DivisionProduction Division = "production"
	DivisionSecurity   Division = "security"
	DivisionLegal      Division = "legal"
	DivisionAccounting Division = "accounting"
	DivisionManagement Division = "management"
	DivisionMeeting    Division = "meeting"
)

// WorkDivisions are the divisions tasks can be classified into, in tie-break order.
var WorkDivisions = []Division{
	DivisionMarketing,
	DivisionResearch,
	DivisionTesting,
	DivisionProduction,
	DivisionSecurity,
	DivisionLegal,
	DivisionAccounting,
}

// AllDivisions includes the virtual management and meeting zones.
var AllDivisions = append(append([]Division{}, WorkDivisions...), DivisionManagement, DivisionMeeting)

// AgentState is the behavioral state of a simulated agent.
type AgentState string

const (
	StateWorking    AgentState = "working"
	StateIdle       AgentState = "idle"
	StateMeeting    AgentState = "meeting"
	StateNetworking AgentState = "networking"
	StateMoving     AgentState = "moving"
)

// AllStates lists every behavioral state in canonical order.
var AllStates = []AgentState{StateWorking, StateIdle, StateMeeting, StateNetworking, StateMoving}

// Priority is a task's declared priority as given by the caller ("P0".."P3", "critical", "high", ...).
type Priority string

// PriorityTier groups priorities into the tiers that influence classification.
type PriorityTier int

const (
	TierNormal PriorityTier = iota
	TierHigh
	TierCritical
)

// Tier returns the tier of the priority.
func (p Priority) Tier() PriorityTier {
	switch strings.ToLower(strings.TrimSpace(string(p))) {
	case "p0", "critical", "urgent":
		return TierCritical
	case "p1", "high":
		return TierHigh
	default:
		return TierNormal
	}
}

// Complexity is the derived complexity tier of a task.
type Complexity string

const (
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
	ComplexitySwarm    Complexity = "swarm"
)

// Strategy is the delegation strategy a router picked for a task.
type Strategy string

const (
	StrategySingle Strategy = "single"
	StrategyMulti  Strategy = "multi"
	StrategySwarm  Strategy = "swarm"
)

// TaskRequest is an incoming unit of work.
type TaskRequest struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	Source      string
}

// Task is a request after analysis.
type Task struct {
	TaskRequest
	Divisions  []Division
	Complexity Complexity
}

// Vec3 is a position in the tower.
type Vec3 struct {
	X, Y, Z float64
}

// Event names.
const (
	EventTaskDelegated = "task:delegated"
	EventTaskProgress  = "task:progress"
	EventTaskCompleted = "task:completed"
	EventTaskSwarmed   = "task:swarmed"
	EventTaskFailed    = "task:failed"
	EventStateChanged  = "state:changed"
)

// FloorChannel returns the event channel prefix scoped to a floor.
func FloorChannel(floor int) string {
	return fmt.Sprintf("floor-%d", floor)
}

// SwarmRequestEvent returns the name of the swarm request event addressed to a floor.
func SwarmRequestEvent(floor int) string {
	return FloorChannel(floor) + ":swarm-request"
}

// SwarmResponseEvent returns the name of the swarm response event addressed to a floor.
func SwarmResponseEvent(floor int) string {
	return FloorChannel(floor) + ":swarm-response"
}

// Event represents something that happened in the tower.
type Event struct {
	Name      string
	Data      interface{}
	Timestamp time.Time
}

// DelegatedData is the payload of task:delegated.
type DelegatedData struct {
	TaskID   string
	FromID   string
	ToID     string
	Floor    int
	Division Division
}

// ProgressData is the payload of task:progress.
type ProgressData struct {
	TaskID   string
	Floor    int
	Progress int
	Agent    string
	Message  string
}

// CompletedData is the payload of task:completed.
type CompletedData struct {
	TaskID string
	Floor  int
	Agent  string
	Agents []string
	Result string
}

// SwarmedData is the payload of task:swarmed.
type SwarmedData struct {
	TaskID      string
	Coordinator string
	Agents      []string
	Floor       int
	Divisions   []Division
}

// FailedData is the payload of task:failed.
type FailedData struct {
	TaskID string
	Floor  int
	Reason string
}

// SwarmRequestData is the payload of <floor>:swarm-request.
type SwarmRequestData struct {
	TaskID          string
	RequestingFloor int
	NeededDivisions []Division
	Priority        Priority
}

// SwarmResponseData is the payload of <floor>:swarm-response.
type SwarmResponseData struct {
	TaskID    string
	Agents    []string
	FromFloor int
}

// StateChangeData is the payload of state:changed.
type StateChangeData struct {
	Key      string
	OldValue interface{}
	NewValue interface{}
}
