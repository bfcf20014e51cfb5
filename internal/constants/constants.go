package constants

import "time"

// MinEventBusBufferSize is the minimum buffer per subscriber channel.
const MinEventBusBufferSize = 1000

// DefaultTickInterval is how often the simulation clock advances when running live.
const DefaultTickInterval = 50 * time.Millisecond

// DefaultMaxDelta caps a single tick's delta so a stalled process doesn't teleport agents.
const DefaultMaxDelta = 250 * time.Millisecond

// ProgressSteps is the number of equal steps a delegated task's progress is split into.
const ProgressSteps = 10

// FloorHeight is the vertical distance between two floors in world units.
const FloorHeight = 4.0

// ZoneSpacing is the horizontal distance between adjacent division zones on a floor.
const ZoneSpacing = 6.0

// ZoneJitter is the maximum offset from a zone center when picking a destination.
const ZoneJitter = 1.5

// ArrivalEpsilon is the distance under which a moving agent counts as arrived.
const ArrivalEpsilon = 0.05

// ManagerSuffix is appended to a floor label to form its router identity.
const ManagerSuffix = "manager"

// StopTimeout bounds how long shutdown waits for the simulation loop to exit.
const StopTimeout = 10 * time.Second

// EventLogSize is how many recent events the dashboard keeps.
const EventLogSize = 200
