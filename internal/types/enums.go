package types

// JoinMode governs how users may join a team.
type JoinMode int

const (
	JoinModeEither    JoinMode = 1 // by invite email or by team code
	JoinModeBoth      JoinMode = 2
	JoinModeOnlyEmail JoinMode = 3 // manager adds members; self-join disabled
	JoinModeOnlyID    JoinMode = 4
)

// JoinModeFromCode maps a stored integer code to a JoinMode, defaulting to EITHER.
func JoinModeFromCode(code int) JoinMode {
	switch JoinMode(code) {
	case JoinModeBoth, JoinModeOnlyEmail, JoinModeOnlyID:
		return JoinMode(code)
	default:
		return JoinModeEither
	}
}

// Task Status values
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusBlocked    = "BLOCKED"
)

// Task Priority values
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Channel types for real-time chat
const (
	ChannelTeam    = "team"
	ChannelProject = "project"
	ChannelTask    = "task"
)

// Valid status values for validation
var ValidTaskStatuses = []string{
	StatusTodo, StatusInProgress, StatusDone, StatusBlocked,
}

// Valid priority values for validation
var ValidTaskPriorities = []string{
	PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent,
}

// IsValidStatus reports whether s is a known task status.
func IsValidStatus(s string) bool {
	for _, v := range ValidTaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidPriority reports whether p is a known task priority.
func IsValidPriority(p string) bool {
	for _, v := range ValidTaskPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// IsValidChannelType reports whether t names a chat channel type.
func IsValidChannelType(t string) bool {
	return t == ChannelTeam || t == ChannelProject || t == ChannelTask
}
