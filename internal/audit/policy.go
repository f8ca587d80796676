package audit

import "fmt"

// LogoutPolicy decides the success flag recorded for a logout.
type LogoutPolicy string

const (
	// LogoutAlwaysSuccess records every client-initiated logout as successful.
	LogoutAlwaysSuccess LogoutPolicy = "always-success"
	// LogoutReflectSession records success only when a valid session was ended.
	LogoutReflectSession LogoutPolicy = "reflect-session"
)

// ParseLogoutPolicy validates a policy name.
func ParseLogoutPolicy(s string) (LogoutPolicy, error) {
	switch p := LogoutPolicy(s); p {
	case LogoutAlwaysSuccess, LogoutReflectSession:
		return p, nil
	case "":
		return LogoutAlwaysSuccess, nil
	default:
		return "", fmt.Errorf("unknown logout audit policy %q", s)
	}
}

// Success returns the flag to record given whether a live session was ended.
func (p LogoutPolicy) Success(sessionEnded bool) bool {
	if p == LogoutReflectSession {
		return sessionEnded
	}
	return true
}
