package tools

import "strings"

// blockedPrefixes lists destructive command prefixes run_command refuses
// to execute: recursive delete, partition/filesystem tools, power control,
// recursive permission/ownership changes, and a fork bomb. A command
// matches when it starts with one of them as a plain string prefix (so
// "rm -rf /" also matches "rm -rf /tmp"), after stripping a leading
// sudo/doas wrapper. isBlocked additionally checks blockedFirstTokens and
// rejects a network fetcher piped to a shell.
var blockedPrefixes = []string{
	"rm -rf /",
	"rm -rf --no-preserve-root",
	"rm -fr /",
	"mkfs",
	"dd if=",
	"fdisk",
	"parted",
	"shutdown",
	"reboot",
	"poweroff",
	"halt",
	"init 0",
	"init 6",
	"chmod -R 777 /",
	"chown -R",
	":(){ :|:& };:",
}

// blockedFirstTokens lists command names that are never permitted
// regardless of arguments.
var blockedFirstTokens = map[string]bool{
	"mkfs":     true,
	"fdisk":    true,
	"parted":   true,
	"shutdown": true,
	"reboot":   true,
	"poweroff": true,
	"halt":     true,
	"telinit":  true,
	"mkswap":   true,
	"passwd":   true,
	"visudo":   true,
}

// isBlocked reports whether command matches a blocked prefix or first
// token, after stripping a leading sudo/doas wrapper.
func isBlocked(command string) (bool, string) {
	trimmed := strings.TrimSpace(command)
	trimmed = stripPrivilegeWrapper(trimmed)

	for _, prefix := range blockedPrefixes {
		if trimmed == prefix || strings.HasPrefix(trimmed, prefix+" ") || strings.HasPrefix(trimmed, prefix) {
			return true, prefix
		}
	}

	first := firstToken(trimmed)
	if blockedFirstTokens[first] {
		return true, first
	}

	// piping a raw network fetcher straight into a shell is blocked
	// regardless of which fetcher it is.
	if looksLikeCurlPipeShell(trimmed) {
		return true, "curl|sh"
	}

	return false, ""
}

func stripPrivilegeWrapper(command string) string {
	for _, wrapper := range []string{"sudo ", "doas "} {
		if strings.HasPrefix(command, wrapper) {
			return strings.TrimSpace(strings.TrimPrefix(command, wrapper))
		}
	}
	return command
}

func firstToken(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func looksLikeCurlPipeShell(command string) bool {
	lower := strings.ToLower(command)
	hasFetch := strings.Contains(lower, "curl ") || strings.Contains(lower, "wget ")
	hasPipeToShell := strings.Contains(lower, "| sh") || strings.Contains(lower, "| bash") ||
		strings.Contains(lower, "|sh") || strings.Contains(lower, "|bash")
	return hasFetch && hasPipeToShell
}
