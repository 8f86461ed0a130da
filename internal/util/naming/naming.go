package naming

import (
	"fmt"
	"path"
	"strings"
)

// SessionSecret is the Secret holding a configuration session.
func SessionSecret(sessionID string) string {
	return fmt.Sprintf("chainfleet-session-%s", sessionID)
}

// SessionNodeSecret is the Secret holding one node's share of a session.
func SessionNodeSecret(sessionID string, node int) string {
	return fmt.Sprintf("chainfleet-session-%s-node-%d", sessionID, node)
}

// SessionObjectKey is the object key holding a configuration session.
func SessionObjectKey(prefix, sessionID string) string {
	return path.Join(strings.Trim(prefix, "/"), "sessions", sessionID+".json")
}

// Blockchain is the Blockchain resource name for a deployed cluster.
func Blockchain(clusterID string) string {
	return fmt.Sprintf("chainfleet-blockchain-%s", strings.ToLower(clusterID))
}
