package tracker

import (
	"fmt"
	"strings"

	"github.com/edgard/xeretabot/internal/database"
)

// FormatStats renders the shadow cache counters as a stats digest, shared
// by the /stats command and the scheduled stats report.
func FormatStats(stats *database.Stats) string {
	var sb strings.Builder
	sb.WriteString("📊 Shadow cache statistics\n\n")
	fmt.Fprintf(&sb, "🗑️ Deleted messages: %d\n", stats.DeletedMessages)
	fmt.Fprintf(&sb, "👥 Users with deletions: %d\n", stats.UsersWithDeletions)
	fmt.Fprintf(&sb, "💬 Active messages tracked: %d\n", stats.ActiveMessages)
	fmt.Fprintf(&sb, "🏠 Unique chats: %d", stats.UniqueChats)
	return sb.String()
}
