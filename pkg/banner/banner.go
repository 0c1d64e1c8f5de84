package banner

import (
	"fmt"
)

const banner = `
███╗   ███╗███████╗███████╗████████╗██╗   ██╗██████╗
████╗ ████║██╔════╝██╔════╝╚══██╔══╝██║   ██║██╔══██╗
██╔████╔██║█████╗  █████╗     ██║   ██║   ██║██████╔╝
██║╚██╔╝██║██╔══╝  ██╔══╝     ██║   ██║   ██║██╔═══╝
██║ ╚═╝ ██║███████╗███████╗   ██║   ╚██████╔╝██║
╚═╝     ╚═╝╚══════╝╚══════╝   ╚═╝    ╚═════╝ ╚═╝
`

// Print shows the dev backend startup banner with the resolved runtime
// settings and a short endpoint reference.
func Print(addr, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /health         - liveness probe")
	fmt.Println("POST /create_meetup  - create an event, returns invite token + deep link")
	fmt.Println("POST /accept_invite  - redeem an invite token")
	fmt.Println("POST /soft_ban       - apply a moderation restriction")
	fmt.Println("POST /send_message   - deliver a chat/announcement message")
	fmt.Println("POST /get_messages   - paged fetch {limit, offset}")
	fmt.Println("POST /report         - submit a moderation report")
	fmt.Println("POST /meetup_snapshot - membership snapshot for guard checks")
	fmt.Println("POST /report_count   - windowed report count for soft-ban checks")
	fmt.Println("GET  /metrics        - prometheus metrics")
	fmt.Println("GET  /docs/          - API docs")
}
