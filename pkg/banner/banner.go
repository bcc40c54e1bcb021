package banner

import (
	"fmt"

	"tpchat/pkg/config"
)

const banner = `
████████╗██████╗  ██████╗██╗  ██╗ █████╗ ████████╗
╚══██╔══╝██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
   ██║   ██████╔╝██║     ███████║███████║   ██║
   ██║   ██╔═══╝ ██║     ██╔══██║██╔══██║   ██║
   ██║   ██║     ╚██████╗██║  ██║██║  ██║   ██║
   ╚═╝   ╚═╝      ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(cfg *config.Config, source, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("App ID:    %s\n", cfg.AppID)
	fmt.Printf("Team:      %s\n", cfg.TeamSlug)
	fmt.Printf("API:       %s\n", cfg.APIBase)
	fmt.Printf("WS:        %s\n", cfg.WSBase)
	fmt.Printf("Cache:     %s\n", cfg.Storage.DBPath)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	if source != "" {
		fmt.Printf("Config:    %s\n", source)
	}
	if cfg.UserJWT != "" {
		fmt.Println("Identity:  identified")
	} else {
		fmt.Println("Identity:  anonymous")
	}
	if cfg.Retention.Enabled {
		fmt.Printf("Retention: enabled (cron=%s, max_age_days=%d)\n", cfg.Retention.Cron, cfg.Conversations.AutoDeleteAfterDays)
	} else {
		fmt.Println("Retention: disabled")
	}
	fmt.Println("\n== Logs: =================================================")
}
