// Command tpchat runs the support-chat widget core as a terminal host:
// it syncs conversations, prints realtime events and sends lines typed
// on stdin as messages. Embedders use internal/app directly instead.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tpchat/internal/app"
	"tpchat/pkg/banner"
	"tpchat/pkg/config"
	"tpchat/pkg/logger"
	"tpchat/pkg/models"
	"tpchat/pkg/shutdown"
	"tpchat/pkg/widget"
)

var version = "dev" // set via ldflags during release

func main() {
	_ = godotenv.Load(".env")
	cfgVal, dbVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init("info", "text")
		shutdown.Abort("failed to load config", err, "")
	}
	if setFlags["db"] && dbVal != "" {
		cfg.Storage.DBPath = dbVal
	}

	hooks := widget.Hooks{
		OnReady: func() { fmt.Println("* widget ready") },
		OnConversationStarted: func(sessionID string) {
			fmt.Printf("* conversation started: %s\n", sessionID)
		},
		OnMessageReceived: func(m models.Message) {
			fmt.Printf("[%s] %s: %s\n", m.Created.Local().Format("15:04"), m.Sender, m.Text())
		},
		OnError: func(err error) { fmt.Printf("! %v\n", err) },
		RenderUnreadBadge: func(n int) {
			if n > 0 {
				fmt.Printf("* unread: %d\n", n)
			}
		},
		RenderAgentStatus: func(status string) { fmt.Printf("* agent %s\n", status) },
		RenderConnection: func(live bool) {
			if live {
				fmt.Println("* connected")
			} else {
				fmt.Println("* disconnected")
			}
		},
	}

	a, err := app.New(cfg, version, hooks)
	if err != nil {
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		shutdown.Abort("startup failed", err, cfg.Storage.DBPath)
	}

	srcs := []string{}
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := os.Stat(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}
	banner.Print(cfg, strings.Join(srcs, ", "), version)

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	go repl(ctx, cancel, a.Synchronizer())

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("widget failed", err, cfg.Storage.DBPath)
	}
}

// repl reads stdin: /open [id], /close, /read <id>, /quit, anything else
// is sent to the active conversation.
func repl(ctx context.Context, cancel context.CancelFunc, s *widget.Synchronizer) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			cancel()
			return
		case line == "/close":
			s.CloseActiveConversation()
		case strings.HasPrefix(line, "/read "):
			s.MarkConversationRead(strings.TrimSpace(strings.TrimPrefix(line, "/read ")))
		case strings.HasPrefix(line, "/open"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open"))
			if id == "" {
				id = "new"
			}
			if sid, err := s.OpenConversation(ctx, id); err == nil {
				fmt.Printf("* open: %s (live=%v)\n", sid, s.IsLive())
			}
		case line == "/list":
			for _, c := range s.Conversations() {
				marker := " "
				if c.Unread {
					marker = "*"
				}
				fmt.Printf("%s %s  %s\n", marker, c.SessionID, c.Summary)
			}
		default:
			if _, err := s.SendMessage(ctx, line); err != nil {
				fmt.Printf("! send failed: %v\n", err)
			}
		}
	}
}
