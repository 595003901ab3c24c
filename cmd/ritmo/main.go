package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ritmohq/ritmo-go/pkg/bus"
	"github.com/ritmohq/ritmo-go/pkg/channels"
	"github.com/ritmohq/ritmo-go/pkg/config"
	"github.com/ritmohq/ritmo-go/pkg/prompts"
	"github.com/ritmohq/ritmo-go/pkg/roster"
	"github.com/ritmohq/ritmo-go/pkg/router"
	"github.com/ritmohq/ritmo-go/pkg/schedule"
	"github.com/ritmohq/ritmo-go/pkg/tracker"
	"github.com/ritmohq/ritmo-go/pkg/utils"
	"github.com/ritmohq/ritmo-go/pkg/workitems"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ritmo <command> [args]")
		fmt.Println("Commands: run, onboard")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runBot(os.Args[2:])
	case "onboard":
		runOnboard()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func runBot(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("c", "", "Path to config file")
	fs.Parse(args)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	workspace := expandPath(cfg.Workspace)
	log := utils.SetupLogger(filepath.Join(workspace, "logs"))
	defer log.Sync()

	quietStart, err := schedule.ParseTimeOfDay(cfg.Scheduler.QuietStart)
	if err != nil {
		log.Fatalw("Bad quietStart in config", "error", err)
	}
	quietEnd, err := schedule.ParseTimeOfDay(cfg.Scheduler.QuietEnd)
	if err != nil {
		log.Fatalw("Bad quietEnd in config", "error", err)
	}

	// Relative schedule paths resolve next to the config file.
	schedulePath := expandPath(cfg.Scheduler.ScheduleFile)
	if !filepath.IsAbs(schedulePath) {
		schedulePath = filepath.Join(configDirOf(*configPath), schedulePath)
	}
	table, windows, err := schedule.LoadScheduleFile(schedulePath, log)
	if err != nil {
		log.Fatalw("Failed to load schedule file", "path", schedulePath, "error", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	messageBus := bus.NewMessageBus(log)
	mux := channels.NewMux()

	active := startChannels(cfg, messageBus, mux, log)
	if active == 0 {
		log.Warnw("No channels enabled; prompts will fail to send until one is configured")
	}

	tr := tracker.New(time.Duration(cfg.Scheduler.SweepMinutes)*time.Minute, log)
	jobs := schedule.NewScheduler(log)
	texts := prompts.NewStaticProvider(rand.New(rand.NewSource(time.Now().UnixNano() + 1)))
	people := roster.FromConfig(cfg.Roster, quietStart, quietEnd, log)

	followUp := schedule.NewFollowUp(jobs, tr, mux, texts, time.Duration(cfg.Scheduler.FollowUpMinutes)*time.Minute, log)
	orch := schedule.NewOrchestrator(
		schedule.OrchestratorConfig{
			JitterMinutes:  cfg.Scheduler.JitterMinutes,
			QuietStart:     quietStart,
			QuietEnd:       quietEnd,
			ResponseWindow: time.Duration(cfg.Scheduler.ResponseWindowMinutes) * time.Minute,
			FollowUpDelay:  time.Duration(cfg.Scheduler.FollowUpMinutes) * time.Minute,
			MinSpacing:     time.Duration(cfg.Scheduler.MinSpacingHours * float64(time.Hour)),
			RandomCheckins: cfg.Scheduler.RandomCheckins,
			RebuildSpec:    cfg.Scheduler.RebuildSpec,
		},
		schedule.Deps{
			Jobs:     jobs,
			Tracker:  tr,
			FollowUp: followUp,
			Sender:   mux,
			Roster:   people,
			Prefs:    people,
			Texts:    texts,
			Table:    table,
			Windows:  windows,
		},
		rng,
		log,
	)

	repo := workitems.NewMemoryStore()
	replies := router.NewCheckinReplyHandler(messageBus, repo, texts, log)
	commands := router.NewBotCommandHandler(messageBus, repo, people, orch, log)
	rt := router.New(messageBus, tr, people, replies, commands, log)

	jobs.Start()
	defer jobs.Stop()

	if err := orch.Start(); err != nil {
		log.Fatalw("Failed to start orchestrator", "error", err)
	}

	go messageBus.DispatchOutbound()
	go rt.Run()
	defer rt.Stop()

	log.Infow("ritmo running", "recipients", len(people.ActiveRecipients()), "channels", active)
	select {}
}

// startChannels starts every enabled channel, registers it with the mux for
// synchronous sends, and subscribes it for outbound bus traffic. Returns
// how many channels came up.
func startChannels(cfg *config.Config, messageBus *bus.MessageBus, mux *channels.Mux, log *zap.SugaredLogger) int {
	var all []channels.Channel
	if cfg.Channels.Telegram.Enabled {
		all = append(all, channels.NewTelegramChannel(&cfg.Channels.Telegram, messageBus, log))
	}
	if cfg.Channels.DingTalk.Enabled {
		all = append(all, channels.NewDingTalkChannel(&cfg.Channels.DingTalk, messageBus, log))
	}
	if cfg.Channels.Feishu.Enabled {
		all = append(all, channels.NewFeishuChannel(&cfg.Channels.Feishu, messageBus, log))
	}

	active := 0
	for _, ch := range all {
		ch := ch
		if err := ch.Start(); err != nil {
			log.Errorw("Failed to start channel", "channel", ch.Name(), "error", err)
			continue
		}
		mux.Register(ch)
		messageBus.SubscribeOutbound(ch.Name(), func(msg bus.OutboundMessage) {
			if _, err := ch.Send(msg); err != nil {
				log.Errorw("Failed to deliver outbound message", "channel", ch.Name(), "error", err)
			}
		})
		active++
	}
	return active
}

func configDirOf(path string) string {
	if path == "" {
		return ".ritmo"
	}
	return filepath.Dir(path)
}

func runOnboard() {
	configDir := ".ritmo"
	if err := os.MkdirAll(configDir, 0755); err != nil {
		fmt.Printf("Error creating config directory: %v\n", err)
		os.Exit(1)
	}

	configFile := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		if abs, err := filepath.Abs(filepath.Join(configDir, "workspace")); err == nil {
			cfg.Workspace = abs
		} else {
			cfg.Workspace = filepath.Join(configDir, "workspace")
		}

		file, err := os.Create(configFile)
		if err != nil {
			fmt.Printf("Warning: Could not create config file: %v\n", err)
		} else {
			defer file.Close()
			encoder := json.NewEncoder(file)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(cfg); err != nil {
				fmt.Printf("Error writing config file: %v\n", err)
			}
			fmt.Printf("Created config file at %s\n", configFile)
		}
	} else {
		fmt.Printf("Config file already exists at %s\n", configFile)
	}

	schedulePath := filepath.Join(configDir, "schedule.yaml")
	if _, err := os.Stat(schedulePath); os.IsNotExist(err) {
		if err := os.WriteFile(schedulePath, []byte(schedule.DefaultScheduleYAML), 0644); err != nil {
			fmt.Printf("Error writing schedule file: %v\n", err)
		} else {
			fmt.Printf("Created schedule file at %s\n", schedulePath)
		}
	} else {
		fmt.Printf("Schedule file already exists at %s\n", schedulePath)
	}

	workspace := filepath.Join(configDir, "workspace")
	if err := os.MkdirAll(workspace, 0755); err != nil {
		fmt.Printf("Error creating workspace: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created workspace at %s\n", workspace)

	fmt.Println("Onboarding complete! Edit .ritmo/config.json to add channel credentials and your roster.")
}
