package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type DingTalkConfig struct {
	Enabled   bool     `json:"enabled"`
	ClientID  string   `json:"clientId"`
	AppSecret string   `json:"appSecret"`
	RobotCode string   `json:"robotCode"`
	AllowFrom []string `json:"allowFrom"`
}

type FeishuConfig struct {
	Enabled           bool     `json:"enabled"`
	AppID             string   `json:"appId"`
	AppSecret         string   `json:"appSecret"`
	EncryptKey        string   `json:"encryptKey"`
	VerificationToken string   `json:"verificationToken"`
	AllowFrom         []string `json:"allowFrom"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	DingTalk DingTalkConfig `json:"dingtalk"`
	Feishu   FeishuConfig   `json:"feishu"`
}

// RecipientConfig describes one person on the check-in roster.
type RecipientConfig struct {
	ID      string `json:"id"`
	Channel string `json:"channel"` // telegram, dingtalk, feishu
	ChatID  string `json:"chatId"`
	Enabled bool   `json:"enabled"`
	// LateNight opts the recipient into the late-night window for
	// randomized check-ins.
	LateNight bool `json:"lateNight"`
	// RandomCheckins caps how many randomized check-ins the recipient
	// wants per day. 0 means no preference (take what the windows give).
	RandomCheckins int `json:"randomCheckins"`
	// QuietStart/QuietEnd override the global quiet hours for this
	// recipient. A window that wraps midnight (start > end) is allowed.
	QuietStart string `json:"quietStart,omitempty"`
	QuietEnd   string `json:"quietEnd,omitempty"`
}

type SchedulerConfig struct {
	ScheduleFile          string  `json:"scheduleFile"`
	JitterMinutes         int     `json:"jitterMinutes"`
	QuietStart            string  `json:"quietStart"`
	QuietEnd              string  `json:"quietEnd"`
	ResponseWindowMinutes int     `json:"responseWindowMinutes"`
	FollowUpMinutes       int     `json:"followUpMinutes"`
	SweepMinutes          int     `json:"sweepMinutes"`
	MinSpacingHours       float64 `json:"minSpacingHours"`
	// RandomCheckins enables the randomized-window scheduler on weekdays.
	RandomCheckins bool `json:"randomCheckins"`
	// RebuildSpec is the cron expression for the daily re-materialization.
	RebuildSpec string `json:"rebuildSpec"`
}

type Config struct {
	Workspace string            `json:"workspace"`
	Scheduler SchedulerConfig   `json:"scheduler"`
	Channels  ChannelsConfig    `json:"channels"`
	Roster    []RecipientConfig `json:"roster"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workspace: ".ritmo/workspace",
		Scheduler: SchedulerConfig{
			ScheduleFile:          "schedule.yaml",
			JitterMinutes:         7,
			QuietStart:            "07:30",
			QuietEnd:              "22:30",
			ResponseWindowMinutes: 120,
			FollowUpMinutes:       15,
			SweepMinutes:          5,
			MinSpacingHours:       3,
			RandomCheckins:        true,
			RebuildSpec:           "5 0 * * *",
		},
	}
}

// LoadConfig loads the configuration from the given path. Missing file is
// not an error: defaults are returned so onboarding stays a one-step affair.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(".ritmo", "config.json")
	}

	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
