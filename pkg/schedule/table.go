package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Prompt kinds for table-driven check-ins. Randomized check-ins use their
// window name as the kind instead.
const (
	KindPlanning   = "planning"
	KindStatus     = "status"
	KindClosing    = "closing"
	KindReflection = "reflection"
	KindDigest     = "digest"
	KindFollowUp   = "followup"
	KindAck        = "ack"
)

// KnownKind reports whether name is a prompt kind the weekday table may
// reference.
func KnownKind(name string) bool {
	switch name {
	case KindPlanning, KindStatus, KindClosing, KindReflection, KindDigest:
		return true
	}
	return false
}

// TableEntry is one base event in a weekday row.
type TableEntry struct {
	Name string
	At   TimeOfDay
}

// WeekdayTable maps each weekday to its ordered base events.
type WeekdayTable map[time.Weekday][]TableEntry

type scheduleFile struct {
	Weekdays map[string][]struct {
		Name string `yaml:"name"`
		At   string `yaml:"at"`
	} `yaml:"weekdays"`
	Windows []struct {
		Name        string  `yaml:"name"`
		Start       string  `yaml:"start"`
		End         string  `yaml:"end"`
		Probability float64 `yaml:"probability"`
		Always      bool    `yaml:"always"`
		OptIn       bool    `yaml:"optIn"`
	} `yaml:"windows"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadScheduleFile reads the YAML schedule table: the per-weekday base
// events and the window catalog. Malformed entries are logged and skipped;
// they never fail the load.
func LoadScheduleFile(path string, log *zap.SugaredLogger) (WeekdayTable, []TimeWindow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read schedule file: %w", err)
	}

	var raw scheduleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse schedule file %s: %w", path, err)
	}

	table := WeekdayTable{}
	for dayName, entries := range raw.Weekdays {
		day, ok := weekdayNames[strings.ToLower(dayName)]
		if !ok {
			log.Warnw("Skipping unknown weekday in schedule file", "weekday", dayName)
			continue
		}
		for _, e := range entries {
			at, err := ParseTimeOfDay(e.At)
			if err != nil {
				log.Warnw("Skipping malformed schedule entry", "weekday", dayName, "event", e.Name, "error", err)
				continue
			}
			table[day] = append(table[day], TableEntry{Name: e.Name, At: at})
		}
	}

	var windows []TimeWindow
	for _, w := range raw.Windows {
		start, errS := ParseTimeOfDay(w.Start)
		end, errE := ParseTimeOfDay(w.End)
		if errS != nil || errE != nil {
			log.Warnw("Skipping malformed time window", "window", w.Name, "start", w.Start, "end", w.End)
			continue
		}
		win := TimeWindow{
			Name:          w.Name,
			Start:         start,
			End:           end,
			Probability:   w.Probability,
			AlwaysInclude: w.Always,
			OptIn:         w.OptIn,
		}
		if err := win.Validate(); err != nil {
			log.Warnw("Skipping invalid time window", "window", w.Name, "error", err)
			continue
		}
		windows = append(windows, win)
	}

	return table, windows, nil
}

// DefaultScheduleYAML is written by onboarding as a starting point.
const DefaultScheduleYAML = `# Base check-in times per weekday. Times get a small random jitter and are
# clamped into quiet hours before scheduling.
weekdays:
  monday: &workday
    - {name: planning, at: "08:00"}
    - {name: status, at: "13:30"}
    - {name: closing, at: "18:00"}
    - {name: reflection, at: "21:30"}
  tuesday: *workday
  wednesday: *workday
  thursday: *workday
  friday:
    - {name: planning, at: "08:00"}
    - {name: status, at: "13:30"}
    - {name: closing, at: "17:00"}
  saturday:
    - {name: digest, at: "10:30"}
  sunday:
    - {name: digest, at: "19:00"}

# Named bands for randomized weekday check-ins.
windows:
  - {name: morning, start: "09:30", end: "11:30", probability: 1.0, always: true}
  - {name: afternoon, start: "14:30", end: "17:00", probability: 0.6}
  - {name: evening, start: "19:00", end: "21:00", probability: 0.4}
  - {name: late-night, start: "22:00", end: "23:30", probability: 0.25, optIn: true}
`
