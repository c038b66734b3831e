package seed

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

// File is a schedule described in YAML
type File struct {
	Construction Construction `yaml:"construction"`
	Holidays     []Holiday    `yaml:"holidays,omitempty"`
	HoldReasons  []string     `yaml:"hold_reasons,omitempty"`
	Tasks        []Task       `yaml:"tasks"`
}

type Construction struct {
	Name        string `yaml:"name"`
	StartDate   string `yaml:"start_date"`
	Timezone    string `yaml:"timezone,omitempty"`
	Region      string `yaml:"region,omitempty"`
	WorkingDays string `yaml:"working_days,omitempty"`
}

type Holiday struct {
	Date   string `yaml:"date"`
	Name   string `yaml:"name"`
	Region string `yaml:"region"`
}

// Task is one schedule row. After lists predecessors as "12FS+3, 14".
type Task struct {
	Number             int                         `yaml:"number,omitempty"`
	Name               string                      `yaml:"name"`
	Description        string                      `yaml:"description,omitempty"`
	Trade              string                      `yaml:"trade,omitempty"`
	Stage              string                      `yaml:"stage,omitempty"`
	Duration           int                         `yaml:"duration,omitempty"`
	Start              string                      `yaml:"start,omitempty"`
	After              string                      `yaml:"after,omitempty"`
	ManuallyPositioned bool                        `yaml:"manually_positioned,omitempty"`
	PassFail           bool                        `yaml:"pass_fail,omitempty"`
	SpawnPhoto         bool                        `yaml:"spawn_photo,omitempty"`
	SpawnScan          bool                        `yaml:"spawn_scan,omitempty"`
	OfficeTasks        []models.OfficeTaskTemplate `yaml:"office_tasks,omitempty"`
}

// Parse decodes a seed file
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if strings.TrimSpace(f.Construction.Name) == "" {
		return nil, fmt.Errorf("seed file needs construction.name")
	}
	return &f, nil
}

// Load reads and decodes a seed file from disk
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Import creates the construction, its holidays, hold reasons and tasks.
// Predecessors must refer to tasks listed earlier in the file.
func Import(ctx context.Context, e *schedule.Engine, f *File) (*models.Construction, error) {
	start, err := parser.ParseDate(f.Construction.StartDate)
	if err != nil {
		return nil, fmt.Errorf("construction.start_date: %w", err)
	}
	c := &models.Construction{
		Name:        f.Construction.Name,
		StartDate:   start,
		Timezone:    f.Construction.Timezone,
		Region:      f.Construction.Region,
		WorkingDays: f.Construction.WorkingDays,
	}
	if err := e.CreateConstruction(ctx, c); err != nil {
		return nil, err
	}

	tx := e.DB().WithContext(ctx)
	for i, h := range f.Holidays {
		date, err := parser.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holidays[%d].date: %w", i, err)
		}
		region := h.Region
		if region == "" {
			region = e.Region(c)
		}
		if err := db.CreateHoliday(tx, &models.PublicHoliday{Date: date, Name: h.Name, Region: region}); err != nil {
			return nil, fmt.Errorf("holidays[%d]: %w", i, err)
		}
	}
	for _, name := range f.HoldReasons {
		if _, err := db.FindOrCreateHoldReason(tx, name); err != nil {
			return nil, err
		}
	}

	for i, t := range f.Tasks {
		in := schedule.NewTask{
			ConstructionID:     c.ID,
			TaskNumber:         t.Number,
			Name:               t.Name,
			Description:        t.Description,
			Trade:              t.Trade,
			Stage:              t.Stage,
			DurationDays:       t.Duration,
			ManuallyPositioned: t.ManuallyPositioned,
			PassFailEnabled:    t.PassFail,
			SpawnPhotoTask:     t.SpawnPhoto,
			SpawnScanTask:      t.SpawnScan,
			SpawnOfficeTasks:   t.OfficeTasks,
			Actor:              models.SystemActor(),
		}
		if t.Start != "" {
			spec, err := parser.ParseStart(t.Start)
			if err != nil {
				return nil, fmt.Errorf("tasks[%d].start: %w", i, err)
			}
			if spec.Date != nil {
				in.StartDate = spec.Date
			} else {
				d := calendar.Day(c.StartDate).AddDate(0, 0, *spec.Offset)
				in.StartDate = &d
			}
		}
		preds, err := parser.ParsePredecessors(t.After)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d].after: %w", i, err)
		}
		in.Predecessors = schedule.LinksByNumber(preds)
		if _, err := e.CreateTask(ctx, in); err != nil {
			return nil, fmt.Errorf("tasks[%d] %q: %w", i, t.Name, err)
		}
	}
	return c, nil
}

// Export writes a job's current schedule in seed form
func Export(ctx context.Context, e *schedule.Engine, constructionID uint) (*File, error) {
	g, err := e.Graph(ctx, constructionID)
	if err != nil {
		return nil, err
	}
	c := g.Construction
	f := &File{
		Construction: Construction{
			Name:        c.Name,
			StartDate:   c.StartDate.Format("2006-01-02"),
			Timezone:    c.Timezone,
			Region:      c.Region,
			WorkingDays: c.WorkingDays,
		},
		Tasks: []Task{},
	}

	// predecessors before successors so the file imports cleanly
	order, err := schedule.ResolveAll(g)
	if err != nil {
		return nil, err
	}
	for _, id := range order {
		t, _ := g.Task(id)
		var preds []parser.Predecessor
		for _, dep := range g.Incoming(id) {
			p, _ := g.Task(dep.PredecessorTaskID)
			preds = append(preds, parser.Predecessor{TaskNumber: p.TaskNumber, Type: string(dep.DependencyType), LagDays: dep.LagDays})
		}
		sort.Slice(preds, func(i, j int) bool { return preds[i].TaskNumber < preds[j].TaskNumber })
		f.Tasks = append(f.Tasks, Task{
			Number:             t.TaskNumber,
			Name:               t.Name,
			Description:        t.Description,
			Trade:              t.Trade,
			Stage:              t.Stage,
			Duration:           t.DurationDays,
			Start:              t.StartDate.Format("2006-01-02"),
			After:              parser.FormatPredecessors(preds),
			ManuallyPositioned: t.ManuallyPositioned,
			PassFail:           t.PassFailEnabled,
			SpawnPhoto:         t.SpawnPhotoTask,
			SpawnScan:          t.SpawnScanTask,
			OfficeTasks:        t.SpawnOfficeTasks,
		})
	}
	return f, nil
}

// Marshal encodes a seed file
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}
