package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Predecessor is one parsed predecessor reference such as "12FS+3"
type Predecessor struct {
	TaskNumber int
	Type       string
	LagDays    int
}

// ParsedTask represents a task parsed from a one-line description
type ParsedTask struct {
	Name         string
	Trade        string
	Duration     int
	Predecessors []Predecessor
	Start        *StartSpec
	Errors       []string
}

var predecessorRegex = regexp.MustCompile(`^#?(\d+)\s*(fs|ss|ff|sf)?\s*([+-]\s*\d+)?\s*d?$`)

// ParsePredecessors parses a comma separated list like "12FS+3, 14SS-2, 7".
// A missing type means FS and a missing lag means 0.
func ParsePredecessors(input string) ([]Predecessor, error) {
	out := []Predecessor{}
	for _, part := range strings.Split(input, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		m := predecessorRegex.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid predecessor %q. Use: 12, 12FS, 12SS+2 or 12FF-1", part)
		}
		number, err := strconv.Atoi(m[1])
		if err != nil || number < 1 {
			return nil, fmt.Errorf("invalid task number in %q", part)
		}
		p := Predecessor{TaskNumber: number, Type: "FS"}
		if m[2] != "" {
			p.Type = strings.ToUpper(m[2])
		}
		if m[3] != "" {
			lag, err := strconv.Atoi(strings.ReplaceAll(m[3], " ", ""))
			if err != nil {
				return nil, fmt.Errorf("invalid lag in %q", part)
			}
			p.LagDays = lag
		}
		out = append(out, p)
	}
	return out, nil
}

// FormatPredecessors is the inverse of ParsePredecessors
func FormatPredecessors(preds []Predecessor) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		s := strconv.Itoa(p.TaskNumber) + p.Type
		if p.LagDays > 0 {
			s += "+" + strconv.Itoa(p.LagDays)
		} else if p.LagDays < 0 {
			s += strconv.Itoa(p.LagDays)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// ParseTask extracts metadata from a task line using natural syntax
// Syntax: "Frame walls @carpentry dur:5 after:12FS+2,14 start:+3"
func ParseTask(input string) ParsedTask {
	result := ParsedTask{
		Name:         input,
		Predecessors: []Predecessor{},
		Errors:       []string{},
	}

	// Extract trade (@trade-name)
	tradeRegex := regexp.MustCompile(`@([a-zA-Z0-9_-]+)`)
	if m := tradeRegex.FindStringSubmatch(input); len(m) > 1 {
		result.Trade = m[1]
		input = tradeRegex.ReplaceAllString(input, "")
	}

	// Extract duration (dur:5, dur:5d)
	durRegex := regexp.MustCompile(`dur:(\S+)`)
	if m := durRegex.FindStringSubmatch(input); len(m) > 1 {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(m[1]), "d"))
		if err != nil || n < 1 {
			result.Errors = append(result.Errors, "Invalid duration '"+m[1]+"'. Use a whole number of working days")
		} else {
			result.Duration = n
		}
		input = durRegex.ReplaceAllString(input, "")
	}

	// Extract predecessors (after:12FS+2,14)
	afterRegex := regexp.MustCompile(`after:(\S+)`)
	if m := afterRegex.FindStringSubmatch(input); len(m) > 1 {
		preds, err := ParsePredecessors(m[1])
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Predecessors = preds
		}
		input = afterRegex.ReplaceAllString(input, "")
	}

	// Extract start (start:+3, start:15/12/2025)
	startRegex := regexp.MustCompile(`start:(\S+)`)
	if m := startRegex.FindStringSubmatch(input); len(m) > 1 {
		start, err := ParseStart(m[1])
		if err != nil {
			result.Errors = append(result.Errors, "Invalid start '"+m[1]+"': "+err.Error())
		} else {
			result.Start = start
		}
		input = startRegex.ReplaceAllString(input, "")
	}

	// Clean up the name (remove extra spaces)
	result.Name = strings.Join(strings.Fields(input), " ")
	return result
}
