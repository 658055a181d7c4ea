package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hurttlocker/refinery/internal/config"
	"github.com/hurttlocker/refinery/internal/store"
)

// openStore resolves configuration and opens the resume database.
func openStore(configPath, dbPath string) (*store.SQLiteStore, error) {
	resolved, err := config.Resolve(config.ResolveOptions{
		ConfigPath: configPath,
		CLIDBPath:  dbPath,
	})
	if err != nil {
		return nil, err
	}
	s, err := store.NewStore(store.StoreConfig{DBPath: resolved.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func runSearch(args []string) error {
	var (
		q          store.SearchQuery
		configPath string
		dbPath     string
	)

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]
		var err error
		switch {
		case arg == "--skill":
			q.Skill, err = next(arg)
		case arg == "--city":
			q.City, err = next(arg)
		case arg == "--education":
			q.Education, err = next(arg)
		case arg == "--min-years":
			var v string
			if v, err = next(arg); err == nil {
				q.MinYears, err = strconv.Atoi(v)
			}
		case arg == "--config":
			configPath, err = next(arg)
		case arg == "--db":
			dbPath, err = next(arg)
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			if q.Query != "" {
				q.Query += " "
			}
			q.Query += arg
		}
		if err != nil {
			return err
		}
	}

	if q.Query == "" && q.Skill == "" && q.City == "" && q.Education == "" && q.MinYears == 0 {
		return fmt.Errorf("provide at least one search criterion")
	}

	s, err := openStore(configPath, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.SearchCandidates(context.Background(), q)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No candidates found.")
		return nil
	}

	fmt.Printf("Found %d candidate(s):\n\n", len(results))
	for _, c := range results {
		fmt.Printf("  [%d] %s | %s | %s | %s | src: %s\n",
			c.ID, orDash(c.Name), orDash(c.City), orDash(c.EducationLevel),
			orDash(c.Phone), orDash(c.SourceFile))
	}
	return nil
}

func runDetail(args []string) error {
	id, configPath, dbPath, err := idAndStoreFlags(args, "detail")
	if err != nil {
		return err
	}

	s, err := openStore(configPath, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.GetCandidate(context.Background(), id)
	if err != nil {
		return err
	}
	printDetail(c)
	return nil
}

func runList(args []string) error {
	limit, offset := 50, 0
	var configPath, dbPath string

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--limit":
			var v string
			if v, err = next(arg); err == nil {
				limit, err = strconv.Atoi(v)
			}
		case "--offset":
			var v string
			if v, err = next(arg); err == nil {
				offset, err = strconv.Atoi(v)
			}
		case "--config":
			configPath, err = next(arg)
		case "--db":
			dbPath, err = next(arg)
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return err
		}
	}

	s, err := openStore(configPath, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	listings, err := s.ListCandidates(context.Background(), limit, offset)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Println("No candidates in database.")
		return nil
	}

	fmt.Printf("Candidates (%d shown):\n\n", len(listings))
	fmt.Printf("%4s  %-16s %-10s %-10s %3s %3s %5s  Source\n",
		"ID", "Name", "City", "Education", "Exp", "Edu", "Skill")
	fmt.Println(strings.Repeat("-", 80))
	for _, l := range listings {
		fmt.Printf("%4d  %-16s %-10s %-10s %3d %3d %5d  %s\n",
			l.ID, clip(orDash(l.Name), 16), clip(orDash(l.City), 10),
			clip(orDash(l.EducationLevel), 10),
			l.ExpCount, l.EduCount, l.SkillCount,
			clip(orDash(l.SourceFile), 20))
	}
	return nil
}

func runStats(args []string) error {
	groupBy := ""
	var configPath, dbPath string

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--by":
			groupBy, err = next(arg)
		case "--config":
			configPath, err = next(arg)
		case "--db":
			dbPath, err = next(arg)
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return err
		}
	}

	s, err := openStore(configPath, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(context.Background(), groupBy)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runDelete(args []string) error {
	id, configPath, dbPath, err := idAndStoreFlags(args, "delete")
	if err != nil {
		return err
	}

	s, err := openStore(configPath, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteCandidate(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted candidate %d\n", id)
	return nil
}

// idAndStoreFlags parses `<id> [--config path] [--db path]`.
func idAndStoreFlags(args []string, command string) (id int64, configPath, dbPath string, err error) {
	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			configPath, err = next(arg)
		case arg == "--db":
			dbPath, err = next(arg)
		case strings.HasPrefix(arg, "-"):
			err = fmt.Errorf("unknown flag: %s", arg)
		default:
			id, err = strconv.ParseInt(arg, 10, 64)
		}
		if err != nil {
			return 0, "", "", err
		}
	}
	if id == 0 {
		return 0, "", "", fmt.Errorf("usage: refinery %s <id>", command)
	}
	return id, configPath, dbPath, nil
}

func printDetail(c *store.CandidateDetail) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Printf("  ID: %d  Name: %s\n", c.ID, orDash(c.Name))
	age := "-"
	if c.Age != nil {
		age = strconv.FormatInt(*c.Age, 10)
	}
	fmt.Printf("  Gender: %s  Age: %s\n", orDash(c.Gender), age)
	fmt.Printf("  Phone: %s  Email: %s\n", orDash(c.Phone), orDash(c.Email))
	fmt.Printf("  City: %s  Education: %s\n", orDash(c.City), orDash(c.EducationLevel))
	fmt.Printf("  Source: %s\n", orDash(c.SourceFile))

	if len(c.Experiences) > 0 {
		fmt.Printf("\n  -- Experiences (%d) --\n", len(c.Experiences))
		for _, e := range c.Experiences {
			duration := ""
			if e.DurationMonths != nil {
				duration = fmt.Sprintf(" (%dmo)", *e.DurationMonths)
			}
			fmt.Printf("     %s | %s | %s ~ %s%s\n",
				orDash(e.Company), orDash(e.Title), orDash(e.StartDate), orDash(e.EndDate), duration)
			if e.Description != "" {
				fmt.Printf("       %s\n", clip(e.Description, 80))
			}
		}
	}

	if len(c.Educations) > 0 {
		fmt.Printf("\n  -- Education (%d) --\n", len(c.Educations))
		for _, e := range c.Educations {
			gpa := ""
			if e.GPA != "" {
				gpa = " GPA:" + e.GPA
			}
			fmt.Printf("     %s | %s | %s%s\n", orDash(e.School), orDash(e.Major), orDash(e.Degree), gpa)
		}
	}

	if len(c.Skills) > 0 {
		fmt.Printf("\n  -- Skills (%d) --\n", len(c.Skills))
		var parts []string
		for _, sk := range c.Skills {
			p := sk.Name
			if sk.Level != "" {
				p += " [" + sk.Level + "]"
			}
			if sk.Years != nil {
				p += fmt.Sprintf(" %dyr", *sk.Years)
			}
			parts = append(parts, p)
		}
		for i := 0; i < len(parts); i += 4 {
			end := i + 4
			if end > len(parts) {
				end = len(parts)
			}
			fmt.Printf("     %s\n", strings.Join(parts[i:end], " | "))
		}
	}

	if len(c.Certifications) > 0 {
		fmt.Printf("\n  -- Certifications (%d) --\n", len(c.Certifications))
		for _, cert := range c.Certifications {
			fmt.Printf("     %s | %s | %s\n", orDash(cert.Name), orDash(cert.Issuer), orDash(cert.Date))
		}
	}

	if len(c.JobIntentions) > 0 {
		fmt.Printf("\n  -- Job Intentions (%d) --\n", len(c.JobIntentions))
		for _, ji := range c.JobIntentions {
			salary := ""
			if ji.SalaryMin != nil || ji.SalaryMax != nil {
				salary = fmt.Sprintf(" | %s-%s", orQuestion(ji.SalaryMin), orQuestion(ji.SalaryMax))
			}
			fmt.Printf("     %s | %s%s\n", orDash(ji.Position), orDash(ji.City), salary)
		}
	}

	if len(c.SelfEvaluations) > 0 {
		fmt.Println("\n  -- Self Evaluation --")
		for _, se := range c.SelfEvaluations {
			fmt.Printf("     %s\n", clip(se.Text, 200))
			if se.TraitsJSON != "" {
				var traits []string
				if err := json.Unmarshal([]byte(se.TraitsJSON), &traits); err == nil && len(traits) > 0 {
					fmt.Printf("     Traits: %s\n", strings.Join(traits, ", "))
				}
			}
		}
	}

	fmt.Println(line)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orQuestion(n *int64) string {
	if n == nil {
		return "?"
	}
	return strconv.FormatInt(*n, 10)
}

// clip truncates display strings by rune so multibyte names stay intact.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-2]) + ".."
}
