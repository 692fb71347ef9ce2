package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ganttservice/internal/gantt"
	"ganttservice/internal/model"
	"ganttservice/pkg/config"
)

// snapshotFile is the on-disk form of a chart snapshot.
type snapshotFile struct {
	// Today overrides the current day, YYYY-MM-DD
	Today     string                `json:"today"`
	Tasks     []model.Task          `json:"tasks"`
	Links     []model.TaskLink      `json:"links"`
	LinkTypes []model.LinkType      `json:"link_types"`
	Seeds     map[string]model.Seed `json:"seeds"`
}

type computeOptions struct {
	showNoDate      bool
	sameProjectOnly bool
	linkIDs         string
	timezone        string
	urlBase         string
	format          string
	ids             config.GanttConfig
}

func newComputeCmd() *cobra.Command {
	defaults := config.Defaults().Gantt
	opts := computeOptions{ids: defaults}

	cmd := &cobra.Command{
		Use:   "compute [snapshot.json|-]",
		Short: "Build a chart from a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, today, err := readSnapshot(args[0], cmd.InOrStdin(), opts.timezone)
			if err != nil {
				return err
			}
			chart := gantt.BuildChart(snap, opts.renderContext(snap, today))

			switch opts.format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(chart.Rows)
			case "table", "":
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(chart.Rows))
				if len(chart.Shifted) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "shifted by blockers: %s\n", intsCSV(chart.Shifted))
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table or json)", opts.format)
			}
		},
	}

	cmd.Flags().BoolVar(&opts.showNoDate, "show-no-date", false, "include tasks without persisted dates")
	cmd.Flags().BoolVar(&opts.sameProjectOnly, "same-project-only", false, "ignore links to other projects")
	cmd.Flags().StringVar(&opts.linkIDs, "link-ids", "", "link type ids drawn as arrows (comma-separated)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", defaults.Timezone, "timezone of the chart days")
	cmd.Flags().StringVar(&opts.urlBase, "url-base", defaults.TaskURLBase, "task url format, receives project id and task id")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table, json")
	cmd.Flags().IntVar(&opts.ids.ParentOfLinkID, "parent-of", defaults.ParentOfLinkID, "\"is a parent of\" link type id")
	cmd.Flags().IntVar(&opts.ids.ChildOfLinkID, "child-of", 0, "\"is a child of\" link type id, resolved from the catalog when 0")
	cmd.Flags().IntVar(&opts.ids.BlocksLinkID, "blocks", defaults.BlocksLinkID, "\"blocks\" link type id")
	cmd.Flags().IntVar(&opts.ids.BlockedByLinkID, "blocked-by", 0, "\"is blocked by\" link type id, resolved from the catalog when 0")
	return cmd
}

func (o computeOptions) renderContext(snap gantt.Snapshot, today time.Time) gantt.RenderContext {
	childOf := o.ids.ChildOfLinkID
	if childOf == 0 {
		childOf = oppositeIn(snap.LinkTypes, o.ids.ParentOfLinkID)
	}
	blockedBy := o.ids.BlockedByLinkID
	if blockedBy == 0 {
		blockedBy = oppositeIn(snap.LinkTypes, o.ids.BlocksLinkID)
	}

	var ids []int
	for _, part := range strings.Split(o.linkIDs, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}

	base := o.urlBase
	return gantt.RenderContext{
		Today:             today,
		ShowNoDate:        o.showNoDate,
		DependencyTypeIDs: ids,
		SameProjectOnly:   o.sameProjectOnly,
		Hierarchy:         gantt.HierarchyLinkIDs{ParentOf: o.ids.ParentOfLinkID, ChildOf: childOf},
		Blocking:          gantt.BlockingLinkIDs{Blocks: o.ids.BlocksLinkID, BlockedBy: blockedBy},
		TaskURL: func(projectID, taskID int) string {
			if base == "" {
				return ""
			}
			return fmt.Sprintf(base, projectID, taskID)
		},
	}
}

// oppositeIn looks id up in the catalog; a type without an opposite is its
// own opposite.
func oppositeIn(types []model.LinkType, id int) int {
	for _, lt := range types {
		if lt.ID == id {
			if lt.OppositeID > 0 {
				return lt.OppositeID
			}
			return id
		}
	}
	return 0
}

func readSnapshot(path string, stdin io.Reader, timezone string) (gantt.Snapshot, time.Time, error) {
	var snap gantt.Snapshot

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return snap, time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return snap, time.Time{}, err
		}
		defer f.Close()
		r = f
	}

	var file snapshotFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return snap, time.Time{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	today := gantt.Day(time.Now(), loc)
	if file.Today != "" {
		if today, err = gantt.ParseDay(file.Today, loc); err != nil {
			return snap, time.Time{}, fmt.Errorf("invalid today %q: %w", file.Today, err)
		}
	}

	snap.Tasks = file.Tasks
	snap.Links = file.Links
	snap.LinkTypes = file.LinkTypes
	snap.Seeds = make(map[int]model.Seed, len(file.Seeds))
	for key, seed := range file.Seeds {
		id, err := strconv.Atoi(key)
		if err != nil || id <= 0 {
			continue
		}
		snap.Seeds[id] = seed
	}
	return snap, today, nil
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func renderTable(rows []model.ChartRow) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{
			strconv.Itoa(r.RowIndex),
			r.ID,
			strings.Repeat("  ", r.Level) + r.Name,
			r.Start,
			r.End,
			strconv.Itoa(r.Progress) + "%",
			r.Dependencies,
			r.CustomClass,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("#", "ID", "Task", "Start", "End", "Done", "Deps", "Class").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < len(rows) && strings.Contains(rows[row].CustomClass, gantt.ClassBlockedStart) && col == 3 {
				return blockedStyle
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

func intsCSV(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
