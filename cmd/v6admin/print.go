package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a numeric id", arg)
	}
	return id, nil
}

func printJSON(v interface{}) error {
	return jsonOut.Encode(v)
}

func printTableRow(cells ...interface{}) error {
	var cellStrings []string
	for _, cell := range cells {
		var formatted string
		if t, ok := cell.(time.Time); ok {
			if !t.IsZero() {
				formatted = t.Format(time.RFC3339)
			}
		} else {
			formatted = fmt.Sprintf("%v", cell)
		}
		cellStrings = append(cellStrings, formatted)
	}
	_, err := fmt.Fprintln(tableOut, strings.Join(cellStrings, "\t"))
	return err
}

// statusColor renders a node or task status in a glanceable color.
func statusColor(status string) string {
	switch strings.ToLower(status) {
	case "online", "active", "completed":
		return color.GreenString(status)
	case "offline", "failed", "killed", "crashed":
		return color.RedString(status)
	case "pending", "initializing", "started":
		return color.YellowString(status)
	default:
		return status
	}
}

func printNodes(nodes []platform.Node) error {
	switch format {
	case formatJSON:
		return printJSON(nodes)
	default:
		if err := printTableRow(
			"ID",
			"NAME",
			"STATUS",
			"ORGANIZATION",
			"COLLABORATION",
			"LAST SEEN",
		); err != nil {
			return err
		}
		for _, node := range nodes {
			var lastSeen interface{}
			if node.LastSeen != nil {
				lastSeen = *node.LastSeen
			} else {
				lastSeen = ""
			}
			if err := printTableRow(
				node.ID,
				node.Name,
				statusColor(node.Status),
				node.OrganizationID,
				node.CollaborationID,
				lastSeen,
			); err != nil {
				return err
			}
		}
		return nil
	}
}

func printTasks(tasks []platform.Task) error {
	switch format {
	case formatJSON:
		return printJSON(tasks)
	default:
		if err := printTableRow(
			"ID",
			"NAME",
			"STATUS",
			"IMAGE",
			"COLLABORATION",
			"CREATED",
		); err != nil {
			return err
		}
		for _, task := range tasks {
			if err := printTableRow(
				task.ID,
				task.Name,
				statusColor(task.Status),
				task.Image,
				task.CollaborationID,
				task.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	}
}

func printRuns(runs []platform.Run) error {
	switch format {
	case formatJSON:
		return printJSON(runs)
	default:
		if err := printTableRow(
			"ID",
			"TASK",
			"NODE",
			"ORGANIZATION",
			"STATUS",
		); err != nil {
			return err
		}
		for _, run := range runs {
			if err := printTableRow(
				run.ID,
				run.TaskID,
				run.NodeID,
				run.OrganizationID,
				statusColor(run.Status),
			); err != nil {
				return err
			}
		}
		return nil
	}
}

func printRules(rules []permission.Rule) error {
	switch format {
	case formatJSON:
		return printJSON(rules)
	default:
		if err := printTableRow(
			"ID",
			"RESOURCE",
			"SCOPE",
			"OPERATION",
		); err != nil {
			return err
		}
		for _, rule := range rules {
			if err := printTableRow(
				rule.ID,
				rule.Resource,
				rule.Scope,
				rule.Operation,
			); err != nil {
				return err
			}
		}
		return nil
	}
}
