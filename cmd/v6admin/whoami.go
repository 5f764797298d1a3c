package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vantage6/console/pkg/permission"
)

func newWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display your account and effective permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := client.GetUser(ctx, creds.UserID)
			if err != nil {
				return err
			}

			// direct rules plus the rules of every assigned role
			rules := append([]permission.Rule(nil), user.Rules...)
			for _, role := range user.Roles {
				resolved := role
				if len(role.Rules) == 0 {
					roleRules, err := client.RoleRules(ctx, role.ID)
					if err != nil {
						return err
					}
					resolved.Rules = roleRules
				}
				rules = append(rules, resolved.Rules...)
			}

			if format == formatJSON {
				return printJSON(user)
			}

			fmt.Printf("Logged in as %s (user %d, organization %d) on %s\n",
				color.GreenString(user.Username), user.ID, user.OrganizationID,
				color.BlueString(creds.Server))

			if len(user.Roles) > 0 {
				fmt.Print("Roles:")
				for _, role := range user.Roles {
					fmt.Printf(" %s", color.CyanString(role.Name))
				}
				fmt.Println()
			}
			return printRules(dedupeRules(rules))
		},
	}
}

// dedupeRules drops duplicate rules while keeping first-seen order. A rule
// held directly and through a role shows up once.
func dedupeRules(rules []permission.Rule) []permission.Rule {
	seen := make(map[int64]bool, len(rules))
	out := rules[:0]
	for _, rule := range rules {
		if seen[rule.ID] {
			continue
		}
		seen[rule.ID] = true
		out = append(out, rule)
	}
	return out
}
