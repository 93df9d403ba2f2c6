package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskgrid/internal/engine"
	"taskgrid/pkg/models"
)

// seedFile is the YAML layout consumed by the import command. Users,
// tasks and dependencies reference each other by name within the file.
type seedFile struct {
	Users []struct {
		Username  string `yaml:"username"`
		Superuser bool   `yaml:"superuser"`
	} `yaml:"users"`
	Project struct {
		Name  string `yaml:"name"`
		Slug  string `yaml:"slug"`
		Owner string `yaml:"owner"`
	} `yaml:"project"`
	Members []struct {
		User string `yaml:"user"`
		Role string `yaml:"role"`
	} `yaml:"members"`
	Tasks []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Assignee    string `yaml:"assignee"`
		Priority    int    `yaml:"priority"`
		Deadline    string `yaml:"deadline"`
	} `yaml:"tasks"`
	Dependencies []struct {
		Source  string `yaml:"source"`
		Target  string `yaml:"target"`
		Actions []struct {
			Type         string `yaml:"type"`
			TargetUser   string `yaml:"target_user"`
			TargetStatus string `yaml:"target_status"`
			Template     string `yaml:"template"`
			Delay        int    `yaml:"delay"`
			Order        int    `yaml:"order"`
		} `yaml:"actions"`
	} `yaml:"dependencies"`
}

var importCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Seed a project from a YAML file",
	Long: `Create users, a project, its members, tasks, dependencies and
action rules from one YAML file. All writes go through the engine, so
the seed is validated exactly like interactive use: cycles, missing
assignees and invalid actions are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if seed.Project.Name == "" || seed.Project.Owner == "" {
		return fmt.Errorf("seed file needs a project with a name and an owner")
	}

	_, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	defer logger.Sync()

	// Seeding on a fresh database should not require a prior init.
	if err := db.SeedDefaultRoles(); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	userIDs := make(map[string]string, len(seed.Users))
	for _, u := range seed.Users {
		user := &models.User{
			ID:          uuid.NewString(),
			Username:    u.Username,
			IsActive:    true,
			IsSuperuser: u.Superuser,
		}
		if err := db.CreateUser(user); err != nil {
			return fmt.Errorf("create user %s: %w", u.Username, err)
		}
		userIDs[u.Username] = user.ID
	}

	ownerID, ok := userIDs[seed.Project.Owner]
	if !ok {
		return fmt.Errorf("owner %q is not in the users list", seed.Project.Owner)
	}

	slug := seed.Project.Slug
	if slug == "" {
		slug = slugify(seed.Project.Name)
	}
	project := &models.Project{
		ID:        uuid.NewString(),
		Name:      seed.Project.Name,
		Slug:      slug,
		Status:    models.ProjectActive,
		CreatedAt: time.Now(),
	}
	if err := db.CreateProject(project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	now := time.Now()
	addMember := func(userID, role string) error {
		return db.UpsertMember(&models.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      role,
			IsActive:  true,
			AddedAt:   now,
			UpdatedAt: now,
		})
	}
	if err := addMember(ownerID, models.RoleOwner); err != nil {
		return fmt.Errorf("add owner: %w", err)
	}
	for _, m := range seed.Members {
		userID, ok := userIDs[m.User]
		if !ok {
			return fmt.Errorf("member %q is not in the users list", m.User)
		}
		role := m.Role
		if role == "" {
			role = models.RoleDeveloper
		}
		if err := addMember(userID, role); err != nil {
			return fmt.Errorf("add member %s: %w", m.User, err)
		}
	}

	eng := newEngine(db, logger)
	ctx := commandContext()

	taskIDs := make(map[string]string, len(seed.Tasks))
	for _, t := range seed.Tasks {
		req := engine.CreateTaskRequest{
			ProjectID:   project.ID,
			ActorID:     ownerID,
			Name:        t.Name,
			Description: t.Description,
			Priority:    t.Priority,
		}
		if t.Assignee != "" {
			assigneeID, ok := userIDs[t.Assignee]
			if !ok {
				return fmt.Errorf("assignee %q of task %q is not in the users list", t.Assignee, t.Name)
			}
			req.AssigneeID = assigneeID
		}
		if t.Deadline != "" {
			deadline, err := parseDeadline(t.Deadline)
			if err != nil {
				return err
			}
			req.Deadline = &deadline
		}
		task, err := eng.CreateTask(ctx, req)
		if err != nil {
			return fmt.Errorf("create task %q: %w", t.Name, err)
		}
		taskIDs[t.Name] = task.ID
	}

	actions := 0
	for _, d := range seed.Dependencies {
		sourceID, ok := taskIDs[d.Source]
		if !ok {
			return fmt.Errorf("dependency source %q is not in the tasks list", d.Source)
		}
		targetID, ok := taskIDs[d.Target]
		if !ok {
			return fmt.Errorf("dependency target %q is not in the tasks list", d.Target)
		}
		dep, err := eng.CreateDependency(ctx, sourceID, targetID, ownerID, "")
		if err != nil {
			return fmt.Errorf("create dependency %s -> %s: %w", d.Source, d.Target, err)
		}
		for _, a := range d.Actions {
			req := engine.AddActionRequest{
				DependencyID:    dep.ID,
				ActorID:         ownerID,
				Type:            models.ActionType(a.Type),
				TargetStatus:    models.Status(a.TargetStatus),
				MessageTemplate: a.Template,
				DelayMinutes:    a.Delay,
				ExecuteOrder:    a.Order,
			}
			if a.TargetUser != "" {
				targetUserID, ok := userIDs[a.TargetUser]
				if !ok {
					return fmt.Errorf("action target user %q is not in the users list", a.TargetUser)
				}
				req.TargetUserID = targetUserID
			}
			if _, err := eng.AddDependencyAction(ctx, req); err != nil {
				return fmt.Errorf("add action on %s -> %s: %w", d.Source, d.Target, err)
			}
			actions++
		}
	}

	fmt.Printf("Imported project %s (%s): %d users, %d tasks, %d dependencies, %d actions\n",
		project.Name, project.Slug, len(seed.Users), len(seed.Tasks), len(seed.Dependencies), actions)
	return nil
}
