package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskgrid/pkg/models"
)

var (
	projectName  string
	projectSlug  string
	projectOwner string
	memberRole   string
	projectActor string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects and memberships",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectName == "" {
			return fmt.Errorf("--name is required")
		}
		if projectOwner == "" {
			return fmt.Errorf("--owner is required")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		owner, err := db.GetUser(projectOwner)
		if err != nil {
			return fmt.Errorf("load owner: %w", err)
		}
		if owner == nil {
			return fmt.Errorf("owner %s not found", projectOwner)
		}

		slug := projectSlug
		if slug == "" {
			slug = slugify(projectName)
		}

		project := &models.Project{
			ID:        uuid.NewString(),
			Name:      projectName,
			Slug:      slug,
			Status:    models.ProjectActive,
			CreatedAt: time.Now(),
		}
		if err := db.CreateProject(project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		now := time.Now()
		member := &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    owner.ID,
			Role:      models.RoleOwner,
			IsActive:  true,
			AddedAt:   now,
			UpdatedAt: now,
		}
		if err := db.UpsertMember(member); err != nil {
			return fmt.Errorf("add owner membership: %w", err)
		}

		fmt.Printf("Created project %s (%s), slug %q\n", project.Name, project.ID, project.Slug)
		return nil
	},
}

var projectAddMemberCmd = &cobra.Command{
	Use:   "add-member <project-slug> <user-id>",
	Short: "Add or re-role a project member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()
		defer logger.Sync()

		project, err := lookupProject(db, args[0])
		if err != nil {
			return err
		}
		user, err := db.GetUser(args[1])
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user %s not found", args[1])
		}
		role, err := db.GetRole(memberRole)
		if err != nil {
			return fmt.Errorf("load role: %w", err)
		}
		if role == nil {
			return fmt.Errorf("role %q not found", memberRole)
		}

		now := time.Now()
		member := &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    user.ID,
			Role:      role.Name,
			IsActive:  true,
			AddedAt:   now,
			UpdatedAt: now,
		}
		if err := db.UpsertMember(member); err != nil {
			return fmt.Errorf("upsert member: %w", err)
		}
		fmt.Printf("Added %s to %s as %s\n", user.DisplayName(), project.Name, role.Name)
		return nil
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive <project-slug>",
	Short: "Archive a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectLifecycle(args[0], "archive")
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-slug>",
	Short: "Soft-delete a project and cancel its scheduled work",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectLifecycle(args[0], "delete")
	},
}

func projectLifecycle(slug, op string) error {
	if projectActor == "" {
		return fmt.Errorf("--actor is required")
	}

	_, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	defer logger.Sync()

	project, err := lookupProject(db, slug)
	if err != nil {
		return err
	}

	eng := newEngine(db, logger)
	ctx := commandContext()
	switch op {
	case "archive":
		if err := eng.ArchiveProject(ctx, project.ID, projectActor); err != nil {
			return err
		}
		fmt.Printf("Archived project %s\n", project.Name)
	case "delete":
		if err := eng.SoftDeleteProject(ctx, project.ID, projectActor); err != nil {
			return err
		}
		fmt.Printf("Deleted project %s (soft)\n", project.Name)
	}
	return nil
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "Project name")
	projectCreateCmd.Flags().StringVar(&projectSlug, "slug", "", "URL-safe handle (derived from name when empty)")
	projectCreateCmd.Flags().StringVar(&projectOwner, "owner", "", "User ID of the project owner")

	projectAddMemberCmd.Flags().StringVar(&memberRole, "role", models.RoleDeveloper, "Role name (owner, manager, developer, observer)")

	projectArchiveCmd.Flags().StringVar(&projectActor, "actor", "", "Acting user ID")
	projectDeleteCmd.Flags().StringVar(&projectActor, "actor", "", "Acting user ID")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectAddMemberCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe handle from a project name.
func slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
