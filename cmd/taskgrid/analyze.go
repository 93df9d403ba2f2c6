package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskgrid/internal/edgestore"
	"taskgrid/internal/graphalg"
	"taskgrid/internal/store"
	"taskgrid/pkg/models"
)

var (
	analyzeDump string
	analyzeLoad string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project-slug>",
	Short: "Run graph analysis on a project's dependencies",
	Long: `Build a binary edge container from the project's dependency
rows and report on the graph: topological order, cycles, strongly
connected components and the critical path.

With --dump, the edge container is also written to a file; --load
analyzes a previously dumped file instead of the database (task names
are unavailable in that mode).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDump, "dump", "", "Write the binary edge container to this file")
	analyzeCmd.Flags().StringVar(&analyzeLoad, "load", "", "Analyze a dumped edge container instead of a project")
}

// edgeSchema is the fixed layout of analysis dumps: two u32 endpoints
// and a u32 duration weight per edge.
func edgeSchema() (*edgestore.Store, error) {
	schema, err := edgestore.NewSchema([]edgestore.Field{
		{Name: "source", DType: edgestore.U32},
		{Name: "target", DType: edgestore.U32},
		{Name: edgestore.WeightField, DType: edgestore.U32},
	})
	if err != nil {
		return nil, err
	}
	return edgestore.New(schema, "source", "target")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeLoad != "" {
		return analyzeDumpFile(analyzeLoad)
	}
	if len(args) == 0 {
		return fmt.Errorf("a project slug or --load is required")
	}

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
	tasks, err := db.ProjectTasks(project.ID, store.TaskFilter{})
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	deps, err := db.ProjectDependencies(project.ID)
	if err != nil {
		return fmt.Errorf("load dependencies: %w", err)
	}

	// Stable vertex numbering: tasks in listing order.
	index := make(map[string]int64, len(tasks))
	names := make(map[int64]string, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = int64(i)
		names[int64(i)] = tasks[i].Name
	}

	es, err := edgeSchema()
	if err != nil {
		return err
	}
	for i := range deps {
		src, okS := index[deps[i].SourceTaskID]
		dst, okT := index[deps[i].TargetTaskID]
		if !okS || !okT {
			continue
		}
		// Weight favors chains through higher-priority sources.
		weight := int64(1 + taskPriorityOf(tasks, deps[i].SourceTaskID))
		if _, err := es.AddEdge(map[string]int64{
			"source": src, "target": dst, edgestore.WeightField: weight,
		}); err != nil {
			return fmt.Errorf("add edge: %w", err)
		}
	}

	if analyzeDump != "" {
		f, err := os.Create(analyzeDump)
		if err != nil {
			return fmt.Errorf("create dump: %w", err)
		}
		defer f.Close()
		if _, err := es.WriteTo(f); err != nil {
			return fmt.Errorf("write dump: %w", err)
		}
		fmt.Printf("Wrote %d edges to %s\n", es.NumEdges(), analyzeDump)
	}

	adj := es.Adjacency()
	// Tasks without edges still belong to the graph.
	for i := range tasks {
		adj.AddVertex(int64(i))
	}

	fmt.Printf("Project: %s\n", project.Name)
	report(adj, func(v int64) string {
		if name, ok := names[v]; ok {
			return name
		}
		return fmt.Sprintf("#%d", v)
	})
	return nil
}

func analyzeDumpFile(path string) error {
	es, err := edgeSchema()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	if _, err := es.ReadFrom(f); err != nil {
		return fmt.Errorf("read dump: %w", err)
	}

	fmt.Printf("Dump: %s (%d edges)\n", path, es.NumEdges())
	report(es.Adjacency(), func(v int64) string {
		return fmt.Sprintf("#%d", v)
	})
	return nil
}

// report prints the graph analysis for one adjacency view.
func report(adj *graphalg.Adjacency, label func(int64) string) {
	fmt.Printf("  Vertices: %d\n", adj.NumVertices())

	cyclic, approx := graphalg.HasCycle(adj, graphalg.DefaultCycleLimit)
	if cyclic {
		fmt.Printf("  %s (~%d found)\n", color.RedString("Cycles detected"), approx)
		for _, cycle := range graphalg.SampleCycles(adj, graphalg.SampleOptions{MaxCycles: 5}) {
			parts := make([]string, len(cycle))
			for i, v := range cycle {
				parts[i] = label(v)
			}
			fmt.Printf("    %s\n", strings.Join(parts, " -> "))
		}

		sccs := graphalg.StronglyConnectedComponents(adj)
		nontrivial := 0
		for _, comp := range sccs {
			if len(comp) > 1 {
				nontrivial++
			}
		}
		fmt.Printf("  Strongly connected components: %d (%d non-trivial)\n", len(sccs), nontrivial)
		return
	}
	fmt.Printf("  %s\n", color.GreenString("No cycles"))

	order, err := graphalg.TopologicalSort(adj)
	if err == nil {
		parts := make([]string, len(order))
		for i, v := range order {
			parts[i] = label(v)
		}
		fmt.Printf("  Topological order: %s\n", strings.Join(parts, " -> "))
	}

	total, path, err := graphalg.CriticalPath(adj)
	if err == nil && len(path) > 1 {
		parts := make([]string, len(path))
		for i, v := range path {
			parts[i] = label(v)
		}
		fmt.Printf("  Critical path (weight %d): %s\n", total, strings.Join(parts, " -> "))
	}
}

// taskPriorityOf returns the priority of the task with the given ID.
func taskPriorityOf(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return tasks[i].Priority
		}
	}
	return 0
}
