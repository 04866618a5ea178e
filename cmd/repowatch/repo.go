package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"repowatch/internal/backends/git"
	"repowatch/internal/errors"
	"repowatch/internal/paths"
	"repowatch/internal/scheduler"
	"repowatch/internal/storage"

	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage tracked repositories",
	Long: `Manage the repositories repowatch scans.

A repository is referenced by its id, name or path. Newly added
repositories are not scanned automatically until enabled.`,
}

var repoAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Track a repository",
	Long: `Track a git repository.

If path is omitted, uses the current working directory.
If --name is omitted, uses the directory name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepoAdd,
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked repositories",
	RunE:  runRepoList,
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <repo>",
	Short: "Stop tracking a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoRemove,
}

var repoEnableCmd = &cobra.Command{
	Use:   "enable <repo>",
	Short: "Enable automatic scanning",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoEnable,
}

var repoDisableCmd = &cobra.Command{
	Use:   "disable <repo>",
	Short: "Disable automatic scanning",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoDisable,
}

var repoRescanCmd = &cobra.Command{
	Use:   "rescan <repo>",
	Short: "Make a repository due on the next scheduler wake",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoRescan,
}

var (
	repoAddName     string
	repoAddInterval string
	repoEnableEvery string
	repoListJSON    bool
)

func init() {
	rootCmd.AddCommand(repoCmd)

	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoEnableCmd)
	repoCmd.AddCommand(repoDisableCmd)
	repoCmd.AddCommand(repoRescanCmd)

	repoAddCmd.Flags().StringVar(&repoAddName, "name", "", "Repository name (default: directory name)")
	repoAddCmd.Flags().StringVar(&repoAddInterval, "interval", "", "Scan interval, e.g. 15m, 2h, 1d (default from config)")
	repoEnableCmd.Flags().StringVar(&repoEnableEvery, "interval", "", "Scan interval, e.g. 15m, 2h, 1d (default from config)")
	repoListCmd.Flags().BoolVar(&repoListJSON, "json", false, "Output as JSON")
}

func runRepoAdd(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	resolved, err := paths.ResolveRepoPath(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	name := repoAddName
	if name == "" {
		name = filepath.Base(resolved)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	interval := a.config.Scheduler.DefaultScanIntervalMinutes
	if repoAddInterval != "" {
		if interval, err = scheduler.ParseInterval(repoAddInterval); err != nil {
			return err
		}
	}

	ctx := newContext()
	root, err := workTreeRoot(ctx, a.git, resolved)
	if err != nil {
		return err
	}

	repo, err := a.repos.Add(ctx, name, resolved, interval)
	if err != nil {
		return err
	}

	fmt.Printf("Added %s\n", repo.Name)
	fmt.Printf("  ID: %s\n", repo.ID)
	fmt.Printf("  Path: %s\n", repo.Path)
	if root != repo.Path {
		fmt.Printf("  Work tree: %s (only files under Path are scanned)\n", root)
	}
	fmt.Printf("  Interval: %dm\n", repo.ScanIntervalMinutes)
	fmt.Printf("  Next: repowatch repo enable %s\n", repo.Name)
	return nil
}

// workTreeRoot checks that path lies in a git work tree and returns the
// tree's top level.
func workTreeRoot(ctx context.Context, runner *git.Runner, path string) (string, error) {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return "", errors.Newf(errors.RepoUnreadable, "%s is not a directory", path)
	}
	if !runner.IsWorkTree(ctx, path) {
		return "", errors.Newf(errors.RepoUnreadable, "%s is not inside a git work tree", path)
	}
	root, err := runner.TopLevel(ctx, path)
	if err != nil {
		return "", errors.New(errors.RepoUnreadable, "failed to resolve work tree root", err)
	}
	return filepath.Clean(root), nil
}

type repoInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Path            string `json:"path"`
	AutoScan        bool   `json:"autoScan"`
	Active          bool   `json:"active"`
	IntervalMinutes int    `json:"intervalMinutes"`
	LastScanCheck   string `json:"lastScanCheck,omitempty"`
	LastAnalyzed    string `json:"lastAnalyzed,omitempty"`
	LastCommit      string `json:"lastCommit,omitempty"`
}

func toRepoInfo(r *storage.TrackedRepository) repoInfo {
	info := repoInfo{
		ID:              r.ID,
		Name:            r.Name,
		Path:            r.Path,
		AutoScan:        r.AutoScanEnabled,
		Active:          r.Active,
		IntervalMinutes: r.ScanIntervalMinutes,
		LastCommit:      r.LastCommitHash,
	}
	if r.LastScanCheck != nil {
		info.LastScanCheck = r.LastScanCheck.UTC().Format("2006-01-02T15:04:05Z")
	}
	if r.LastAnalyzed != nil {
		info.LastAnalyzed = r.LastAnalyzed.UTC().Format("2006-01-02T15:04:05Z")
	}
	return info
}

func runRepoList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	repos, err := a.repos.List(newContext())
	if err != nil {
		return err
	}

	if repoListJSON {
		infos := make([]repoInfo, 0, len(repos))
		for _, r := range repos {
			infos = append(infos, toRepoInfo(r))
		}
		out, err := formatJSON(infos)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	if len(repos) == 0 {
		fmt.Println("No repositories tracked.")
		fmt.Println("Use 'repowatch repo add <path>' to track one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAUTO\tINTERVAL\tLAST ANALYZED\tCOMMIT\tPATH")
	for _, r := range repos {
		auto := "off"
		if r.AutoScanEnabled && r.Active {
			auto = "on"
		} else if !r.Active {
			auto = "inactive"
		}
		fmt.Fprintf(w, "%s\t%s\t%dm\t%s\t%s\t%s\n",
			r.Name, auto, r.ScanIntervalMinutes, formatWhen(r.LastAnalyzed), shortHash(r.LastCommitHash), r.Path)
	}
	return w.Flush()
}

func runRepoRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := newContext()
	repo, err := a.repos.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.repos.Remove(ctx, repo.ID); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", repo.Name)
	return nil
}

func runRepoEnable(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	interval := 0
	if repoEnableEvery != "" {
		if interval, err = scheduler.ParseInterval(repoEnableEvery); err != nil {
			return err
		}
	}

	ctx := newContext()
	repo, err := a.repos.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.scheduler.Enable(ctx, repo.ID, interval); err != nil {
		return err
	}
	fmt.Printf("Auto-scan enabled for %s\n", repo.Name)
	return nil
}

func runRepoDisable(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := newContext()
	repo, err := a.repos.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.scheduler.Disable(ctx, repo.ID); err != nil {
		return err
	}
	fmt.Printf("Auto-scan disabled for %s\n", repo.Name)
	return nil
}

func runRepoRescan(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := newContext()
	repo, err := a.repos.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.scheduler.ForceRescan(ctx, repo.ID); err != nil {
		return err
	}
	fmt.Printf("%s will be scanned on the next scheduler wake\n", repo.Name)
	return nil
}
