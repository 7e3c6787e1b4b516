// Command vcscat is a small cobra-based demonstration CLI over the vcs
// core, grounded on original_source/vcs/commands/cat.py's cat command
// (plus log/diff siblings the distillation didn't carry but the
// original package shipped alongside it). It only knows how to talk to
// the "mem" backend, since no real Mercurial/Git binding is in scope
// here (spec §1); it exists to exercise Repository/Changeset/Node
// end-to-end, not to be a production tool.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/velodee/vcs"
	_ "github.com/velodee/vcs/backend/memory"
)

var (
	repoPath string
	alias    string
)

func main() {
	root := &cobra.Command{
		Use:   "vcscat",
		Short: "Inspect a repository's history through the vcs core",
	}
	root.PersistentFlags().StringVar(&repoPath, "repo", ".", "repository path")
	root.PersistentFlags().StringVar(&alias, "alias", "mem", "backend alias")

	root.AddCommand(catCmd(), logCmd(), diffCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openRepo() (*vcs.Repository, error) {
	return vcs.Open(alias, repoPath, vcs.Options{})
}

func catCmd() *cobra.Command {
	var rev string
	var blame, linenos bool

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file's content at a revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			cs, err := repo.GetChangeset(revArg(rev))
			if err != nil {
				return err
			}

			if blame {
				lines, err := cs.GetFileAnnotate(args[0])
				if err != nil {
					return err
				}
				for i, l := range lines {
					fmt.Printf("%s | %-15s | %s\n", shortID(l.Changeset.RawID()), truncate(l.Changeset.Author(), 15), renderLine(i, linenos, l.Line))
				}
				return nil
			}

			content, err := cs.GetFileContent(args[0])
			if err != nil {
				return err
			}
			if !linenos {
				fmt.Print(string(content))
				return nil
			}
			for i, line := range splitLines(content) {
				fmt.Println(renderLine(i, true, []byte(line)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rev, "rev", "tip", "revision to read from")
	cmd.Flags().BoolVar(&blame, "blame", false, "annotate output with per-line authorship")
	cmd.Flags().BoolVarP(&linenos, "line-numbers", "n", false, "show line numbers")
	return cmd
}

func logCmd() *cobra.Command {
	limit := vcs.DefaultLimit
	offset := vcs.DefaultOffset

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List changesets newest-first",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			return repo.GetChangesets(limit, offset).ForEach(func(cs *vcs.Changeset) error {
				fmt.Printf("%d:%s %s %s\n", cs.Revision(), shortID(cs.RawID()), cs.Author(), cs.Message())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", vcs.DefaultLimit, "maximum changesets to print (<=0 for all)")
	cmd.Flags().IntVar(&offset, "offset", vcs.DefaultOffset, "changesets back from the tip to start at")
	return cmd
}

func diffCmd() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the added/changed/removed paths of a changeset",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			cs, err := repo.GetChangeset(revArg(rev))
			if err != nil {
				return err
			}

			stat, err := cs.Stat()
			if err != nil {
				return err
			}
			fmt.Printf("%d files added, %d changed, %d removed (+%d/-%d lines)\n",
				stat.FilesAdded, stat.FilesChanged, stat.FilesRemoved, stat.LinesAdded, stat.LinesRemoved)

			added, err := cs.Added()
			if err != nil {
				return err
			}
			for _, n := range added {
				fmt.Printf("A %s\n", n.Path())
			}
			changed, err := cs.Changed()
			if err != nil {
				return err
			}
			for _, n := range changed {
				fmt.Printf("M %s\n", n.Path())
			}
			removed, err := cs.Removed()
			if err != nil {
				return err
			}
			for _, n := range removed {
				fmt.Printf("D %s\n", n.Path())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rev, "rev", "tip", "changeset to diff against its first parent")
	return cmd
}

// revArg converts a --rev flag value into the interface{} GetChangeset
// expects: an integer revision when it looks like one, else the raw
// string (raw_id, short_id, branch, tag, "tip"/"HEAD").
func revArg(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func shortID(rawID string) string {
	return truncate(rawID, 6)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func splitLines(content []byte) []string {
	var lines []string
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, string(content[start:]))
	}
	return lines
}

func renderLine(i int, linenos bool, line []byte) string {
	if !linenos {
		return string(line)
	}
	return fmt.Sprintf("%4d %s", i+1, line)
}
