// Package main provides the CLI entry point for orgnode.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/gerunddev/orgnode/internal/config"
	"github.com/gerunddev/orgnode/internal/diff"
	"github.com/gerunddev/orgnode/internal/export"
	"github.com/gerunddev/orgnode/internal/ids"
	"github.com/gerunddev/orgnode/internal/index"
	"github.com/gerunddev/orgnode/internal/logger"
	"github.com/gerunddev/orgnode/internal/query"
	"github.com/gerunddev/orgnode/internal/state"
	"github.com/gerunddev/orgnode/internal/styles"
	"github.com/gerunddev/orgnode/internal/tui"
	"github.com/gerunddev/orgnode/parser"
)

const version = "0.1.0"

const dateLayout = "2006-01-02"

var (
	// errNodeNotFound indicates no heading matched the --heading flag.
	errNodeNotFound = errors.New("no node with that heading")

	// errNotCanonical indicates check found files that do not round-trip.
	errNotCanonical = errors.New("files differ from their canonical rendering")

	// errLossyRewrite indicates --write would change lines the edit does not touch.
	errLossyRewrite = errors.New("rewriting would change lines outside the edit")
)

// app bundles dependencies so CLI action handlers become testable methods.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	isTTY     bool
	now       func() time.Time
	newID     func() string
	statePath func() string
	runTUI    func(m tea.Model) error

	cfg     *config.Config
	log     *logger.Logger
	cleanup func()
}

func main() {
	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		isTTY:     term.IsTerminal(int(os.Stdout.Fd())),
		now:       time.Now,
		newID:     ids.New,
		statePath: config.StateFilePath,
		runTUI: func(m tea.Model) error {
			_, err := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd := a.command()
	cmd.ExitErrHandler = func(_ context.Context, _ *cli.Command, err error) {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "orgnode",
		Usage:     "inspect and edit org-mode outlines",
		Version:   version,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the config file",
				Sources: cli.EnvVars("ORGNODE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error); overrides the config file",
				Sources: cli.EnvVars("ORGNODE_LOG_LEVEL"),
			},
		},
		Before: a.before,
		After: func(context.Context, *cli.Command) error {
			if a.cleanup != nil {
				a.cleanup()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "render an org file as org, markdown, json or yaml",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "output format (" + strings.Join(export.Formats(), ", ") + ")",
						Value:   string(export.Org),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "write to this file instead of stdout",
					},
				},
				Action: a.exportAction,
			},
			{
				Name:      "list",
				Usage:     "list nodes matching filters",
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "tag", Usage: "keep nodes carrying any of these tags"},
					&cli.StringSliceFlag{Name: "todo", Usage: "keep nodes with any of these TODO keywords"},
					&cli.StringSliceFlag{Name: "priority", Usage: "keep nodes with any of these priorities"},
					&cli.IntFlag{Name: "min-level", Usage: "minimum heading level"},
					&cli.IntFlag{Name: "max-level", Usage: "maximum heading level"},
					&cli.StringFlag{Name: "due-before", Usage: "keep nodes with a deadline before this date (YYYY-MM-DD)"},
				},
				Action: a.listAction,
			},
			{
				Name:      "agenda",
				Usage:     "show scheduled and deadline dates",
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "days ahead to include (default from config)", Value: -1},
				},
				Action: a.agendaAction,
			},
			{
				Name:      "set",
				Usage:     "change the metadata of one node",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "heading", Usage: "heading of the node to change", Required: true},
					&cli.StringFlag{Name: "todo", Usage: "TODO keyword, or 'none' to clear"},
					&cli.StringFlag{Name: "priority", Usage: "priority A, B or C, or 'none' to clear"},
					&cli.StringSliceFlag{Name: "tag", Usage: "tag to add"},
					&cli.StringSliceFlag{Name: "untag", Usage: "tag to remove"},
					&cli.StringFlag{Name: "scheduled", Usage: "scheduled date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "deadline", Usage: "deadline date (YYYY-MM-DD)"},
					&cli.StringSliceFlag{Name: "property", Usage: "property as NAME=VALUE"},
					&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "rewrite the file instead of printing"},
					&cli.BoolFlag{Name: "force", Usage: "with --write, rewrite even when other lines would change"},
				},
				Action: a.setAction,
			},
			{
				Name:      "ids",
				Usage:     "give every node without an ID property a new UUID",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "rewrite the file instead of printing"},
					&cli.BoolFlag{Name: "force", Usage: "with --write, rewrite even when other lines would change"},
				},
				Action: a.idsAction,
			},
			{
				Name:      "check",
				Usage:     "report files whose canonical rendering differs from their content",
				ArgsUsage: "<file>...",
				Action:    a.checkAction,
			},
			{
				Name:      "index",
				Usage:     "index the org directory into the state file",
				ArgsUsage: "[dir]",
				Action:    a.indexAction,
			},
			{
				Name:      "browse",
				Usage:     "browse the nodes of a file interactively",
				ArgsUsage: "<file>",
				Action:    a.browseAction,
			},
			{
				Name:   "config",
				Usage:  "show the effective configuration",
				Action: a.configAction,
				Commands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "write a default config file",
						Action: a.configInitAction,
					},
				},
			},
		},
	}
}

// before loads the configuration and installs the logger.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return ctx, fmt.Errorf("loading config %s: %w", path, err)
	}
	a.cfg = cfg

	levelName := cfg.LogLevel
	if cmd.IsSet("log-level") {
		levelName = cmd.String("log-level")
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return ctx, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	a.log = logger.NewWithLevel(a.stderr, level)
	if cfg.LogFile != "" {
		l, cleanup, err := logger.NewFileLogger(cfg.LogFile, level)
		if err != nil {
			return ctx, fmt.Errorf("opening log file: %w", err)
		}
		a.log = l
		a.cleanup = cleanup
	}

	a.log.ConfigLoaded(path, cfg.OrgDir, cfg.Workers)
	return log.WithContext(ctx, a.log.Logger), nil
}

func (a *app) parser() *parser.Parser {
	return a.cfg.Parser(a.log.Logger)
}

func (a *app) parseFile(path string) (*parser.Document, error) {
	start := time.Now()
	doc, err := a.parser().ParseFile(path)
	if err != nil {
		return nil, err
	}
	a.log.ParseCompleted(path, len(doc.Nodes), time.Since(start))
	return doc, nil
}

// render applies style only when stdout is a terminal.
func (a *app) render(style lipgloss.Style, text string) string {
	if !a.isTTY || text == "" {
		return text
	}
	return style.Render(text)
}

func (a *app) exportAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: orgnode export <file>")
	}

	format, err := export.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	doc, err := a.parseFile(path)
	if err != nil {
		return err
	}

	out := cmd.String("output")
	if out == "" {
		return export.Write(a.stdout, doc, format)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := export.Write(f, doc, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	a.log.FileWritten(out, len(doc.Nodes))
	return nil
}

func (a *app) listAction(_ context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("usage: orgnode list <file>...")
	}

	filter := query.Filter{
		Tags:     cmd.StringSlice("tag"),
		Todo:     cmd.StringSlice("todo"),
		Priority: cmd.StringSlice("priority"),
		MinLevel: int(cmd.Int("min-level")),
		MaxLevel: int(cmd.Int("max-level")),
	}
	if s := cmd.String("due-before"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return fmt.Errorf("invalid value for flag --due-before: %w", err)
		}
		filter.DueBefore = d
	}

	for _, path := range paths {
		doc, err := a.parseFile(path)
		if err != nil {
			return err
		}
		matched := filter.Apply(doc.Nodes)
		if len(paths) > 1 && len(matched) > 0 {
			_, _ = fmt.Fprintln(a.stdout, a.render(styles.TitleStyle, path))
		}
		for _, n := range matched {
			_, _ = fmt.Fprintln(a.stdout, a.formatNode(n))
		}
	}
	return nil
}

// formatNode renders one outline line: indentation, keyword, priority, heading, tags.
func (a *app) formatNode(n *parser.Node) string {
	parts := []string{}
	if n.Todo() != "" {
		if a.isTTY {
			parts = append(parts, styles.Todo(n.Todo(), n.Closed()))
		} else {
			parts = append(parts, n.Todo())
		}
	}
	if n.Priority() != "" {
		if a.isTTY {
			parts = append(parts, styles.Priority(n.Priority()))
		} else {
			parts = append(parts, "[#"+n.Priority()+"]")
		}
	}
	parts = append(parts, n.Heading())
	if tags := n.Tags(); len(tags) > 0 {
		parts = append(parts, a.render(styles.TagStyle, ":"+strings.Join(tags, ":")+":"))
	}
	return strings.Repeat("  ", max(n.Level()-1, 0)) + strings.Join(parts, " ")
}

func (a *app) agendaAction(_ context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("usage: orgnode agenda <file>...")
	}

	days := int(cmd.Int("days"))
	if days < 0 {
		days = a.cfg.AgendaDays
	}

	var nodes []*parser.Node
	source := make(map[*parser.Node]string)
	for _, path := range paths {
		doc, err := a.parseFile(path)
		if err != nil {
			return err
		}
		for _, n := range doc.Nodes {
			source[n] = filepath.Base(path)
		}
		nodes = append(nodes, doc.Nodes...)
	}

	entries := query.Agenda(nodes, a.now(), days)
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(a.stdout, a.render(styles.DimStyle, fmt.Sprintf("Nothing due in the next %d days", days)))
		return nil
	}

	for _, e := range entries {
		when := relativeDays(e.DaysUntil)
		if e.Overdue() {
			when = a.render(styles.ErrorStyle, when)
		}
		line := fmt.Sprintf("%s  %-9s  %-12s  %s",
			a.render(styles.DateStyle, e.Date.Format(dateLayout)),
			e.Kind,
			when,
			strings.TrimLeft(a.formatNode(e.Node), " "))
		if len(paths) > 1 {
			line += "  " + a.render(styles.DimStyle, "("+source[e.Node]+")")
		}
		_, _ = fmt.Fprintln(a.stdout, line)
	}
	return nil
}

func relativeDays(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days < 0:
		return fmt.Sprintf("%d days ago", -days)
	}
	return fmt.Sprintf("in %d days", days)
}

func (a *app) setAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: orgnode set --heading <heading> <file>")
	}
	if cmd.Bool("write") {
		if err := a.checkRewrite(path, cmd.Bool("force")); err != nil {
			return err
		}
	}

	doc, err := a.parseFile(path)
	if err != nil {
		return err
	}

	heading := cmd.String("heading")
	n := doc.Find(heading)
	if n == nil {
		return fmt.Errorf("%s: %w: %q", path, errNodeNotFound, heading)
	}

	changed := 0
	if cmd.IsSet("todo") {
		kw := strings.ToUpper(strings.TrimSpace(cmd.String("todo")))
		if kw == "NONE" {
			kw = ""
		} else if !doc.IsTodoKeyword(kw) {
			return fmt.Errorf("unknown TODO keyword %q (known: %s)", kw, strings.Join(doc.TodoKeywords, ", "))
		}
		n.SetTodo(kw)
		changed++
	}
	if cmd.IsSet("priority") {
		p := strings.ToUpper(strings.TrimSpace(cmd.String("priority")))
		switch p {
		case "NONE":
			p = ""
		case "A", "B", "C":
		default:
			return fmt.Errorf("invalid priority %q: must be A, B, C or none", p)
		}
		n.SetPriority(p)
		changed++
	}
	if tags := cmd.StringSlice("tag"); len(tags) > 0 {
		n.SetTags(tags...)
		changed++
	}
	for _, tag := range cmd.StringSlice("untag") {
		if !n.RemoveTag(tag) {
			return fmt.Errorf("%s: node %q has no tag %q", path, heading, tag)
		}
		changed++
	}
	if s := cmd.String("scheduled"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return fmt.Errorf("invalid value for flag --scheduled: %w", err)
		}
		n.SetScheduled(d)
		changed++
	}
	if s := cmd.String("deadline"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return fmt.Errorf("invalid value for flag --deadline: %w", err)
		}
		n.SetDeadline(d)
		changed++
	}
	for _, prop := range cmd.StringSlice("property") {
		name, value, ok := strings.Cut(prop, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t:") {
			return fmt.Errorf("invalid property %q: want NAME=VALUE", prop)
		}
		n.SetProperty(name, strings.TrimSpace(value))
		changed++
	}

	a.log.NodesChanged(path, "set", changed)
	return a.emit(path, doc, cmd.Bool("write"))
}

func (a *app) idsAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: orgnode ids <file>")
	}
	if cmd.Bool("write") {
		if err := a.checkRewrite(path, cmd.Bool("force")); err != nil {
			return err
		}
	}

	doc, err := a.parseFile(path)
	if err != nil {
		return err
	}

	for _, id := range ids.Duplicates(doc.Nodes) {
		a.log.Warn("duplicate id", "file", path, "id", id)
	}
	assigned := ids.Assign(doc.Nodes, a.newID)
	a.log.NodesChanged(path, "ids", assigned)

	if !cmd.Bool("write") {
		return a.emit(path, doc, false)
	}
	if assigned == 0 {
		_, _ = fmt.Fprintln(a.stdout, a.render(styles.SuccessStyle, "✓ Every node already has an ID"))
		return nil
	}
	if err := a.emit(path, doc, true); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.stdout, a.render(styles.SuccessStyle, fmt.Sprintf("✓ Assigned %d ID(s) in %s", assigned, path)))
	return nil
}

// checkRewrite fails when rendering path unchanged would already differ from
// its content, such as "#" comment lines the parser drops. The diff goes to stderr.
func (a *app) checkRewrite(path string, force bool) error {
	unified, err := diff.File(a.parser(), path)
	if err != nil {
		return err
	}
	if unified == "" {
		return nil
	}
	if force {
		a.log.Warn("rewriting file that is not canonical", "file", path)
		return nil
	}
	if a.isTTY {
		_, _ = fmt.Fprint(a.stderr, diff.Render(unified))
	} else {
		_, _ = fmt.Fprint(a.stderr, unified)
	}
	return fmt.Errorf("%s: %w (use --force to rewrite anyway)", path, errLossyRewrite)
}

// emit prints the document or, with write, replaces the file with it.
func (a *app) emit(path string, doc *parser.Document, write bool) error {
	if !write {
		_, err := doc.WriteTo(a.stdout)
		return err
	}
	if err := writeDocument(path, doc); err != nil {
		return err
	}
	a.log.FileWritten(path, len(doc.Nodes))
	return nil
}

// writeDocument replaces path with the canonical rendering of doc through a
// temporary file in the same directory, keeping the file mode.
func writeDocument(path string, doc *parser.Document) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := doc.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (a *app) checkAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("usage: orgnode check <file>...")
	}

	p := a.parser()
	failed := 0
	for _, path := range paths {
		log.FromContext(ctx).Debug("checking", "file", path)
		unified, err := diff.File(p, path)
		if err != nil {
			return err
		}
		if unified == "" {
			_, _ = fmt.Fprintln(a.stdout, a.render(styles.SuccessStyle, "✓ "+path))
			continue
		}
		failed++
		_, _ = fmt.Fprintln(a.stdout, a.render(styles.ErrorStyle, "✗ "+path))
		if a.isTTY {
			_, _ = fmt.Fprint(a.stdout, diff.Render(unified))
		} else {
			_, _ = fmt.Fprint(a.stdout, unified)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d: %w", failed, len(paths), errNotCanonical)
	}
	return nil
}

func (a *app) indexAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = a.cfg.OrgDir
	}

	statePath := a.statePath()
	st, err := state.Load(statePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	ix := index.NewIndexer(a.cfg, st)
	ix.SetLogger(a.log)

	var result *index.Result
	if a.isTTY {
		result, err = a.indexWithSpinner(ctx, ix, dir)
	} else {
		result, err = ix.Index(ctx, dir)
	}
	if err != nil {
		return err
	}

	if err := st.Save(statePath); err != nil {
		a.log.StateError("save", err)
		return fmt.Errorf("saving state: %w", err)
	}

	if !a.isTTY {
		_, _ = fmt.Fprintln(a.stdout, result.String())
	}
	for _, err := range result.Errors {
		_, _ = fmt.Fprintln(a.stderr, a.render(styles.ErrorStyle, "✗ "+err.Error()))
	}
	return nil
}

func (a *app) indexWithSpinner(ctx context.Context, ix *index.Indexer, dir string) (*index.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.InitIndexModel(dir), tea.WithInput(os.Stdin))

	var result *index.Result
	var indexErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, indexErr = ix.Index(ctx, dir)
		p.Send(tui.IndexMsg{Result: result, Err: indexErr})
	}()

	_, runErr := p.Run()
	// Quitting the spinner early cancels the run.
	cancel()
	<-done
	if runErr != nil {
		return nil, runErr
	}
	return result, indexErr
}

func (a *app) browseAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: orgnode browse <file>")
	}

	doc, err := a.parseFile(path)
	if err != nil {
		return err
	}
	return a.runTUI(tui.InitBrowseModel(filepath.Base(path), doc))
}

func (a *app) configAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Root().String("config")
	if path == "" {
		path = config.ConfigPath()
	}

	data, err := json.MarshalIndent(a.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "%s %s\n", a.render(styles.LabelStyle, "Config file:"), path)
	_, _ = fmt.Fprintf(a.stdout, "%s %s\n", a.render(styles.LabelStyle, "State file: "), a.statePath())
	_, _ = fmt.Fprintln(a.stdout, string(data))
	return nil
}

func (a *app) configInitAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Root().String("config")
	if path == "" {
		path = config.ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	if err := config.DefaultConfig().SaveFile(path); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.stdout, a.render(styles.SuccessStyle, "✓ Wrote "+path))
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}
