package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/app"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/application/commands"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
)

const prompt = "kg> "

type verb struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, args []string) error
}

// Shell reads one command per line and runs it against a client.
type Shell struct {
	client  *app.Client
	metrics *api.Metrics
	out     io.Writer
	verbs   map[string]verb
}

// NewShell creates a shell over client. metrics may be nil.
func NewShell(client *app.Client, metrics *api.Metrics, out io.Writer) *Shell {
	s := &Shell{client: client, metrics: metrics, out: out}
	s.verbs = map[string]verb{
		"topics":       {usage: "topics", run: s.listTopics},
		"use":          {usage: "use <topic-id>", minArgs: 1, run: s.useTopic},
		"create-topic": {usage: "create-topic <name> [--rag] [file...]", minArgs: 1, run: s.createTopic},
		"edit":         {usage: "edit <topic-id>", minArgs: 1, run: s.openEdit},
		"edit-rm":      {usage: "edit-rm <index>", minArgs: 1, run: s.removeDocument},
		"edit-add":     {usage: "edit-add <file>", minArgs: 1, run: s.attachFile},
		"edit-submit":  {usage: "edit-submit [name] [personality] [--rag|--no-rag]", run: s.submitEdit},
		"edit-cancel":  {usage: "edit-cancel", run: s.dispatch(func([]string) commands.Command { return commands.CancelEdit{} })},
		"graph":        {usage: "graph", run: s.printGraph},
		"node-add":     {usage: "node-add <title>", minArgs: 1, run: s.addNode},
		"node-update":  {usage: "node-update <node-id> <title> [content] [tags]", minArgs: 2, run: s.updateNode},
		"node-rm":      {usage: "node-rm <node-id>", minArgs: 1, run: s.dispatch(func(a []string) commands.Command { return commands.DeleteNode{NodeID: a[0]} })},
		"edge-add":     {usage: "edge-add <source-id> <target-id> [label] [type]", minArgs: 2, run: s.addEdge},
		"edge-rm":      {usage: "edge-rm <source-id> <target-id>", minArgs: 2, run: s.dispatch(func(a []string) commands.Command { return commands.DeleteEdge{SourceID: a[0], TargetID: a[1]} })},
		"select":       {usage: "select <node-id>", minArgs: 1, run: s.dispatch(func(a []string) commands.Command { return commands.SelectNode{NodeID: a[0]} })},
		"clear":        {usage: "clear", run: s.dispatch(func([]string) commands.Command { return commands.ClearSelection{} })},
		"chat":         {usage: "chat", run: s.printTranscript},
		"say":          {usage: "say <message>", minArgs: 1, run: s.say},
		"stats":        {usage: "stats", run: s.printStats},
	}
	return s
}

// Run executes lines from in until EOF, "quit" or ctx is done. Command
// errors are printed and the loop goes on.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, prompt)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := s.Execute(ctx, scanner.Text()); quit {
			return nil
		}
		fmt.Fprint(s.out, prompt)
	}
	return scanner.Err()
}

// Execute runs one line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args, err := splitArgs(line)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	name, args := args[0], args[1:]
	switch name {
	case "quit", "exit":
		return true
	case "help":
		s.printHelp()
		return false
	}

	v, ok := s.verbs[name]
	if !ok {
		fmt.Fprintf(s.out, "unknown command %q, try help\n", name)
		return false
	}
	if len(args) < v.minArgs {
		fmt.Fprintf(s.out, "usage: %s\n", v.usage)
		return false
	}
	if err := v.run(ctx, args); err != nil {
		fmt.Fprintf(s.out, "error: %s\n", apperrors.UserMessage(err))
	}
	return false
}

func (s *Shell) dispatch(build func(args []string) commands.Command) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		return s.client.Dispatch(ctx, build(args))
	}
}

func (s *Shell) printHelp() {
	names := make([]string, 0, len(s.verbs))
	for name := range s.verbs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", s.verbs[name].usage)
	}
	fmt.Fprintln(s.out, "  quit")
}

// ============================================================================
// TOPICS
// ============================================================================

func (s *Shell) listTopics(ctx context.Context, _ []string) error {
	if err := s.client.Dispatch(ctx, commands.RefreshTopics{}); err != nil {
		return err
	}
	printTopics(s.out, s.client.Topics.Views())
	return nil
}

func printTopics(out io.Writer, views []domain.TopicView) {
	if len(views) == 0 {
		fmt.Fprintln(out, "no topics")
		return
	}
	for _, v := range views {
		marker := " "
		if v.Active {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %s  (%d docs)\n", marker, v.ID, v.Name, len(v.DocPaths))
	}
}

func (s *Shell) useTopic(ctx context.Context, args []string) error {
	return s.client.Dispatch(ctx, commands.SwitchTopic{TopicID: args[0]})
}

func (s *Shell) createTopic(ctx context.Context, args []string) error {
	rest, useRAG := popFlag(args[1:], "--rag")
	files, err := readAttachments(rest)
	if err != nil {
		return err
	}
	return s.client.Dispatch(ctx, commands.CreateTopic{Name: args[0], UseRAG: useRAG, Files: files})
}

func (s *Shell) openEdit(ctx context.Context, args []string) error {
	if err := s.client.Dispatch(ctx, commands.OpenEdit{TopicID: args[0]}); err != nil {
		return err
	}
	if f, ok := s.client.Edit.Fields(); ok {
		fmt.Fprintf(s.out, "  name: %s\n  personality: %s\n  rag: %t\n", f.Name, f.Personality, f.UseRAG)
	}
	for i, p := range s.client.Edit.DocPaths() {
		fmt.Fprintf(s.out, "  [%d] %s\n", i, domain.DocName(p))
	}
	return nil
}

func (s *Shell) removeDocument(ctx context.Context, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number: %q", args[0])
	}
	return s.client.Dispatch(ctx, commands.RemoveDocument{Index: index})
}

func (s *Shell) attachFile(ctx context.Context, args []string) error {
	files, err := readAttachments(args[:1])
	if err != nil {
		return err
	}
	return s.client.Dispatch(ctx, commands.AttachFile{Name: files[0].Name, Data: files[0].Data})
}

// submitEdit sends only what was typed; everything else keeps the values
// the topic had when the edit started.
func (s *Shell) submitEdit(ctx context.Context, args []string) error {
	rest, on := popFlag(args, "--rag")
	rest, off := popFlag(rest, "--no-rag")
	if on && off {
		return apperrors.NewValidationError(apperrors.CodeInvalidCommand, "--rag and --no-rag are exclusive")
	}

	var cmd commands.SubmitEdit
	if len(rest) > 0 {
		cmd.Name = &rest[0]
	}
	if len(rest) > 1 {
		cmd.Personality = &rest[1]
	}
	if on || off {
		cmd.UseRAG = &on
	}
	return s.client.Dispatch(ctx, cmd)
}

// ============================================================================
// GRAPH
// ============================================================================

func (s *Shell) printGraph(_ context.Context, _ []string) error {
	g := s.client.Graph.Snapshot()
	fmt.Fprintf(s.out, "nodes (%d):\n", len(g.Nodes))
	for _, n := range g.Nodes {
		fmt.Fprintf(s.out, "  %s  %s", n.ID, n.Title)
		if len(n.Tags) > 0 {
			fmt.Fprintf(s.out, "  [%s]", strings.Join(n.Tags, ", "))
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "edges (%d):\n", len(g.Edges))
	for _, e := range g.Edges {
		fmt.Fprintf(s.out, "  %s -> %s  %s  %s\n", e.Source, e.Target, e.Type, e.Label)
	}
	return nil
}

func (s *Shell) addNode(ctx context.Context, args []string) error {
	return s.client.Dispatch(ctx, commands.AddNode{Title: strings.Join(args, " ")})
}

func (s *Shell) updateNode(ctx context.Context, args []string) error {
	cmd := commands.UpdateNode{NodeID: args[0], Title: args[1]}
	if len(args) > 2 {
		cmd.Content = args[2]
	}
	if len(args) > 3 {
		cmd.Tags = domain.ParseTags(args[3])
	}
	return s.client.Dispatch(ctx, cmd)
}

func (s *Shell) addEdge(ctx context.Context, args []string) error {
	cmd := commands.AddEdge{SourceID: args[0], TargetID: args[1]}
	if len(args) > 2 {
		cmd.Label = args[2]
	}
	if len(args) > 3 {
		cmd.EdgeType = args[3]
	}
	return s.client.Dispatch(ctx, cmd)
}

// ============================================================================
// CHAT
// ============================================================================

func (s *Shell) printTranscript(_ context.Context, _ []string) error {
	node, ok := s.client.Selection.Selected()
	if !ok {
		fmt.Fprintln(s.out, "no node selected")
		return nil
	}
	fmt.Fprintf(s.out, "chat for %s (%s):\n", node.Title, node.ID)
	for _, e := range s.client.Chat.Transcript() {
		status := ""
		if e.Status != domain.StatusConfirmed {
			status = " (" + string(e.Status) + ")"
		}
		fmt.Fprintf(s.out, "  %s%s: %s\n", e.Role, status, e.Text)
	}
	return nil
}

func (s *Shell) say(ctx context.Context, args []string) error {
	nodeID := s.client.Selection.SelectedID()
	before := len(s.client.Chat.Transcript())
	if err := s.client.Dispatch(ctx, commands.SendChat{NodeID: nodeID, Prompt: strings.Join(args, " ")}); err != nil {
		return err
	}
	transcript := s.client.Chat.Transcript()
	if len(transcript) > before {
		last := transcript[len(transcript)-1]
		fmt.Fprintf(s.out, "%s: %s\n", last.Role, last.Text)
	}
	return nil
}

// ============================================================================
// STATS
// ============================================================================

func (s *Shell) printStats(_ context.Context, _ []string) error {
	if s.metrics == nil {
		fmt.Fprintln(s.out, "metrics are not enabled")
		return nil
	}
	stats, err := s.metrics.Snapshot()
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(s.out, "no backend calls yet")
		return nil
	}
	for _, st := range stats {
		fmt.Fprintf(s.out, "  %-12s ok=%d backend_error=%d transport_error=%d mean=%s\n",
			st.Operation,
			st.Calls[api.OutcomeOK], st.Calls[api.OutcomeBackend], st.Calls[api.OutcomeTransport],
			st.MeanLatency.Round(time.Microsecond))
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func popFlag(args []string, flag string) ([]string, bool) {
	out := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if a == flag {
			found = true
			continue
		}
		out = append(out, a)
	}
	return out, found
}

func readAttachments(paths []string) ([]domain.Attachment, error) {
	files := make([]domain.Attachment, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, domain.Attachment{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
