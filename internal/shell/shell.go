// Package shell implements an interactive REPL over the catalogue, resolver
// and knowledge base, adapted from a readline-based session
// package down to the handful of commands this core actually needs:
// inspecting partitions, resolving artifacts, and inspecting knowledge-base
// variables without running a full extraction.
package shell

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/blackvault/artifactresolver/internal/catalog"
	"github.com/blackvault/artifactresolver/internal/extractor"
	"github.com/blackvault/artifactresolver/internal/model"
	"github.com/blackvault/artifactresolver/internal/resolver"
	"github.com/blackvault/artifactresolver/internal/vfs"
	"github.com/blackvault/artifactresolver/internal/winreg"
)

// RegistryOpener opens the registry collaborator for one partition, mirroring
// internal/driver.RegistryOpener so the shell and the batch driver share one
// way of binding a VFS partition to its registry.
type RegistryOpener func(ctx context.Context, fs vfs.VFS, partition vfs.Partition) (winreg.Registry, error)

// Shell is one interactive session bound to a mounted VFS and catalogue.
type Shell struct {
	rl *readline.Instance

	fs         vfs.VFS
	catalogue  *catalog.Registry
	openReg    RegistryOpener
	partitions []vfs.Partition

	current vfs.Partition
	haveCur bool
	res     *resolver.Resolver
	osKind  model.OSKind
}

// New builds a Shell over an already-opened VFS and loaded catalogue.
func New(ctx context.Context, fs vfs.VFS, catalogue *catalog.Registry, openReg RegistryOpener) (*Shell, error) {
	parts, err := fs.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("shell: listing partitions: %w", err)
	}
	return &Shell{fs: fs, catalogue: catalogue, openReg: openReg, partitions: parts}, nil
}

// Run starts the REPL and blocks until the user exits.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     ".artifactresolver_history",
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryLimit:    1000,
		UniqueEditLine:  true,
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("shell: setting up readline: %w", err)
	}
	s.rl = rl
	defer s.rl.Close()

	s.banner()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println("^C")
				continue
			}
			break // io.EOF
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.dispatch(ctx, line); err != nil {
			if err == errQuit {
				return nil
			}
			color.New(color.FgRed).Fprintln(os.Stdout, err.Error())
		}
		s.rl.SetPrompt(s.prompt())
	}
	return nil
}

var errQuit = fmt.Errorf("quit")

func (s *Shell) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		s.help()
	case "exit", "quit":
		return errQuit
	case "clear", "cls":
		fmt.Print("\033[H\033[2J")
	case "partitions":
		s.listPartitions()
	case "use":
		return s.cmdUse(ctx, args)
	case "list":
		s.cmdList(args)
	case "resolve":
		return s.cmdResolve(ctx, args)
	case "var":
		return s.cmdVar(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help')", cmd)
	}
	return nil
}

func (s *Shell) help() {
	fmt.Println(`Commands:
  partitions          list partitions found in the mounted evidence
  use <n>             bind the session to partition n (see 'partitions')
  list                list artifact names in the loaded catalogue
  resolve <artifact>  resolve an artifact against the bound partition
  var <name>          print the knowledge-base value(s) for a variable
  clear               clear the screen
  help                show this message
  exit, quit          leave the shell`)
}

func (s *Shell) listPartitions() {
	for i, p := range s.partitions {
		fmt.Printf("%2d  %-20s %v\n", i, p.Handle, p.TypeChain)
	}
}

func (s *Shell) cmdUse(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <partition-index>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(s.partitions) {
		return fmt.Errorf("no such partition %q (see 'partitions')", args[0])
	}
	part := s.partitions[idx]

	reg, err := s.openReg(ctx, s.fs, part)
	if err != nil {
		return fmt.Errorf("opening registry for partition %s: %w", part.Handle, err)
	}

	s.current = part
	s.haveCur = true
	s.osKind = extractor.DetectOS(ctx, s.fs, part)
	s.res = resolver.New(ctx, s.catalogue.Definitions(), part, s.osKind, s.fs, reg, s.warn)

	fmt.Printf("bound to partition %s (detected OS: %s)\n", part.Handle, s.osKind)
	return nil
}

func (s *Shell) cmdList(args []string) {
	names := s.catalogue.Names()
	filter := ""
	if len(args) > 0 {
		filter = strings.ToLower(args[0])
	}
	sort.Strings(names)
	for _, n := range names {
		if filter != "" && !strings.Contains(strings.ToLower(n), filter) {
			continue
		}
		fmt.Println(n)
	}
}

func (s *Shell) cmdResolve(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: resolve <artifact-name>")
	}
	if !s.haveCur {
		return fmt.Errorf("no partition bound, run 'use <n>' first")
	}

	ra := s.res.Resolve(ctx, args[0])
	if ra.Empty() {
		fmt.Println("resolved to nothing")
		return nil
	}
	fmt.Printf("files: %d  dirs: %d  paths: %d  registry keys: %d  registry values: %d  sub-artifacts: %d\n",
		len(ra.Files), len(ra.Dirs), len(ra.Paths), len(ra.RegistryKeys), len(ra.RegistryValues), len(ra.SubArtifacts))
	for _, f := range ra.Files {
		fmt.Printf("  file  %s\n", f.RelativePath())
	}
	for _, d := range ra.Dirs {
		fmt.Printf("  dir   %s\n", d.RelativePath())
	}
	for _, k := range ra.RegistryKeys {
		fmt.Printf("  key   %s\n", k.Path())
	}
	for _, m := range ra.RegistryValues {
		fmt.Printf("  value %s  %v\n", m.Key.Path(), m.ValueNames)
	}
	return nil
}

func (s *Shell) cmdVar(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: var <name>")
	}
	if !s.haveCur {
		return fmt.Errorf("no partition bound, run 'use <n>' first")
	}
	values := s.res.KnowledgeBase().Get(args[0])
	if len(values) == 0 {
		fmt.Println("(no values)")
		return nil
	}
	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}

func (s *Shell) warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "warn: "+format+"\n", args...)
}

func (s *Shell) prompt() string {
	arrow := color.New(color.FgGreen).SprintFunc()
	if s.haveCur {
		tag := color.New(color.FgYellow).SprintFunc()
		return fmt.Sprintf("artifactresolver%s[%s]%s ", arrow("~"), tag(s.current.Handle), arrow("$"))
	}
	return fmt.Sprintf("artifactresolver%s%s ", arrow("~"), arrow("$"))
}

func (s *Shell) completer() readline.AutoCompleter {
	commands := []string{"help", "partitions", "use", "list", "resolve", "var", "clear", "exit", "quit"}
	var items []readline.PrefixCompleterInterface
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Shell) banner() {
	color.New(color.FgCyan, color.Bold).Println("artifact resolver — interactive shell")
	fmt.Printf("catalogue: %d artifact definitions loaded\n", len(s.catalogue.Names()))
	fmt.Println("type 'help' for commands, 'exit' to leave")
	fmt.Println()
}
