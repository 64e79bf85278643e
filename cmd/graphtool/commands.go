package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/AaronLay10/behaviorgraph/internal/behavior"
	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/providers"
	"github.com/AaronLay10/behaviorgraph/internal/sim"
	"github.com/AaronLay10/behaviorgraph/internal/skills"
)

// command is one graphtool subcommand.
type command interface {
	Name() string
	Description() string
	Usage() string
	SetupFlags(fs *flag.FlagSet)
	Execute(args []string, stdout, stderr io.Writer) error
}

func commands() []command {
	return []command{
		&validateCommand{},
		&fmtCommand{},
		&ordinalsCommand{},
		&compileCommand{},
	}
}

// compileOptions are the flags shared by validate and compile.
type compileOptions struct {
	skillsPath string
	lenient    bool
}

func (o *compileOptions) setup(fs *flag.FlagSet) {
	fs.StringVar(&o.skillsPath, "skills", "", "skill catalog (skills.yaml) for Skill nodes")
	fs.BoolVar(&o.lenient, "lenient", false, "resolve functions by name when the stored ordinal disagrees")
}

// compile builds an interpreter for def against a simulated body that
// provides every category.
func (o *compileOptions) compile(def *graph.Definition, seed uint64, observer behavior.Observer) (*behavior.Interpreter, *sim.Body, error) {
	catalog, err := skills.NewCatalog()
	if err != nil {
		return nil, nil, err
	}
	if o.skillsPath != "" {
		if catalog, err = skills.Load(o.skillsPath); err != nil {
			return nil, nil, err
		}
	}
	if observer == nil {
		observer = behavior.ObserverFunc(func(string, map[string]interface{}) {})
	}
	body := sim.New(seed, sim.DefaultOptions())
	in, err := behavior.Compile(def, behavior.Options{
		Providers:    body.Attach(capability.NewSet()),
		Skills:       catalog,
		Rand:         behavior.NewRand(seed),
		Observer:     observer,
		LenientNames: o.lenient,
	})
	return in, body, err
}

type validateCommand struct {
	opts compileOptions
}

func (c *validateCommand) Name() string        { return "validate" }
func (c *validateCommand) Description() string { return "Parse and compile graph documents" }
func (c *validateCommand) Usage() string       { return "validate [options] <file.json>..." }
func (c *validateCommand) SetupFlags(fs *flag.FlagSet) {
	c.opts.setup(fs)
}

func (c *validateCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("validate: no files given")
	}
	failed := 0
	for _, path := range args {
		def, err := graph.LoadFile(path)
		if err == nil {
			_, _, err = c.opts.compile(def, 1, nil)
		}
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(stderr, "FAIL %s: %v\n", path, err)
			continue
		}
		_, _ = fmt.Fprintf(stdout, "ok   %s (%d nodes, %d transitions)\n", path, len(def.Nodes), len(def.Transitions))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d graphs failed", failed, len(args))
	}
	return nil
}

type fmtCommand struct {
	write bool
}

func (c *fmtCommand) Name() string        { return "fmt" }
func (c *fmtCommand) Description() string { return "Normalize and re-encode graph documents" }
func (c *fmtCommand) Usage() string       { return "fmt [-w] <file.json>..." }
func (c *fmtCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.write, "w", false, "write result to the source file instead of stdout")
}

func (c *fmtCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("fmt: no files given")
	}
	for _, path := range args {
		def, err := graph.LoadFile(path)
		if err != nil {
			return err
		}
		out := def.Encode()
		if !c.write {
			_, _ = stdout.Write(out)
			_, _ = fmt.Fprintln(stdout)
			continue
		}
		if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

type ordinalsCommand struct {
	category string
}

func (c *ordinalsCommand) Name() string        { return "ordinals" }
func (c *ordinalsCommand) Description() string { return "Print the capability ordinal table" }
func (c *ordinalsCommand) Usage() string       { return "ordinals [-category name]" }
func (c *ordinalsCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "only print this category")
}

func (c *ordinalsCommand) Execute(_ []string, stdout, _ io.Writer) error {
	reg := providers.Registry()
	cats := reg.Categories()
	if c.category != "" {
		cat, ok := capability.ParseCategory(c.category)
		if !ok {
			return fmt.Errorf("unknown category: %s", c.category)
		}
		cats = []capability.Category{cat}
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CATEGORY\tID\tNAME\tKIND")
	for _, cat := range cats {
		for _, d := range reg.Describe(cat) {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.Category, d.Ordinal, d.Name, d.Kind)
		}
	}
	return tw.Flush()
}

type compileCommand struct {
	opts  compileOptions
	steps int
	dt    float64
	seed  uint64
	trace bool
}

func (c *compileCommand) Name() string        { return "compile" }
func (c *compileCommand) Description() string { return "Compile a graph and optionally run it against a simulated body" }
func (c *compileCommand) Usage() string       { return "compile [options] <file.json>" }
func (c *compileCommand) SetupFlags(fs *flag.FlagSet) {
	c.opts.setup(fs)
	fs.IntVar(&c.steps, "steps", 0, "number of ticks to run after compiling")
	fs.Float64Var(&c.dt, "dt", 0.05, "seconds per tick")
	fs.Uint64Var(&c.seed, "seed", 1, "seed for the interpreter and body")
	fs.BoolVar(&c.trace, "trace", false, "print every node entry and transition while running")
}

func (c *compileCommand) Execute(args []string, stdout, _ io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("compile: expected exactly one file")
	}
	def, err := graph.LoadFile(args[0])
	if err != nil {
		return err
	}

	var observer behavior.Observer
	if c.trace {
		observer = behavior.ObserverFunc(func(name string, fields map[string]interface{}) {
			_, _ = fmt.Fprintf(stdout, "%8.3f %-16s %s\n", fields["clock"], name, formatFields(fields))
		})
	}
	in, body, err := c.opts.compile(def, c.seed, observer)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tKIND\tNAME\tBINDING")
	for _, n := range in.Nodes() {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", n.ID, n.Kind, n.Name, n.Binding)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for i := 0; i < c.steps && !in.Finished(); i++ {
		body.Advance(c.dt)
		if err := in.Step(c.dt); err != nil {
			return err
		}
	}
	if c.steps > 0 {
		st := in.Status()
		cur := in.Current()
		_, _ = fmt.Fprintf(stdout, "\nclock=%.3f current=%d(%s) finished=%v\n", st.Clock, cur.ID, cur.Name, st.Finished)
	}
	return nil
}

func formatFields(fields map[string]interface{}) string {
	var parts []string
	for _, k := range []string{"node", "name", "transition", "from", "to"} {
		if v, ok := fields[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
