package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/referral/referral/internal/collection"
	"github.com/referral/referral/internal/dashboard"
)

type runner interface {
	list(ctx context.Context, o listOptions) error
	show(ctx context.Context, id string) error
	browse(ctx context.Context, in io.Reader) error
	close()
}

type listOptions struct {
	search string
	page   int
	sort   collection.Sort
}

// console drives one controller from the command line.
type console[T any] struct {
	ctl     *collection.Controller[*T]
	svc     dashboard.Service[T]
	view    view[T]
	out     io.Writer
	changed chan struct{}
	unsub   func()
}

func newConsole[T any](svc dashboard.Service[T], v view[T], out io.Writer, opts []collection.Option) *console[T] {
	c := &console[T]{
		ctl:     collection.New[*T](svc.Fetch, opts...),
		svc:     svc,
		view:    v,
		out:     out,
		changed: make(chan struct{}, 1),
	}
	c.unsub = c.ctl.Subscribe(func(collection.State[*T]) {
		select {
		case c.changed <- struct{}{}:
		default:
		}
	})
	return c
}

func (c *console[T]) close() {
	c.unsub()
	c.ctl.Dispose()
}

// await blocks until a snapshot newer than after has finished loading.
func (c *console[T]) await(ctx context.Context, after uint64) (collection.State[*T], error) {
	for {
		st := c.ctl.Snapshot()
		if st.Version > after && !st.Loading {
			return st, nil
		}
		select {
		case <-c.changed:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

func (c *console[T]) trigger(ctx context.Context, fn func()) (collection.State[*T], error) {
	after := c.ctl.Snapshot().Version
	fn()
	return c.await(ctx, after)
}

func (c *console[T]) list(ctx context.Context, o listOptions) error {
	st, err := c.trigger(ctx, func() {
		if o.sort.Field != "" {
			c.ctl.SetSort(o.sort.Field, o.sort.Direction)
			return
		}
		c.ctl.Refresh()
	})
	if err != nil {
		return err
	}
	if o.search != "" {
		if st, err = c.trigger(ctx, func() { c.ctl.SetSearch(o.search) }); err != nil {
			return err
		}
	}
	if o.page > 1 {
		if st, err = c.trigger(ctx, func() { c.ctl.SetPage(o.page) }); err != nil {
			return err
		}
	}
	if st.Error != nil {
		return st.Error
	}
	c.view.render(c.out, st)
	return nil
}

func (c *console[T]) show(ctx context.Context, id string) error {
	item, err := c.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(b))
	return nil
}

const browseHelp = `commands:
  search <text>         filter by free text (debounced)
  filter <key> <value>  set a filter; "all" clears it
  page <n> | next | prev
  sort <field> [asc|desc]
  show <id>
  delete <id>
  refresh
  quit`

func (c *console[T]) browse(ctx context.Context, in io.Reader) error {
	st, err := c.trigger(ctx, c.ctl.Refresh)
	if err != nil {
		return err
	}
	c.view.render(c.out, st)
	fmt.Fprintln(c.out, `type "help" for commands`)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		quit, err := c.exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

var errUsage = errors.New("usage")

// exec runs one browse command and renders the resulting snapshot.
func (c *console[T]) exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var trigger func()
	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(c.out, browseHelp)
		return false, nil
	case "search":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		trigger = func() { c.ctl.SetSearch(text) }
	case "filter":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: filter <key> <value>", errUsage)
		}
		trigger = func() { c.ctl.SetFilter(args[0], args[1]) }
	case "page":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: page <n>", errUsage)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("%w: page <n>", errUsage)
		}
		trigger = func() { c.ctl.SetPage(n) }
	case "next", "prev":
		page := c.ctl.Snapshot().Query.Page
		if cmd == "next" {
			page++
		} else {
			page--
		}
		trigger = func() { c.ctl.SetPage(page) }
	case "sort":
		if len(args) < 1 || len(args) > 2 {
			return false, fmt.Errorf("%w: sort <field> [asc|desc]", errUsage)
		}
		dir := collection.Asc
		if len(args) == 2 {
			dir = collection.ParseDirection(args[1])
		}
		trigger = func() { c.ctl.SetSort(args[0], dir) }
	case "refresh", "r":
		trigger = c.ctl.Refresh
	case "show":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: show <id>", errUsage)
		}
		return false, c.show(ctx, args[0])
	case "delete":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: delete <id>", errUsage)
		}
		after := c.ctl.Snapshot().Version
		err := c.ctl.Mutate(ctx, func(ctx context.Context) error {
			return c.svc.Delete(ctx, args[0])
		})
		if err != nil {
			return false, err
		}
		st, err := c.await(ctx, after)
		if err != nil {
			return false, err
		}
		c.view.render(c.out, st)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}

	st, err := c.trigger(ctx, trigger)
	if err != nil {
		return false, err
	}
	c.view.render(c.out, st)
	return false, nil
}

// parseFilters reads repeated k=v flags.
func parseFilters(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q must be key=value", kv)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// parseSort reads field[:asc|desc].
func parseSort(raw string) collection.Sort {
	field, dir, _ := strings.Cut(strings.TrimSpace(raw), ":")
	return collection.Sort{Field: strings.TrimSpace(field), Direction: collection.ParseDirection(dir)}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
