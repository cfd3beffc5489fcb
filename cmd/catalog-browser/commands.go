package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// errQuit ends the session.
var errQuit = errors.New("quit")

const helpText = `Commands:
  n, next            next page
  p, prev            previous page
  page <n>           go to page n
  cat [id]           filter by category id (no id clears)
  cats               list categories
  level [level]      filter by BEGINNER, INTERMEDIATE or ADVANCED (no level clears)
  sort <mode>        default, popular, rating, price-asc, price-desc, newest
  clear              clear filters and sort
  show               redraw the current page
  config             print the configuration
  help               show this help
  q, quit            exit
`

// command is one parsed input line.
type command struct {
	name string
	arg  string
}

// parseCommand splits a line into a command name and its argument.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{name: "show"}, nil
	}

	name := strings.ToLower(fields[0])
	arg := strings.Join(fields[1:], " ")

	switch name {
	case "n", "next":
		return command{name: "next"}, nil
	case "p", "prev", "previous":
		return command{name: "prev"}, nil
	case "q", "quit", "exit":
		return command{name: "quit"}, nil
	case "page":
		if arg == "" {
			return command{}, fmt.Errorf("page needs a number")
		}
		if _, err := strconv.Atoi(arg); err != nil {
			return command{}, fmt.Errorf("invalid page %q", arg)
		}
		return command{name: name, arg: arg}, nil
	case "sort":
		if arg == "" {
			return command{}, fmt.Errorf("sort needs a mode")
		}
		return command{name: name, arg: arg}, nil
	case "cat", "cats", "level", "clear", "show", "config", "help":
		return command{name: name, arg: arg}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

// execute applies cmd to the session.
func (a *app) execute(ctx context.Context, cmd command) error {
	b := a.browser

	switch cmd.name {
	case "quit":
		return errQuit
	case "next":
		return b.OnPageChange(b.Filter().Page + 1)
	case "prev":
		return b.OnPageChange(b.Filter().Page - 1)
	case "page":
		page, _ := strconv.Atoi(cmd.arg)
		return b.OnPageChange(page)
	case "cat":
		return b.OnCategoryChange(cmd.arg)
	case "level":
		level, err := catalog.ParseLevel(cmd.arg)
		if err != nil {
			return err
		}
		return b.OnLevelChange(level)
	case "sort":
		mode, err := catalog.ParseSortMode(cmd.arg)
		if err != nil {
			return err
		}
		return b.OnSortChange(mode)
	case "clear":
		return b.OnClearFilters()
	case "cats":
		a.loadCategories(ctx)
		renderCategories(a.out, a.categories)
		return nil
	case "config":
		fmt.Fprint(a.out, a.config.String())
		return nil
	case "help":
		fmt.Fprint(a.out, helpText)
		return nil
	case "show":
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.name)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "! %v\n", err)
}
