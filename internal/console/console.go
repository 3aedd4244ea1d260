// internal/console/console.go

// Package console is the interactive menu front-end of the library.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/logger"
	"librarydesk/internal/storage"
)

const menu = `Menu:
1. Add Book
2. Register User
3. Issue Book
4. Return Book
5. Display Borrowed Books
6. Find Books by Author
7. Find Book by Title
8. List Catalog
9. Book History
10. Save Data
11. Load Data
12. Session Journal
0. Exit
Choose an option: `

const optionExit = 0

// Console reads menu selections and field values line by line and calls
// into the library. Domain failures are printed and the loop continues.
type Console struct {
	library circulation.Service
	store   storage.Store
	in      *bufio.Scanner
	out     io.Writer
	log     *logger.Logger
	actions map[int]func(context.Context) error
}

func New(library circulation.Service, store storage.Store, in io.Reader, out io.Writer, log *logger.Logger) *Console {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Console{
		library: library,
		store:   store,
		in:      bufio.NewScanner(in),
		out:     out,
		log:     log.With("component", "console"),
	}
	c.actions = map[int]func(context.Context) error{
		1:  c.addBook,
		2:  c.registerUser,
		3:  c.issueBook,
		4:  c.returnBook,
		5:  c.displayBorrowed,
		6:  c.findByAuthor,
		7:  c.findByTitle,
		8:  c.listCatalog,
		9:  c.bookHistory,
		10: c.saveData,
		11: c.loadData,
		12: c.sessionJournal,
	}
	return c
}

// Run shows the menu until the operator exits, input ends, or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, menu)

		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out, "\nExiting...")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out)

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && choice == optionExit {
			fmt.Fprintln(c.out, "Exiting...")
			return nil
		}
		action, ok := c.actions[choice]
		if err != nil || !ok {
			fmt.Fprintln(c.out, "Invalid option. Please try again.")
			continue
		}

		if err := action(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out, "\nExiting...")
				return nil
			}
			return err
		}
		fmt.Fprintln(c.out)
	}
}

func (c *Console) readLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.in.Text(), "\r"), nil
}

func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	return c.readLine()
}

// prompts asks for each label in turn.
func (c *Console) prompts(labels ...string) ([]string, error) {
	values := make([]string, 0, len(labels))
	for _, label := range labels {
		v, err := c.prompt(label)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (c *Console) printBook(b catalog.Book) {
	available := "No"
	if b.Available {
		available = "Yes"
	}
	fmt.Fprintf(c.out, "Title: %s, Author: %s, ISBN: %s, Available: %s\n", b.Title, b.Author, b.ISBN, available)
}

// describe turns a library error into an operator message.
func describe(err error) string {
	switch {
	case errors.Is(err, circulation.ErrMemberNotFound):
		return "User not found."
	case errors.Is(err, circulation.ErrBookNotFound):
		return "Book not found."
	case errors.Is(err, circulation.ErrBookUnavailable):
		return "Book is not available."
	case errors.Is(err, circulation.ErrDuplicateMemberID):
		return "User ID already exists. Please choose a different ID."
	default:
		return "Error: " + err.Error()
	}
}
