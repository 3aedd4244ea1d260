// internal/console/actions.go
package console

import (
	"context"
	"errors"
	"fmt"

	"librarydesk/internal/circulation"
)

func (c *Console) addBook(ctx context.Context) error {
	v, err := c.prompts("Enter title: ", "Enter author: ", "Enter ISBN: ")
	if err != nil {
		return err
	}
	if _, err := c.library.AddBook(ctx, v[0], v[1], v[2]); err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	fmt.Fprintln(c.out, "Book added successfully.")
	return nil
}

func (c *Console) registerUser(ctx context.Context) error {
	v, err := c.prompts("Enter user name: ", "Enter user ID: ")
	if err != nil {
		return err
	}
	if _, err := c.library.RegisterUser(ctx, v[0], v[1]); err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	fmt.Fprintln(c.out, "User registered successfully.")
	return nil
}

func (c *Console) issueBook(ctx context.Context) error {
	v, err := c.prompts("Enter user ID: ", "Enter book title: ")
	if err != nil {
		return err
	}
	book, err := c.library.IssueBook(ctx, v[0], v[1])
	if err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	fmt.Fprintf(c.out, "%s borrowed %q.\n", c.memberName(ctx, v[0]), book.Title)
	return nil
}

func (c *Console) returnBook(ctx context.Context) error {
	v, err := c.prompts("Enter user ID: ", "Enter book title: ")
	if err != nil {
		return err
	}
	book, err := c.library.ReturnBook(ctx, v[0], v[1])
	switch {
	case errors.Is(err, circulation.ErrNotBorrowedByMember):
		fmt.Fprintf(c.out, "This book was not borrowed by %s.\n", c.memberName(ctx, v[0]))
	case err != nil:
		fmt.Fprintln(c.out, describe(err))
	default:
		fmt.Fprintf(c.out, "%s returned %q.\n", c.memberName(ctx, v[0]), book.Title)
	}
	return nil
}

func (c *Console) memberName(ctx context.Context, id string) string {
	member, err := c.library.FindUserByID(ctx, id)
	if err != nil {
		return id
	}
	return member.Name
}

func (c *Console) displayBorrowed(ctx context.Context) error {
	id, err := c.prompt("Enter user ID: ")
	if err != nil {
		return err
	}
	books, err := c.library.BorrowedBooks(ctx, id)
	if err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	fmt.Fprintf(c.out, "%s's borrowed books:\n", c.memberName(ctx, id))
	for _, b := range books {
		c.printBook(b)
	}
	return nil
}

func (c *Console) findByAuthor(ctx context.Context) error {
	author, err := c.prompt("Enter author name: ")
	if err != nil {
		return err
	}
	books, err := c.library.FindBooksByAuthor(ctx, author)
	if err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books found by this author.")
		return nil
	}
	for _, b := range books {
		c.printBook(b)
	}
	return nil
}

func (c *Console) findByTitle(ctx context.Context) error {
	title, err := c.prompt("Enter book title: ")
	if err != nil {
		return err
	}
	book, err := c.library.FindBookByTitle(ctx, title)
	if err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	c.printBook(book)
	return nil
}

func (c *Console) listCatalog(ctx context.Context) error {
	books := c.library.ListBooks(ctx)
	if len(books) == 0 {
		fmt.Fprintln(c.out, "The catalog is empty.")
		return nil
	}
	for _, b := range books {
		c.printBook(b)
	}
	return nil
}

func (c *Console) bookHistory(ctx context.Context) error {
	title, err := c.prompt("Enter book title: ")
	if err != nil {
		return err
	}
	events, err := c.library.History(ctx, title)
	if err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	if len(events) == 0 {
		fmt.Fprintln(c.out, "No history recorded since the last load.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(c.out, "v%d %s %s %s\n", e.Version, e.CreatedAt.Format("2006-01-02 15:04:05"), e.EventType, e.EventData)
	}
	return nil
}

func (c *Console) sessionJournal(ctx context.Context) error {
	events, err := c.library.Journal(ctx)
	if err != nil {
		fmt.Fprintln(c.out, describe(err))
		return nil
	}
	if len(events) == 0 {
		fmt.Fprintln(c.out, "No history recorded since the last load.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(c.out, "#%d %s %s/%s v%d %s %s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.AggregateType, e.AggregateID, e.Version, e.EventType, e.EventData)
	}
	return nil
}

func (c *Console) saveData(ctx context.Context) error {
	target, err := c.prompt("Enter filename to save data: ")
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, target, c.library.Snapshot(ctx)); err != nil {
		c.log.Error("save failed", "target", target, "error", err)
		fmt.Fprintf(c.out, "Failed to save data: %v\n", err)
		return nil
	}
	fmt.Fprintln(c.out, "Data saved successfully.")
	return nil
}

func (c *Console) loadData(ctx context.Context) error {
	source, err := c.prompt("Enter filename to load data: ")
	if err != nil {
		return err
	}
	snap, err := c.store.Load(ctx, source)
	if err == nil {
		err = c.library.Restore(ctx, snap)
	}
	if err != nil {
		c.log.Error("load failed", "source", source, "error", err)
		fmt.Fprintf(c.out, "Failed to load data: %v\n", err)
		return nil
	}
	fmt.Fprintln(c.out, "Data loaded successfully.")
	return nil
}
