// Package admin implements the interactive bootstrap of administrator
// accounts: an existing user is promoted, otherwise a new admin is created
// with a password typed on the terminal.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// Accounts is the part of the user service the bootstrap needs.
type Accounts interface {
	PromoteAdmin(ctx context.Context, userName string) (*models.User, error)
	CreateAdmin(ctx context.Context, userName, email, password string) (*models.User, error)
}

type Bootstrap struct {
	accounts Accounts
	reader   *bufio.Reader
	out      io.Writer
}

func NewBootstrap(accounts Accounts, in io.Reader, out io.Writer) *Bootstrap {
	return &Bootstrap{accounts: accounts, reader: bufio.NewReader(in), out: out}
}

// Run makes userName an admin. Missing names and emails are asked for.
func (b *Bootstrap) Run(ctx context.Context, userName, email string) (*models.User, error) {
	var err error

	if userName == "" {
		if userName, err = GetSimpleText(b.reader, "Enter admin user name", b.out); err != nil {
			return nil, err
		}
	}

	u, err := b.accounts.PromoteAdmin(ctx, userName)
	if err == nil {
		fmt.Fprintf(b.out, "User %s is now an admin\n", u.UserName)
		return u, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if email == "" {
		if email, err = GetSimpleText(b.reader, "Enter email", b.out); err != nil {
			return nil, err
		}
	}

	password, err := GetPassword("Enter password", b.out)
	if err != nil {
		return nil, err
	}
	confirm, err := GetPassword("Repeat password", b.out)
	if err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	u, err = b.accounts.CreateAdmin(ctx, userName, email, password)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(b.out, "Admin %s created\n", u.UserName)
	return u, nil
}
