package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ruralpay/atm/internal/models"
	"github.com/ruralpay/atm/internal/services"
	"golang.org/x/term"
)

const menu = `
MENU
------------------
1: WITHDRAW
2: DEPOSIT
3: TRANSFER
4: CHECK BALANCE
5: CHANGE PIN
6: MINI STATEMENT
0: EXIT
`

const statementSize = 5

// console is the interactive front end. It only talks to the Terminal and
// never sees storage.
type console struct {
	in       *bufio.Reader
	out      io.Writer
	terminal *services.Terminal

	// set when stdin is a tty so PINs are read without echo
	ttyFd int
	tty   bool
}

func newConsole(in io.Reader, out io.Writer, terminal *services.Terminal) *console {
	c := &console{in: bufio.NewReader(in), out: out, terminal: terminal}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.ttyFd = int(f.Fd())
		c.tty = true
	}
	return c
}

// Run asks for a card until one authenticates or the user gives up, then
// serves the menu until EXIT or end of input.
func (c *console) Run(ctx context.Context) error {
	defer c.terminal.CloseSession()

	for {
		err := c.insertCard(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.println(message(err))
		again, err := c.prompt("Do you wish to insert card again (y/n): ")
		if err != nil || !strings.HasPrefix(strings.ToLower(again), "y") {
			return nil
		}
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.println(menu)
		line, err := c.prompt("Choose: ")
		if err != nil {
			return nil
		}
		choice, err := strconv.Atoi(line)
		if err != nil {
			c.println("Input must be an integer")
			continue
		}

		if choice == 0 {
			c.println("Thank you for using our ATM")
			return nil
		}

		err = c.dispatch(ctx, choice)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, services.ErrNoActiveSession):
			c.println(message(err))
			return nil
		default:
			c.println(message(err))
		}
	}
}

func (c *console) dispatch(ctx context.Context, choice int) error {
	switch choice {
	case 1:
		return c.withdraw(ctx)
	case 2:
		return c.deposit(ctx)
	case 3:
		return c.transfer(ctx)
	case 4:
		return c.balance(ctx)
	case 5:
		return c.changePin(ctx)
	case 6:
		return c.statement(ctx)
	default:
		c.println("Invalid option")
		return nil
	}
}

func (c *console) insertCard(ctx context.Context) error {
	c.println("INSERT CARD")
	number, err := c.prompt("Card Number: ")
	if err != nil {
		return err
	}
	cvc, err := c.prompt("CVC: ")
	if err != nil {
		return err
	}
	expiration, err := c.prompt("Expiration Date (MM/YY): ")
	if err != nil {
		return err
	}
	pin, err := c.secret("Enter PIN: ")
	if err != nil {
		return err
	}

	fields, err := c.terminal.ScanCardFields(number, cvc, expiration, pin)
	if err != nil {
		return err
	}
	_, err = c.terminal.Authenticate(ctx, fields)
	return err
}

func (c *console) withdraw(ctx context.Context) error {
	amount, err := c.amount("Amount to withdraw: ")
	if err != nil {
		return err
	}
	balance, err := c.terminal.Withdraw(ctx, amount)
	if err != nil {
		return err
	}
	c.printf("Withdrawal successful! New balance: %s\n", balance)
	return nil
}

func (c *console) deposit(ctx context.Context) error {
	amount, err := c.amount("Amount to deposit: ")
	if err != nil {
		return err
	}
	balance, err := c.terminal.Deposit(ctx, amount)
	if err != nil {
		return err
	}
	c.printf("Deposit successful! New balance: %s\n", balance)
	return nil
}

func (c *console) transfer(ctx context.Context) error {
	amount, err := c.amount("Transfer amount: ")
	if err != nil {
		return err
	}
	if amount <= 0 {
		return services.ErrInvalidAmount
	}

	accounts, err := c.terminal.ListOwnerAccounts(ctx)
	if err != nil {
		return err
	}
	current := c.terminal.Session()
	if current == nil {
		return services.ErrNoActiveSession
	}

	choices := make(map[int64]bool, len(accounts))
	for _, a := range accounts {
		c.printf("Account: %d, Type: %s\n", a.ID, a.Type)
		if a.ID != current.AccountID {
			choices[a.ID] = true
		}
	}
	if len(choices) == 0 {
		c.println("No other account to transfer to")
		return nil
	}

	var destination int64
	for {
		line, err := c.prompt("Transfer to which account: ")
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			c.println("Please enter a valid account number.")
			continue
		}
		if !choices[id] {
			c.println("Invalid choice. Please select a valid account.")
			continue
		}
		destination = id
		break
	}

	balance, err := c.terminal.Transfer(ctx, amount, destination)
	if err != nil {
		return err
	}
	c.printf("Transfer successful! New balance: %s\n", balance)
	return nil
}

func (c *console) balance(ctx context.Context) error {
	balance, err := c.terminal.GetBalance(ctx)
	if err != nil {
		return err
	}
	c.printf("Current balance: %s\n", balance)
	return nil
}

// changePin keeps asking for the new pair until it is four matching digits,
// then submits all three values at once.
func (c *console) changePin(ctx context.Context) error {
	current, err := c.secret("Enter your pin: ")
	if err != nil {
		return err
	}

	var newPin string
	for {
		newPin, err = c.secret("Enter new pin: ")
		if err != nil {
			return err
		}
		confirm, err := c.secret("Confirm pin: ")
		if err != nil {
			return err
		}
		if newPin == confirm && len(newPin) == 4 && isAllDigits(newPin) {
			break
		}
		c.println("New pin must be 4 digits and match the confirmation")
	}

	if err := c.terminal.ChangePin(ctx, current, newPin, newPin); err != nil {
		return err
	}
	c.println("Pin changed successfully")
	return nil
}

func (c *console) statement(ctx context.Context) error {
	entries, err := c.terminal.History(ctx, statementSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		c.println("No transactions yet")
		return nil
	}
	for _, e := range entries {
		c.printf("%s  %-6s %12s  balance %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.EntryType, e.Amount, e.BalanceAfter)
	}
	return nil
}

func (c *console) amount(prompt string) (models.Amount, error) {
	line, err := c.prompt(prompt)
	if err != nil {
		return 0, err
	}
	return models.ParseAmount(line)
}

// prompt reads one trimmed line. A final line without newline is still
// returned; io.EOF is only reported when nothing was read.
func (c *console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *console) secret(label string) (string, error) {
	if !c.tty {
		return c.prompt(label)
	}
	fmt.Fprint(c.out, label)
	b, err := term.ReadPassword(c.ttyFd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (c *console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// message turns an error into what the card holder sees
func message(err error) string {
	var fieldErr *services.InvalidCardFieldError
	switch {
	case errors.As(err, &fieldErr):
		switch fieldErr.Field {
		case "number":
			return "Invalid card number"
		case "cvc":
			return "Invalid CVC"
		case "expiration":
			return "Invalid expiration date"
		default:
			return "Invalid PIN"
		}
	case errors.Is(err, models.ErrInvalidAmountFormat):
		return "Invalid amount, use dollars.cents e.g. 20.00"
	case errors.Is(err, services.ErrAuthenticationFailed):
		return "Card not recognised"
	case errors.Is(err, services.ErrNoActiveSession):
		return "Session ended, please insert your card again"
	case errors.Is(err, services.ErrInvalidAmount):
		return "Amount must be greater than zero"
	case errors.Is(err, services.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, services.ErrInvalidDestination):
		return "Invalid destination account"
	case errors.Is(err, services.ErrRecipientNotFound):
		return "Recipient account not found"
	case errors.Is(err, services.ErrWrongPin):
		return "Wrong pin"
	case errors.Is(err, services.ErrInvalidPin):
		return "New pin is invalid"
	case errors.Is(err, services.ErrAccountNotFound):
		return "Account not found"
	case services.Category(err) == services.CategoryTransient:
		return "Service temporarily unavailable, please try again"
	default:
		return "Something went wrong, please try again"
	}
}
