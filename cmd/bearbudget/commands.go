package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/services"
)

type app struct {
	coord  *services.Coordinator
	view   *services.View
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

type command func(ctx context.Context, fs *flag.FlagSet, args []string) error

func (a *app) commands() map[string]command {
	return map[string]command{
		"accounts":       a.accounts,
		"transactions":   a.transactions,
		"feed":           a.feed,
		"cards":          a.cards,
		"categories":     a.categories,
		"summary":        a.summary,
		"balance":        a.balance,
		"add-account":    a.addAccount,
		"delete-account": a.deleteAccount,
		"delete-card":    a.deleteCard,
		"add-tx":         a.addTransaction,
		"update-tx":      a.updateTransaction,
		"delete-tx":      a.deleteTransaction,
		"adjust":         a.adjust,
		"transfer":       a.transfer,
		"pay":            a.pay,
	}
}

func (a *app) run(ctx context.Context, name string, args []string) error {
	cmd, ok := a.commands()[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	errOut := a.errOut
	if errOut == nil {
		errOut = os.Stderr
	}
	fs.SetOutput(errOut)
	return cmd(ctx, fs, args)
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *app) currentMonth() core.Month {
	return core.CurrentMonth(a.now())
}

// Reads

func (a *app) accounts(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	accounts, err := a.coord.FetchAccounts(ctx, a.view)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "NAME\tKIND\tBALANCE")
	for _, acc := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", acc.Name, acc.Kind, core.FormatAmount(acc.Balance))
	}
	nw := a.view.Snapshot().NetWorth()
	fmt.Fprintf(w, "\nsavings\t\t%s\n", core.FormatAmount(nw.TotalSavings))
	fmt.Fprintf(w, "debt\t\t%s\n", core.FormatAmount(nw.TotalDebt))
	fmt.Fprintf(w, "net worth\t\t%s\n", core.FormatAmount(nw.Net))
	return w.Flush()
}

func (a *app) transactions(ctx context.Context, fs *flag.FlagSet, args []string) error {
	month := fs.String("month", "", "month as YYYY-MM (default current month)")
	account := fs.String("account", "", "account name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m := core.Month(*month)
	if m == "" {
		m = a.currentMonth()
	}
	if strings.TrimSpace(*account) == "" {
		return fmt.Errorf("%w: -account is required", core.ErrInvalidAccount)
	}
	txs, err := a.coord.FetchTransactions(ctx, a.view, m, *account)
	if err != nil {
		return err
	}
	return a.printTransactions(txs)
}

func (a *app) feed(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.coord.FetchTransactions(ctx, a.view, a.currentMonth(), ""); err != nil {
		return err
	}
	return a.printTransactions(a.view.Snapshot().Feed)
}

func (a *app) printTransactions(txs []core.Transaction) error {
	w := a.table()
	fmt.Fprintln(w, "ID\tDATE\tDESCRIPTION\tAMOUNT\tCARD\tCATEGORY\tTYPE\tRELATED")
	for _, tx := range txs {
		id := "-"
		if tx.HasID() {
			id = fmt.Sprint(tx.IDValue())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id, tx.Date, tx.Description, core.FormatAmount(tx.Amount), tx.Card, tx.Category, tx.Type(), tx.RelatedAccount)
	}
	return w.Flush()
}

func (a *app) cards(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	cards, err := a.coord.FetchCards(ctx, a.view)
	if err != nil {
		return err
	}
	w := a.table()
	for _, c := range cards {
		fmt.Fprintf(w, "%s\t%s\n", c.Name, core.FormatAmount(c.Balance))
	}
	return w.Flush()
}

func (a *app) categories(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	cats, err := a.coord.FetchCategories(ctx, a.view)
	if err != nil {
		return err
	}
	for _, c := range cats {
		fmt.Fprintln(a.out, c)
	}
	return nil
}

func (a *app) summary(ctx context.Context, fs *flag.FlagSet, args []string) error {
	month := fs.String("month", "", "month as YYYY-MM (default the ledger's current month)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	items, err := a.coord.FetchSummary(ctx, a.view, core.Month(*month))
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "CATEGORY\tBUDGET\tUSED\tROLLOVER\tREMAINING")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.Category,
			core.FormatAmount(it.Budget), core.FormatAmount(it.AmountUsed),
			core.FormatAmount(it.Rollover), core.FormatAmount(it.Remaining))
	}
	totals := a.view.Snapshot().SummaryTotals()
	fmt.Fprintf(w, "total\t%s\t\t\t%s\n", core.FormatAmount(totals.Budget), core.FormatAmount(totals.Remaining))
	return w.Flush()
}

func (a *app) balance(ctx context.Context, fs *flag.FlagSet, args []string) error {
	account := fs.String("account", "", "account name")
	start := fs.String("start", "0", "opening balance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opening, err := core.ParseAmount(*start)
	if err != nil {
		return err
	}
	if _, err := a.coord.FetchAccounts(ctx, a.view); err != nil {
		return err
	}
	if _, err := a.coord.FetchTransactions(ctx, a.view, a.currentMonth(), *account); err != nil {
		return err
	}
	derived, err := a.coord.DerivedBalance(a.view, *account, opening)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\n", *account, core.FormatAmount(derived))
	return nil
}

// Writes

func (a *app) addAccount(ctx context.Context, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "account name")
	typ := fs.String("type", string(core.TypeChecking), "Checking, Savings, Debit, Credit Card, Loan")
	bal := fs.String("balance", "0", "opening balance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := core.ParseAccountType(*typ)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(*bal)
	if err != nil {
		return err
	}
	if err := a.coord.AddAccount(ctx, a.view, *name, t, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s account %s\n", t.Kind(), strings.TrimSpace(*name))
	return nil
}

func (a *app) deleteAccount(ctx context.Context, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "account name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.coord.FetchAccounts(ctx, a.view); err != nil {
		return err
	}
	if err := a.coord.DeleteAccount(ctx, a.view, *name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted account %s\n", *name)
	return nil
}

func (a *app) deleteCard(ctx context.Context, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "card name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.coord.DeleteCard(ctx, a.view, *name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted card %s\n", *name)
	return nil
}

// txFlags registers the transaction fields on fs.
func (a *app) txFlags(fs *flag.FlagSet) func() (core.Transaction, error) {
	date := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	card := fs.String("card", "", "account the transaction is posted to")
	category := fs.String("category", "", "budget category")
	notes := fs.String("notes", "", "notes")
	typ := fs.String("type", string(core.Expense), "expense or income")
	related := fs.String("related", "", "related account of a transfer")
	return func() (core.Transaction, error) {
		x, err := core.ParseAmount(*amount)
		if err != nil {
			return core.Transaction{}, err
		}
		d := *date
		if d == "" {
			d = core.Today(a.now())
		}
		return core.Transaction{
			Date:            d,
			Amount:          x,
			Description:     *desc,
			Card:            *card,
			Category:        *category,
			Notes:           *notes,
			TransactionType: core.TransactionType(*typ),
			RelatedAccount:  *related,
		}, nil
	}
}

func (a *app) addTransaction(ctx context.Context, fs *flag.FlagSet, args []string) error {
	build := a.txFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	tx, err := build()
	if err != nil {
		return err
	}
	if err := a.coord.AddTransaction(ctx, a.view, tx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "recorded %s %s on %s\n", tx.Type(), core.FormatAmount(tx.Amount), tx.Card)
	return nil
}

func (a *app) updateTransaction(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "transaction id")
	build := a.txFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	tx, err := build()
	if err != nil {
		return err
	}
	if err := a.coord.UpdateTransaction(ctx, a.view, *id, tx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated transaction %d\n", *id)
	return nil
}

func (a *app) deleteTransaction(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.coord.DeleteTransaction(ctx, a.view, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted transaction %d\n", *id)
	return nil
}

func (a *app) adjust(ctx context.Context, fs *flag.FlagSet, args []string) error {
	account := fs.String("account", "", "account name")
	action := fs.String("action", "", "deposit, withdraw, payment or update_balance")
	amount := fs.String("amount", "", "amount, or the new balance for update_balance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	x, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	if err := a.coord.AdjustFunds(ctx, a.view, *account, core.AdjustAction(*action), x); err != nil {
		return err
	}
	return a.printBalance(*account)
}

func (a *app) transfer(ctx context.Context, fs *flag.FlagSet, args []string) error {
	from := fs.String("from", "", "source account")
	to := fs.String("to", "", "destination account")
	amount := fs.String("amount", "", "amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	x, err := core.ParsePositiveAmount(*amount)
	if err != nil {
		return err
	}
	if err := a.coord.TransferFunds(ctx, a.view, *from, *to, x); err != nil {
		return err
	}
	if err := a.printBalance(*from); err != nil {
		return err
	}
	return a.printBalance(*to)
}

func (a *app) pay(ctx context.Context, fs *flag.FlagSet, args []string) error {
	debt := fs.String("debt", "", "debt account")
	from := fs.String("from", "", "bank account paying (optional)")
	amount := fs.String("amount", "", "amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	x, err := core.ParsePositiveAmount(*amount)
	if err != nil {
		return err
	}
	if err := a.coord.MakePayment(ctx, a.view, *debt, *from, x); err != nil {
		return err
	}
	return a.printBalance(*debt)
}

func (a *app) printBalance(account string) error {
	acc, ok := a.view.Snapshot().FindAccount(account)
	if !ok {
		return fmt.Errorf("%w: %q", services.ErrAccountNotFound, account)
	}
	fmt.Fprintf(a.out, "%s\t%s\n", acc.Name, core.FormatAmount(acc.Balance))
	return nil
}
