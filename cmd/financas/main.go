package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/budget"
	"financas/internal/classifier"
	"financas/internal/cli"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger("warn")

	var err error
	switch os.Args[1] {
	case "import":
		err = withApp(logger, runImport)
	case "import-sheet":
		err = withApp(logger, runImportSheet)
	case "transactions":
		err = withApp(logger, runTransactions)
	case "debts":
		err = withApp(logger, runDebts)
	case "pay":
		err = withApp(logger, runPay)
	case "cycle":
		err = withApp(logger, runCycle)
	case "portfolio":
		err = withApp(logger, runPortfolio)
	case "return":
		err = withApp(logger, runReturn)
	case "budget":
		err = withApp(logger, runBudget)
	case "categories":
		err = withApp(logger, runCategories)
	case "rules":
		runRules()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], log.FieldError, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Household finance CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  financas <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import        Parse statement files (.csv, .txt) and optionally approve them")
	fmt.Println("  import-sheet  Parse a spreadsheet statement range and optionally approve it")
	fmt.Println("  transactions  List the transactions and overview of a month")
	fmt.Println("  debts         Show the debt report, or register a debt with -add")
	fmt.Println("  pay           Pay an installment of a debt")
	fmt.Println("  cycle         Apply interest capitalization and statuses for a month")
	fmt.Println("  portfolio     Show the investment report, or register a holding with -add")
	fmt.Println("  return        Record a monthly return on a holding")
	fmt.Println("  budget        Compare planned and actual spending, or plan with -category")
	fmt.Println("  categories    List categories, or add, rename and delete them")
	fmt.Println("  rules         Print the categorization rules")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'financas <command> -h' for more information on a command.")
}

type command func(ctx context.Context, app *cli.App, args []string) error

func withApp(logger *log.Logger, run command) error {
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	app, err := cli.Bootstrap(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to release resources", log.FieldError, err)
		}
	}()
	return run(ctx, app, os.Args[2:])
}

func parsePeriod(raw string) (core.Period, error) {
	if raw == "" {
		return core.CurrentPeriod(), nil
	}
	return core.ParsePeriod(raw)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func batchFlags(fs *flag.FlagSet) (account, period *string, approve *bool) {
	account = fs.String("account", "", "Account to book the rows under (default: first account)")
	period = fs.String("period", "", "Reference month yyyy-mm (default: current month)")
	approve = fs.Bool("approve", false, "Approve the batch after printing it")
	return
}

func finishBatch(ctx context.Context, app *cli.App, b *services.Batch, account, period string, approve bool) error {
	if account != "" {
		b.Account = account
	}
	if period != "" {
		p, err := core.ParsePeriod(period)
		if err != nil {
			return err
		}
		b.Period = p
	}

	w := newTable()
	fmt.Fprintf(w, "DATE\tDESCRIPTION\tAMOUNT\tTYPE\tCATEGORY\tSUBCATEGORY\n")
	for _, p := range b.Pending {
		date := p.Date.String()
		if !p.DateParsed {
			date = "?" + date
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", date, p.Description, money(p.Amount), p.SuggestedType, p.SuggestedCategory, p.SuggestedSubcategory)
	}
	w.Flush()
	fmt.Printf("\n%d rows from %s, account %s, period %s\n", len(b.Pending), b.Source, b.Account, b.Period)

	if !approve {
		return nil
	}
	txs, err := app.Imports.Approve(ctx, b)
	if err != nil {
		return err
	}
	fmt.Printf("Approved %d transactions.\n", len(txs))
	return nil
}

func runImport(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	account, period, approve := batchFlags(fs)
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("usage: financas import [-account NAME] [-period yyyy-mm] [-approve] FILE...")
	}
	b, err := app.Imports.ImportFiles(ctx, fs.Args()...)
	if err != nil {
		return err
	}
	return finishBatch(ctx, app, b, *account, *period, *approve)
}

func runImportSheet(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("import-sheet", flag.ExitOnError)
	rangeA1 := fs.String("range", "", "A1 range to read (default: GOOGLE_STATEMENT_RANGE)")
	account, period, approve := batchFlags(fs)
	fs.Parse(args)

	b, err := app.Imports.ImportSheet(ctx, *rangeA1)
	if err != nil {
		return err
	}
	return finishBatch(ctx, app, b, *account, *period, *approve)
}

func runTransactions(_ context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	period := fs.String("period", "", "Month yyyy-mm (default: current month)")
	account := fs.String("account", "", "Only this account")
	fs.Parse(args)

	p, err := parsePeriod(*period)
	if err != nil {
		return err
	}
	filter := budget.ForPeriod(p)
	if *account != "" {
		filter.Accounts = []string{*account}
	}

	w := newTable()
	fmt.Fprintf(w, "DATE\tDESCRIPTION\tAMOUNT\tTYPE\tCATEGORY\tACCOUNT\tDEBT\n")
	for _, tx := range app.Finance.Snapshot().Transactions {
		if !filter.Match(tx) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", tx.Date, tx.Description, money(tx.Amount), tx.Type, tx.Category, tx.Account, tx.LinkedDebtID)
	}
	w.Flush()

	o := app.Finance.Overview(filter)
	fmt.Printf("\nIncome %s  Expenses %s  Debt payments %s  Balance %s\n", money(o.Income), money(o.Expenses), money(o.DebtPayments), money(o.Balance))
	return nil
}

func runDebts(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("debts", flag.ExitOnError)
	period := fs.String("period", "", "Report month yyyy-mm (default: current month)")
	months := fs.Int("months", 6, "Months of evolution to show")
	add := fs.Bool("add", false, "Register a new debt")
	creditor := fs.String("creditor", "", "Creditor (with -add)")
	description := fs.String("description", "", "Description (with -add)")
	balance := fs.String("balance", "", "Outstanding balance (with -add)")
	rate := fs.String("rate", "0", "Monthly interest rate in percent (with -add)")
	installment := fs.String("installment", "0", "Installment amount (with -add)")
	installments := fs.Int("installments", 0, "Remaining installments (with -add)")
	fs.Parse(args)

	if *add {
		bal, err := parseAmount(*balance)
		if err != nil {
			return err
		}
		r, err := parseAmount(*rate)
		if err != nil {
			return err
		}
		inst, err := parseAmount(*installment)
		if err != nil {
			return err
		}
		d, err := app.Finance.AddDebt(ctx, core.Debt{
			Creditor:              *creditor,
			Description:           *description,
			InitialAmount:         bal,
			CurrentAmount:         bal,
			Balance:               bal,
			InterestRate:          r,
			Installment:           inst,
			RemainingInstallments: *installments,
			Status:                core.DebtCurrent,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered debt %s\n", d.ID)
		return nil
	}

	p, err := parsePeriod(*period)
	if err != nil {
		return err
	}
	r := app.Finance.DebtReport(p, *months)

	w := newTable()
	fmt.Fprintf(w, "ID\tCREDITOR\tBALANCE\tRATE\tINSTALLMENT\tLEFT\tSTATUS\tLAST PAYMENT\n")
	for _, d := range r.Debts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%s\t%d\t%s\t%s\n", d.ID, d.Creditor, money(d.Balance), d.InterestRate, money(d.Installment), d.RemainingInstallments, d.Status, d.LastPayment)
	}
	w.Flush()

	s := r.Summary
	fmt.Printf("\nOutstanding %s  Monthly installments %s  Average rate %s%%  Active %d  Overdue %d\n",
		money(s.TotalOutstanding), money(s.MonthlyInstallments), s.AverageRate.StringFixed(2), s.ActiveCount, s.OverdueCount)
	for _, e := range r.Evolution {
		fmt.Printf("  %s  %s  (%d active)\n", e.Period, money(e.Outstanding), e.ActiveDebts)
	}
	return nil
}

func runPay(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	debtID := fs.String("debt", "", "Debt id")
	amount := fs.String("amount", "", "Amount paid (default: the installment)")
	fs.Parse(args)

	if *debtID == "" {
		return fmt.Errorf("usage: financas pay -debt ID [-amount VALUE]")
	}
	var value decimal.Decimal
	if *amount == "" {
		for _, d := range app.Finance.Snapshot().Debts {
			if d.ID == *debtID {
				value = d.Installment
			}
		}
	} else {
		v, err := parseAmount(*amount)
		if err != nil {
			return err
		}
		value = v
	}

	paid, err := app.Finance.PayDebt(ctx, *debtID, value)
	if err != nil {
		return err
	}
	if !paid {
		return fmt.Errorf("debt %s not found or already settled", *debtID)
	}
	fmt.Printf("Paid %s on debt %s\n", money(value), *debtID)
	return nil
}

func runCycle(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("cycle", flag.ExitOnError)
	period := fs.String("period", "", "Month yyyy-mm (default: current month)")
	fs.Parse(args)

	p, err := parsePeriod(*period)
	if err != nil {
		return err
	}
	if err := app.Finance.RunMonthlyCycle(ctx, p); err != nil {
		return err
	}
	fmt.Printf("Monthly cycle applied for %s\n", p)
	return nil
}

func runPortfolio(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("portfolio", flag.ExitOnError)
	period := fs.String("period", "", "Report month yyyy-mm (default: current month)")
	months := fs.Int("months", 6, "Months of evolution to show")
	add := fs.Bool("add", false, "Register a new holding")
	name := fs.String("name", "", "Holding name (with -add)")
	kind := fs.String("type", string(core.FixedIncome), "Holding type (with -add)")
	amount := fs.String("amount", "", "Contributed amount (with -add)")
	broker := fs.String("broker", "", "Broker (with -add)")
	benchmark := fs.String("benchmark", "", "Benchmark such as CDI or IPCA (with -add)")
	fs.Parse(args)

	if *add {
		v, err := parseAmount(*amount)
		if err != nil {
			return err
		}
		inv, err := app.Finance.AddInvestment(ctx, core.Investment{
			Name:        *name,
			Type:        core.InvestmentType(*kind),
			Contributed: v,
			Broker:      *broker,
			Benchmark:   *benchmark,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered holding %s\n", inv.ID)
		return nil
	}

	p, err := parsePeriod(*period)
	if err != nil {
		return err
	}
	r := app.Finance.PortfolioReport(p, *months)

	w := newTable()
	fmt.Fprintf(w, "TYPE\tCONTRIBUTED\tCURRENT\tGAIN\n")
	for _, a := range r.Composition {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Type, money(a.Contributed), money(a.Current), money(a.Gain))
	}
	w.Flush()

	fmt.Printf("\nTotal %s  Contributed %s  Gain %s  Average return %s%%\n",
		money(r.Totals.Current), money(r.Totals.Contributed), money(r.Totals.Gain), r.AverageReturn.StringFixed(2))
	fmt.Printf("Contributions in %s: %s  Withdrawals: %s\n", r.Period, money(r.Contributions), money(r.Withdrawals))
	for _, e := range r.Evolution {
		fmt.Printf("  %s  contributed %s  net %s\n", e.Period, money(e.Contributed), money(e.NetMovement))
	}
	return nil
}

func runReturn(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("return", flag.ExitOnError)
	id := fs.String("investment", "", "Variable income holding id")
	amount := fs.String("amount", "", "Return amount")
	percent := fs.String("percent", "0", "Return in percent")
	fs.Parse(args)

	if *id == "" || *amount == "" {
		return fmt.Errorf("usage: financas return -investment ID -amount VALUE [-percent P]")
	}
	v, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	pct, err := parseAmount(*percent)
	if err != nil {
		return err
	}
	ok, err := app.Finance.RecordReturn(ctx, *id, v, pct)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("holding %s not found", *id)
	}
	fmt.Printf("Recorded return of %s on %s\n", money(v), *id)
	return nil
}

func runBudget(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	period := fs.String("period", "", "Month yyyy-mm (default: current month)")
	category := fs.String("category", "", "Plan spending for this category name")
	amount := fs.String("amount", "", "Planned amount (with -category)")
	fs.Parse(args)

	p, err := parsePeriod(*period)
	if err != nil {
		return err
	}

	if *category != "" {
		v, err := parseAmount(*amount)
		if err != nil {
			return err
		}
		categoryID := ""
		for _, c := range app.Finance.Snapshot().Categories {
			if core.SameLabel(c.Name, *category) {
				categoryID = c.ID
			}
		}
		if categoryID == "" {
			return fmt.Errorf("unknown category %q", *category)
		}
		if _, err := app.Finance.SetBudget(ctx, core.BudgetItem{
			CategoryID: categoryID,
			Month:      int(p.Month),
			Year:       p.Year,
			Amount:     v,
		}); err != nil {
			return err
		}
		fmt.Printf("Planned %s for %s in %s\n", money(v), *category, p)
		return nil
	}

	r := app.Finance.BudgetReport(p)

	w := newTable()
	fmt.Fprintf(w, "CATEGORY\tSUBCATEGORY\tPLANNED\tACTUAL\tREMAINING\tUSED\n")
	for _, l := range r.Budget.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s%%\n", l.Category, l.Subcategory, money(l.Planned), money(l.Actual), money(l.Remaining), l.PercentUsed.StringFixed(0))
	}
	w.Flush()

	o := r.Overview
	fmt.Printf("\nIncome %s  Expenses %s  Debt payments %s  Balance %s\n", money(o.Income), money(o.Expenses), money(o.DebtPayments), money(o.Balance))
	fmt.Printf("Planned balance %s  Actual balance %s\n", money(r.Budget.PlannedSaldo), money(r.Budget.ActualSaldo))
	for _, c := range o.ByCategory {
		fmt.Printf("  %-24s %12s  %s%%\n", c.Name, money(c.Amount), c.Percent.StringFixed(1))
	}
	return nil
}

func runCategories(ctx context.Context, app *cli.App, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	add := fs.String("add", "", "Create a category with this name")
	kind := fs.String("type", string(core.Expense), "Category type (with -add)")
	rename := fs.String("rename", "", "Category id to rename (with -name)")
	name := fs.String("name", "", "New name (with -rename)")
	del := fs.String("delete", "", "Category id to delete")
	addSub := fs.String("add-sub", "", "Create a subcategory with this name (with -category)")
	categoryID := fs.String("category", "", "Parent category id (with -add-sub)")
	delSub := fs.String("delete-sub", "", "Subcategory id to delete")
	fs.Parse(args)

	switch {
	case *add != "":
		typ, err := core.ParseTransactionType(*kind)
		if err != nil {
			return err
		}
		c, err := app.Finance.AddCategory(ctx, *add, typ)
		if err != nil {
			return err
		}
		fmt.Printf("Created category %s (%s)\n", c.Name, c.ID)
		return nil
	case *rename != "":
		if err := app.Finance.RenameCategory(ctx, *rename, *name); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", *rename, *name)
		return nil
	case *del != "":
		if err := app.Finance.DeleteCategory(ctx, *del); err != nil {
			return err
		}
		fmt.Printf("Deleted category %s\n", *del)
		return nil
	case *addSub != "":
		if *categoryID == "" {
			return fmt.Errorf("usage: financas categories -add-sub NAME -category ID")
		}
		sub, err := app.Finance.AddSubcategory(ctx, *categoryID, *addSub)
		if err != nil {
			return err
		}
		fmt.Printf("Created subcategory %s (%s)\n", sub.Name, sub.ID)
		return nil
	case *delSub != "":
		if err := app.Finance.DeleteSubcategory(ctx, *delSub); err != nil {
			return err
		}
		fmt.Printf("Deleted subcategory %s\n", *delSub)
		return nil
	}

	w := newTable()
	fmt.Fprintf(w, "ID\tTYPE\tCATEGORY\tSUBCATEGORIES\n")
	for _, c := range app.Finance.Snapshot().Categories {
		subs := make([]string, 0, len(c.Subcategories))
		for _, sub := range c.Subcategories {
			subs = append(subs, sub.Name+" ("+sub.ID+")")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Name, strings.Join(subs, ", "))
	}
	return w.Flush()
}

func runRules() {
	w := newTable()
	fmt.Fprintf(w, "TYPE\tCATEGORY\tKEYWORDS\tSUBCATEGORIES\n")
	for _, r := range classifier.Rules() {
		subs := make([]string, 0, len(r.Refine))
		for _, s := range r.Refine {
			subs = append(subs, s.Subcategory)
		}
		if r.Fallback != "" {
			subs = append(subs, r.Fallback+" (default)")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.Category, strings.Join(r.Keywords, ", "), strings.Join(subs, ", "))
	}
	w.Flush()
	fmt.Printf("\nIncome keywords: %s\n", strings.Join(classifier.IncomeKeywords(), ", "))
}
