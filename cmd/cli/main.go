package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/baseline"
	"github.com/avolkov/pmo-budget/internal/currency"
	"github.com/avolkov/pmo-budget/internal/domain"
	"github.com/avolkov/pmo-budget/internal/forecast"
	"github.com/avolkov/pmo-budget/internal/identity"
	"github.com/avolkov/pmo-budget/internal/logger"
	"github.com/avolkov/pmo-budget/internal/store"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "baselines":
		runBaselines(log)
	case "snapshot":
		runSnapshot(log)
	case "revert":
		runRevert(log)
	case "book":
		runBook(log)
	case "schedule":
		runSchedule(log)
	case "line":
		runLine(log)
	case "history":
		runHistory(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("PMO Budget CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  baselines  List a project's baselines")
	fmt.Println("  snapshot   Create a new baseline for a project")
	fmt.Println("  revert     Move the current pointer to an older baseline")
	fmt.Println("  book       Record a booked actual against a project")
	fmt.Println("  schedule   Print a project's monthly schedule")
	fmt.Println("  line       Print the active version of a budget line")
	fmt.Println("  history    Print the version history of a budget line")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func newStore(ctx context.Context, log zerolog.Logger) *store.Client {
	client, err := store.NewClient(ctx, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create record store client")
	}
	return client
}

func runBaselines(log zerolog.Logger) {
	fs := flag.NewFlagSet("baselines", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project ID")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	project, err := client.GetProject(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load project")
	}

	baselineStore := baseline.NewStore(client)

	baselines, err := baselineStore.List(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list baselines")
	}
	current, err := baselineStore.Current(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve current baseline")
	}

	for _, b := range baselines {
		marker := " "
		if b.ID == current.ID {
			marker = "*"
		}
		fmt.Printf("%s %-6s %14s  %s  %s  %s\n",
			marker, b.Version, currency.Format(b.Budget, project.HomeCurrency),
			b.CreatedAt.Format("2006-01-02"), b.Author, b.Description)
	}
}

func runSnapshot(log zerolog.Logger) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project ID")
	description := fs.String("description", "", "Baseline description")
	author := fs.String("author", "", "Author (defaults to the demo user)")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	project, err := client.GetProject(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load project")
	}

	who := identity.StaticProvider{UserID: *author}.CurrentUserID(ctx)
	b, err := baseline.NewStore(client).Create(ctx, project, *description, who)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create baseline")
	}

	fmt.Printf("Created baseline %s (%.2f) for %s\n", b.Version, b.Budget, project.SAPID)
}

func runRevert(log zerolog.Logger) {
	fs := flag.NewFlagSet("revert", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project ID")
	baselineID := fs.String("baseline-id", "", "Baseline ID to revert to")
	fs.Parse(os.Args[2:])

	if *projectID == "" || *baselineID == "" {
		log.Fatal().Msg("Usage: cli revert -project-id ID -baseline-id ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	b, err := baseline.NewStore(client).RevertTo(ctx, *projectID, *baselineID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to revert baseline")
	}

	fmt.Printf("Current baseline is now %s (%.2f)\n", b.Version, b.Budget)
}

func runBook(log zerolog.Logger) {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project ID")
	amount := fs.Float64("amount", 0, "Amount in the project's home currency")
	category := fs.String("category", "", "Spend category")
	txType := fs.String("type", string(domain.TransactionExpense), "Transaction type: expense or credit")
	date := fs.String("date", "", "Booking date (YYYY-MM-DD, defaults to today)")
	fs.Parse(os.Args[2:])

	if *projectID == "" || *amount == 0 {
		log.Fatal().Msg("Usage: cli book -project-id ID -amount N [-category C] [-type expense|credit] [-date YYYY-MM-DD]")
	}

	bookedAt := time.Now()
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -date, expected YYYY-MM-DD")
		}
		bookedAt = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		ProjectID: *projectID,
		Amount:    *amount,
		Category:  *category,
		Type:      domain.TransactionType(*txType),
		Date:      bookedAt,
	}
	if err := client.InsertTransactions(ctx, []*domain.Transaction{tx}); err != nil {
		log.Fatal().Err(err).Msg("Failed to book transaction")
	}

	fmt.Printf("Booked %.2f (%s) against %s on %s\n", tx.Amount, tx.Type, tx.ProjectID, bookedAt.Format("2006-01-02"))
}

func runSchedule(log zerolog.Logger) {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project ID")
	basis := fs.String("basis", currency.HomeBasis, "Currency rate basis")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	project, err := client.GetProject(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load project")
	}

	now := time.Now()
	start := now.AddDate(0, -6, 0)
	if project.StartDate != nil {
		start = *project.StartDate
	}
	end := now.AddDate(0, 6, 0)
	if project.Deadline != nil {
		end = *project.Deadline
	}

	txs, err := client.QueryTransactions(ctx, *projectID, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}

	year := now.Year()
	fmt.Printf("Schedule for %s (figures in %s)\n", project.SAPID, currency.Label(*basis, year))
	for _, e := range forecast.BuildSchedule(project, txs, nil, now) {
		fmt.Printf("%s  planned %12.2f  forecast %12.2f  realized %12.2f  %-8s %-8s %+6.1f%%\n",
			e.MonthKey,
			currency.Convert(e.Planned, *basis, year),
			currency.Convert(e.Forecast, *basis, year),
			currency.Convert(e.Realized, *basis, year),
			e.Status, e.Tier, e.DeviationPc)
	}
}

func runLine(log zerolog.Logger) {
	fs := flag.NewFlagSet("line", flag.ExitOnError)
	sapID := fs.String("sap-id", "", "SAP id of the budget line")
	fs.Parse(os.Args[2:])

	if *sapID == "" {
		log.Fatal().Msg("Error: --sap-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	v, err := client.ActiveLineItem(ctx, *sapID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load line item")
	}

	fmt.Printf("%s v%d (%s, %s)\n", v.SAPID, v.Version, v.Category, v.Provenance)
	for i, m := range v.Months {
		fmt.Printf("  %s %12.2f\n", time.Month(i+1).String()[:3], m)
	}
	fmt.Printf("  Total %10.2f\n", v.Total)
}

func runHistory(log zerolog.Logger) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	sapID := fs.String("sap-id", "", "SAP id of the budget line")
	fs.Parse(os.Args[2:])

	if *sapID == "" {
		log.Fatal().Msg("Error: --sap-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newStore(ctx, log)
	defer client.Close()

	versions, err := client.LineItemHistory(ctx, *sapID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load line item history")
	}
	if len(versions) == 0 {
		log.Fatal().Str("sap_id", *sapID).Msg("Line not found")
	}

	for _, v := range versions {
		active := " "
		if v.IsActive {
			active = "*"
		}
		fmt.Printf("%s v%-3d %12.2f  %s  %s\n",
			active, v.Version, v.Total, v.UpdatedAt.Format("2006-01-02 15:04"), v.Category)
	}
}
