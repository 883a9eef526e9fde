package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/ledger/internal/api"
	"github.com/mtlprog/ledger/internal/config"
	"github.com/mtlprog/ledger/internal/domain"
	"github.com/mtlprog/ledger/internal/export"
	"github.com/mtlprog/ledger/internal/resolver"
	"github.com/mtlprog/ledger/internal/valuation"
	"github.com/mtlprog/ledger/internal/worker"
)

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the JSON API and the scheduled price worker",
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			var jobs []func(context.Context)
			if cfg.PriceSchedule != "" {
				var hook worker.AfterUpdateHook
				if cfg.SheetsEnabled() {
					sheets, err := export.NewSheetsWriter(c.Context, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
					if err != nil {
						return err
					}
					hook = export.NewService(d.valuation, d.returns, sheets)
				}
				priceWorker, err := worker.NewPriceWorker(d.resolver, cfg.PriceSchedule, false, hook)
				if err != nil {
					return err
				}
				jobs = append(jobs, priceWorker.Run)
			} else {
				slog.Info("PRICE_SCHEDULE not set, scheduled price updates disabled")
			}

			handler := api.NewHandler(api.Services{
				Valuation:       d.valuation,
				Returns:         d.returns,
				Resolver:        d.resolver,
				Ledger:          d.store,
				FX:              d.fx,
				DisplayCurrency: cfg.DisplayCurrency,
			})
			srv := api.NewServer(cfg.HTTPPort, handler)

			slog.Info("HTTP server listening", "port", cfg.HTTPPort)
			serveUntilDone(c.Context, srv, jobs...)
			return nil
		}),
	}
}

func resolveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "fetch today's prices; without symbols, every symbol held in snapshots",
		ArgsUsage: "[SYMBOL...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "print prices without saving them"},
		},
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			symbols := c.Args().Slice()
			if len(symbols) == 0 {
				var err error
				if symbols, err = d.resolver.SymbolsNeedingPrices(c.Context); err != nil {
					return err
				}
			}
			if len(symbols) == 0 {
				fmt.Println("No symbols to resolve")
				return nil
			}

			var opts []resolver.BatchOption
			if c.Bool("dry-run") {
				opts = append(opts, resolver.DryRun())
			}

			result, err := d.resolver.ResolveBatch(c.Context, symbols, opts...)
			printOutcomes(result)
			return err
		}),
	}
}

func valueCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "value",
		Usage: "show holdings and net worth on a date",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "valuation date YYYY-MM-DD (default: latest snapshot date)"},
			&cli.StringFlag{Name: "currency", Usage: "display currency", Value: cfg.DisplayCurrency},
		},
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			var (
				v   valuation.Valuation
				err error
			)
			if s := c.String("date"); s != "" {
				date, perr := domain.ParseDate(s)
				if perr != nil {
					return perr
				}
				v, err = d.valuation.ValueOnDate(c.Context, date)
			} else {
				v, err = d.valuation.Current(c.Context)
			}
			if err != nil {
				return err
			}

			currency := strings.ToUpper(c.String("currency"))
			if currency != valuation.BaseCurrency {
				v = valuation.Convert(v, currency, d.fx.FetchRate(c.Context, currency))
			}
			printValuation(v)
			return nil
		}),
	}
}

func historyCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show net worth on every snapshot date",
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			points, err := d.valuation.History(c.Context)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "DATE\tNET WORTH (USD)\t")
			for _, p := range points {
				fmt.Fprintf(tw, "%s\t%s\t\n", p.Date, domain.FormatUSD(p.NetWorth))
			}
			return tw.Flush()
		}),
	}
}

func returnsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "returns",
		Usage: "show PnL, period ROI/APY and the BTC benchmark",
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			report, err := d.returns.Report(c.Context)
			if err != nil {
				return err
			}
			return printJSON(report)
		}),
	}
}

func diagnoseCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "diagnose",
		Usage: "report data counts and positions without prices",
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			diag, err := d.valuation.Diagnose(c.Context)
			if err != nil {
				return err
			}
			return printJSON(diag)
		}),
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write net worth history and holdings to a workbook and/or Google Sheets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "xlsx", Usage: "path of the .xlsx workbook to write"},
			&cli.BoolFlag{Name: "sheets", Usage: "also write to GOOGLE_SHEETS_ID"},
		},
		Action: withDeps(cfg, func(c *cli.Context, d *deps) error {
			var writers []export.Writer
			if path := c.String("xlsx"); path != "" {
				writers = append(writers, export.NewXLSXWriter(path))
			}
			if c.Bool("sheets") {
				if !cfg.SheetsEnabled() {
					return fmt.Errorf("--sheets requires GOOGLE_SHEETS_ID and GOOGLE_CREDENTIALS_JSON")
				}
				sheets, err := export.NewSheetsWriter(c.Context, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
				if err != nil {
					return err
				}
				writers = append(writers, sheets)
			}
			if len(writers) == 0 {
				return fmt.Errorf("nothing to export: pass --xlsx PATH and/or --sheets")
			}
			return export.NewService(d.valuation, d.returns, writers...).Export(c.Context)
		}),
	}
}

func printOutcomes(result resolver.BatchResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tCLASS\tPRICE (USD)\tSOURCE\tSTATUS")
	for _, symbol := range result.Symbols {
		o := result.Prices[symbol]
		if o == nil {
			continue
		}
		price, status := "-", o.Reason
		if o.Resolved() {
			price, status = o.Price.String(), "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Symbol, o.Class, price, o.Source, status)
	}
	_ = tw.Flush()
	fmt.Printf("\nResolved %d of %d symbols\n", result.Resolved, len(result.Symbols))
}

func printValuation(v valuation.Valuation) {
	fmt.Printf("Valuation on %s (%s)\n\n", v.Date, v.Currency)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tSYMBOL\tQUANTITY\tPRICE\tVALUE\tPRICE DATE")
	for _, r := range v.Rows {
		priceDate := r.PriceDate.String()
		if r.MissingPrice {
			priceDate = "missing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Account, r.Symbol, r.Quantity, domain.FormatAmount(r.Price, 8), domain.FormatUSD(r.Value), priceDate)
	}
	_ = tw.Flush()

	fmt.Printf("\nNet worth: %s %s\n", domain.FormatUSD(v.NetWorth), v.Currency)
	if len(v.MissingSymbols) > 0 {
		fmt.Printf("Warning: no price for %s, valued at 0\n", strings.Join(v.MissingSymbols, ", "))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
