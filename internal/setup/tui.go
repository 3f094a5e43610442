package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the
// generated config to config.gen.yaml.
func RunTUI() error {
	var (
		strategy    string
		source      string
		pair        string
		interval    string
		startStr    string
		endStr      string
		capitalStr  string
		feeStr      string
		slippageStr string
		dataFile    string
		apiURL      string
		apiKey      string
		model       string
		confirm     bool
	)

	// defaults
	pair = "BTC_USDT"
	interval = "1h"
	capitalStr = "10000"
	feeStr = "0.001"
	slippageStr = "0"
	apiURL = "https://openrouter.ai/api/v1/chat/completions"
	model = "deepseek/deepseek-v3.2-exp"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's put a strategy through its paces.\n"))

	// strategy
	fmt.Println(stepStyle.Render("STEP 1: STRATEGY"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose a trading strategy").
				Options(
					huh.NewOption("Rules (RSI + trend filter)", "rules"),
					huh.NewOption("Rules, adaptive thresholds", "rules-adaptive"),
					huh.NewOption("Momentum breakout", "momentum"),
					huh.NewOption("Momentum, optimized preset", "momentum-optimized"),
					huh.NewOption("Mean reversion (Bollinger)", "meanrev"),
					huh.NewOption("Multi-timeframe", "mtf"),
					huh.NewOption("Random (baseline)", "random"),
					huh.NewOption("AI (LLM-based)", "ai"),
				).
				Value(&strategy),
		),
	).Run()
	if err != nil {
		return err
	}

	// data source
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: DATA SOURCE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should candles come from?").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
					huh.NewOption("Local CSV file", "csv"),
				).
				Value(&source),
		),
	).Run()
	if err != nil {
		return err
	}

	if source == "csv" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("CSV File").
					Description("Rows of timestamp,open,high,low,close,volume").
					Value(&dataFile).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("file path cannot be empty")
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// pair and interval
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: ASSET"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pair).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("pair cannot be empty")
					}
					if !strings.Contains(s, "_") {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
					}
					return nil
				}),
			huh.NewInput().
				Title("Candle Interval").
				Description("e.g. 1m, 15m, 1h, 4h, 1d").
				Value(&interval),
		),
	).Run()
	if err != nil {
		return err
	}

	// date range
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: RANGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start Date").
				Description("YYYY-MM-DD").
				Value(&startStr).
				Validate(validateDate),
			huh.NewInput().
				Title("End Date").
				Description("YYYY-MM-DD").
				Value(&endStr).
				Validate(validateDate),
		),
	).Run()
	if err != nil {
		return err
	}

	// portfolio
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: PORTFOLIO"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Initial Capital").
				Description("In quote currency, e.g. 10000").
				Value(&capitalStr).
				Validate(validatePositive),
			huh.NewInput().
				Title("Fee").
				Description("Proportional, 0.001 means 0.1%").
				Value(&feeStr),
			huh.NewInput().
				Title("Slippage").
				Description("Adverse, 0.0005 means 0.05%").
				Value(&slippageStr),
		),
	).Run()
	if err != nil {
		return err
	}

	// strategy specifics
	if strategy == "ai" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 6: AI SETTINGS"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("LLM API URL").
					Value(&apiURL),
				huh.NewInput().
					Title("LLM API Key").
					Value(&apiKey).
					EchoMode(huh.EchoModePassword),
				huh.NewInput().
					Title("Model Name").
					Value(&model),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BACKTESTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Strategy: %s\nSource: %s\nPair: %s\nInterval: %s\nRange: %s .. %s\nCapital: %s\n",
		strategy, source, pair, interval, startStr, endStr, capitalStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and run").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		Strategy:        strategy,
		Pair:            pair,
		Interval:        interval,
		Start:           startStr,
		End:             endStr,
		InitialCapital:  capitalStr,
		FeePercent:      feeStr,
		SlippagePercent: slippageStr,
		DataSource:      source,
		DataFile:        dataFile,
	}

	if strategy == "ai" {
		cfgTmp.LLMAPIURL = apiURL
		cfgTmp.LLMAPIKey = apiKey
		cfgTmp.Model = model
	}

	configs := []config.ConfigTmp{cfgTmp}

	data, err := yaml.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting backtest...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("must be YYYY-MM-DD")
	}
	return nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be positive")
	}
	return nil
}
