// Package config loads backtest run configuration from a yaml file or CLI
// flags. A yaml config may describe several runs, CLI flags describe one.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Config is one fully parsed backtest run description. Compare lists
// additional strategy IDs to run against the same data. DataFile is the CSV
// path when DataSource is "csv". The LLM fields configure the AI strategy.
type Config struct {
	Strategy        string
	Compare         []string
	Pair            domain.Pair
	Interval        string
	Start           time.Time
	End             time.Time
	InitialCapital  decimal.Decimal
	FeePercent      decimal.Decimal
	SlippagePercent decimal.Decimal
	DataSource      string
	DataFile        string
	StrategyParams  map[string]decimal.Decimal
	ReportDir       string
	LLMAPIURL       string
	LLMAPIKey       string
	Model           string
}

// ConfigTmp is the yaml form of Config with string-typed numerics.
type ConfigTmp struct {
	Strategy        string            `yaml:"strategy"`
	Compare         []string          `yaml:"compare,omitempty"`
	Pair            string            `yaml:"pair"`
	Interval        string            `yaml:"interval"`
	Start           string            `yaml:"start"`
	End             string            `yaml:"end"`
	InitialCapital  string            `yaml:"initial_capital"`
	FeePercent      string            `yaml:"fee_percent,omitempty"`
	SlippagePercent string            `yaml:"slippage_percent,omitempty"`
	DataSource      string            `yaml:"data_source"`
	DataFile        string            `yaml:"data_file,omitempty"`
	StrategyParams  map[string]string `yaml:"strategy_params,omitempty"`
	ReportDir       string            `yaml:"report_dir,omitempty"`
	LLMAPIURL       string            `yaml:"llm_api_url,omitempty"`
	LLMAPIKey       string            `yaml:"llm_api_key,omitempty"`
	Model           string            `yaml:"model,omitempty"`
}

// Get loads configuration. With --config it reads yaml, otherwise the run
// is assembled from CLI flags.
func Get() ([]Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	strategyFlag := flag.String("strategy", "rules", "strategy ID to run")
	pairFlag := flag.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	intervalFlag := flag.String("interval", "1h", "candle interval, example: 1h")
	startFlag := flag.String("start", "", "range start, example: 2024-01-01")
	endFlag := flag.String("end", "", "range end, example: 2024-06-01")
	capitalFlag := flag.String("capital", "10000", "initial capital in quote currency")
	feeFlag := flag.String("fee", "0.001", "proportional fee, 0.001 means 0.1%")
	slippageFlag := flag.String("slippage", "0", "adverse slippage, 0.0005 means 0.05%")
	sourceFlag := flag.String("source", "binance", "data source: binance, bybit, hyperliquid, csv")
	fileFlag := flag.String("file", "", "CSV file path when --source=csv")
	reportDirFlag := flag.String("reportdir", "", "directory for the report archive")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	tmp := ConfigTmp{
		Strategy:        *strategyFlag,
		Pair:            *pairFlag,
		Interval:        *intervalFlag,
		Start:           *startFlag,
		End:             *endFlag,
		InitialCapital:  *capitalFlag,
		FeePercent:      *feeFlag,
		SlippagePercent: *slippageFlag,
		DataSource:      *sourceFlag,
		DataFile:        *fileFlag,
		ReportDir:       *reportDirFlag,
	}

	cfg, err := parseConfig(tmp)
	if err != nil {
		return nil, err
	}

	return []Config{cfg}, nil
}

func getYaml(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var configsTmp []ConfigTmp
	if err := yaml.Unmarshal(f, &configsTmp); err != nil {
		return nil, err
	}

	configs := make([]Config, 0, len(configsTmp))
	for i, tmp := range configsTmp {
		cfg, err := parseConfig(tmp)
		if err != nil {
			return nil, fmt.Errorf("config entry %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

func parseConfig(tmp ConfigTmp) (Config, error) {
	pair, err := getPairFromString(tmp.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param: %s, error: %w", tmp.Pair, err)
	}

	if tmp.Strategy == "" {
		return Config{}, fmt.Errorf("'strategy' param is required")
	}
	if tmp.Interval == "" {
		return Config{}, fmt.Errorf("'interval' param is required")
	}
	if tmp.DataSource == "" {
		return Config{}, fmt.Errorf("'data_source' param is required")
	}
	if tmp.DataSource == "csv" && tmp.DataFile == "" {
		return Config{}, fmt.Errorf("'data_file' param is required for the csv data source")
	}

	start, err := parseDate(tmp.Start)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'start' param: %w", err)
	}
	end, err := parseDate(tmp.End)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'end' param: %w", err)
	}
	if !start.Before(end) {
		return Config{}, fmt.Errorf("'start' must be before 'end'")
	}

	capital, err := decimal.NewFromString(tmp.InitialCapital)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'initial_capital' param: %w", err)
	}
	if capital.LessThanOrEqual(decimal.Zero) {
		return Config{}, fmt.Errorf("'initial_capital' must be positive")
	}

	fee, err := parseOptionalDecimal(tmp.FeePercent)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'fee_percent' param: %w", err)
	}
	slippage, err := parseOptionalDecimal(tmp.SlippagePercent)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'slippage_percent' param: %w", err)
	}
	if fee.IsNegative() || slippage.IsNegative() {
		return Config{}, fmt.Errorf("'fee_percent' and 'slippage_percent' must not be negative")
	}

	params := make(map[string]decimal.Decimal, len(tmp.StrategyParams))
	for name, raw := range tmp.StrategyParams {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect strategy param %q: %w", name, err)
		}
		params[name] = value
	}

	return Config{
		Strategy:        tmp.Strategy,
		Compare:         tmp.Compare,
		Pair:            pair,
		Interval:        tmp.Interval,
		Start:           start,
		End:             end,
		InitialCapital:  capital,
		FeePercent:      fee,
		SlippagePercent: slippage,
		DataSource:      tmp.DataSource,
		DataFile:        tmp.DataFile,
		StrategyParams:  params,
		ReportDir:       tmp.ReportDir,
		LLMAPIURL:       tmp.LLMAPIURL,
		LLMAPIKey:       tmp.LLMAPIKey,
		Model:           tmp.Model,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q, use %s or RFC3339", s, dateLayout)
	}
	return t, nil
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func getPairFromString(pairStr string) (domain.Pair, error) {
	pairElements := strings.Split(pairStr, "_")
	if len(pairElements) != 2 || pairElements[0] == "" || pairElements[1] == "" {
		return domain.Pair{}, fmt.Errorf("invalid pair param")
	}
	return domain.Pair{From: pairElements[0], To: pairElements[1]}, nil
}
