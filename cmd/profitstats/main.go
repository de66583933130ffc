// Command profitstats summarizes executed trades from the engine's JSON
// log output. Feed it a log file or pipe the engine's stdout in:
//
//	karb | tee karb.log
//	profitstats karb.log
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/shopspring/decimal"
)

type pairStats struct {
	trades     int
	upbitSells int
	volume     decimal.Decimal
	spreadSum  decimal.Decimal
	profitSum  decimal.Decimal
}

func main() {
	in := io.Reader(os.Stdin)
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "profitstats: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	stats, err := aggregate(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profitstats: %v\n", err)
		os.Exit(1)
	}
	report(os.Stdout, stats)
}

// aggregate folds "trade executed" records into per-pair totals. Lines
// that are not JSON or not trade records are skipped, so a full mixed
// log can be fed in as is.
func aggregate(in io.Reader) (map[string]*pairStats, error) {
	stats := make(map[string]*pairStats)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record["msg"] != "trade executed" {
			continue
		}
		pair, _ := record["pair"].(string)
		if pair == "" {
			continue
		}

		s := stats[pair]
		if s == nil {
			s = &pairStats{}
			stats[pair] = s
		}
		s.trades++
		if record["direction"] == "upbit_sell" {
			s.upbitSells++
		}
		s.volume = s.volume.Add(decimalField(record, "volume"))
		s.spreadSum = s.spreadSum.Add(decimalField(record, "spread"))
		s.profitSum = s.profitSum.Add(decimalField(record, "expected_profit"))
	}
	return stats, scanner.Err()
}

func decimalField(record map[string]any, key string) decimal.Decimal {
	raw, _ := record[key].(string)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func report(out io.Writer, stats map[string]*pairStats) {
	pairs := make([]string, 0, len(stats))
	for pair := range stats {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	fmt.Fprintf(out, "%-12s %7s %11s %12s %12s %12s\n",
		"PAIR", "TRADES", "UPBIT_SELL", "VOLUME", "AVG_SPREAD", "AVG_PROFIT")
	for _, pair := range pairs {
		s := stats[pair]
		n := decimal.NewFromInt(int64(s.trades))
		fmt.Fprintf(out, "%-12s %7d %11d %12s %12s %12s\n",
			pair, s.trades, s.upbitSells,
			s.volume.StringFixed(6),
			s.spreadSum.Div(n).StringFixed(6),
			s.profitSum.Div(n).StringFixed(6))
	}
	if len(pairs) == 0 {
		fmt.Fprintln(out, "no executed trades found")
	}
}
